package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/client"
	"github.com/sagarc03/datalake/datalaketest"
	"github.com/sagarc03/datalake/journal/database"
	"github.com/sagarc03/datalake/transport"
)

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newClient(t *testing.T, opts ...client.Option) (*client.Client, *datalaketest.Server) {
	t.Helper()
	srv := datalaketest.NewServer(t, datalaketest.Config{Now: clock})

	cfg := &client.Config{
		EndpointHost: datalaketest.EndpointHost,
		BaseURL:      srv.HTTP.URL,
		AccessKey:    datalaketest.AccessKey,
		SecretKey:    datalaketest.SecretKey,
	}
	opts = append([]client.Option{client.WithClock(clock)}, opts...)
	c, err := client.New(cfg, opts...)
	require.NoError(t, err)
	return c, srv
}

func decode(t *testing.T, resp transport.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, resp.Decode(&out))
	return out
}

func createPackage(t *testing.T, c *client.Client, name string) string {
	t.Helper()
	resp, err := c.CreatePackage(context.Background(), client.CreatePackageParams{Name: name})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := decode(t, resp)["package_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := client.New(nil)
		assert.ErrorIs(t, err, client.ErrConfigRequired)
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := client.New(&client.Config{EndpointHost: "api.example.com", AccessKey: "ak1"})
		var cfgErr *datalake.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "secret key", cfgErr.Field)
	})

	t.Run("invalid base url", func(t *testing.T) {
		_, err := client.New(&client.Config{
			EndpointHost: "api.example.com",
			BaseURL:      "not a url",
			AccessKey:    "ak1",
			SecretKey:    "s3cr3t",
		})
		assert.ErrorIs(t, err, datalake.ErrConfiguration)
	})

	t.Run("timeout leaves the supplied client alone", func(t *testing.T) {
		shared := &http.Client{Timeout: time.Minute}
		_, err := client.New(&client.Config{
			EndpointHost: "api.example.com",
			AccessKey:    "ak1",
			SecretKey:    "s3cr3t",
		}, client.WithHTTPClient(shared), client.WithTimeout(time.Second))
		require.NoError(t, err)
		assert.Equal(t, time.Minute, shared.Timeout)
	})

	t.Run("timeout after a nil client", func(t *testing.T) {
		assert.NotPanics(t, func() {
			_, err := client.New(&client.Config{
				EndpointHost: "api.example.com",
				AccessKey:    "ak1",
				SecretKey:    "s3cr3t",
			}, client.WithHTTPClient(nil), client.WithTimeout(time.Second))
			assert.NoError(t, err)
		})
	})

	t.Run("token is signed for the endpoint host", func(t *testing.T) {
		c, err := client.New(&client.Config{
			EndpointHost: "api.example.com",
			AccessKey:    "ak1",
			SecretKey:    "s3cr3t",
		}, client.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }))
		require.NoError(t, err)
		assert.Equal(t, "YWsxOlB2eSt5U1BZOU02R2VHLzIxdUpQQkFCRTI4OVVpNngraE94aDBuRWhmRmM9", c.Token())
	})
}

func TestClient_Packages(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	resp, err := c.CreatePackage(ctx, client.CreatePackageParams{
		Name:        "ocean temps",
		Description: "buoy readings",
		Metadata:    map[string]any{"license": "cc-by"},
	})
	require.NoError(t, err)
	require.True(t, resp.OK())
	id := decode(t, resp)["package_id"].(string)

	desc := "hourly buoy readings"
	resp, err = c.UpdatePackage(ctx, client.UpdatePackageParams{PackageID: id, Description: &desc})
	require.NoError(t, err)
	body := decode(t, resp)
	assert.Equal(t, "ocean temps", body["name"])
	assert.Equal(t, desc, body["description"])

	resp, err = c.DescribePackage(ctx, client.PackageParams{PackageID: id})
	require.NoError(t, err)
	assert.Equal(t, desc, decode(t, resp)["description"])

	resp, err = c.CreateMetadata(ctx, client.CreateMetadataParams{PackageID: id, Metadata: map[string]any{"title": "Ocean"}})
	require.NoError(t, err)
	require.True(t, resp.OK())

	resp, err = c.DescribeMetadata(ctx, client.PackageParams{PackageID: id})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"license": "cc-by", "title": "Ocean"}, decode(t, resp)["metadata"])

	resp, err = c.DescribeRequiredMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{"title", "description", "license"}, decode(t, resp)["required_metadata"])

	resp, err = c.DeletePackage(ctx, client.PackageParams{PackageID: id})
	require.NoError(t, err)
	require.True(t, resp.OK())

	// a 404 is a response, not an error, until the caller asks
	resp, err = c.DescribePackage(ctx, client.PackageParams{PackageID: id})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	err = client.CheckStatus(resp)
	assert.ErrorIs(t, err, datalake.ErrNotFound)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Package not found", apiErr.Message())

	for _, call := range srv.API.Calls() {
		assert.True(t, strings.HasPrefix(call.Auth, "ak:"), "unsigned call to %s", call.Path)
	}
}

func TestClient_InvalidParams(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"create without name", func() error {
			_, err := c.CreatePackage(ctx, client.CreatePackageParams{})
			return err
		}},
		{"update without fields", func() error {
			_, err := c.UpdatePackage(ctx, client.UpdatePackageParams{PackageID: "p1"})
			return err
		}},
		{"describe without id", func() error {
			_, err := c.DescribePackage(ctx, client.PackageParams{})
			return err
		}},
		{"id with a slash", func() error {
			_, err := c.DescribePackageDataset(ctx, client.DatasetParams{PackageID: "p1", DatasetID: "../x"})
			return err
		}},
		{"empty metadata", func() error {
			_, err := c.CreateMetadata(ctx, client.CreateMetadataParams{PackageID: "p1", Metadata: map[string]any{}})
			return err
		}},
		{"unknown checkout format", func() error {
			_, err := c.CheckoutCart(ctx, client.CheckoutParams{Format: "ZIP"})
			return err
		}},
		{"empty search", func() error {
			_, err := c.Search(ctx, client.SearchParams{})
			return err
		}},
		{"upload without body", func() error {
			_, err := c.UploadPackageDataset(ctx, client.UploadParams{PackageID: "p1", FileName: "a.txt", ContentType: "text/plain"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), datalake.ErrInvalidInput)
		})
	}

	assert.Empty(t, srv.API.Calls())
}

func TestClient_CartAndSearch(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	id := createPackage(t, c, "Ocean temps")
	createPackage(t, c, "Forest cover")

	resp, err := c.AddCartItem(ctx, client.PackageParams{PackageID: id})
	require.NoError(t, err)
	itemID := decode(t, resp)["cart_item_id"].(string)

	resp, err = c.DescribeCartItem(ctx, client.CartItemParams{CartItemID: itemID})
	require.NoError(t, err)
	assert.Equal(t, id, decode(t, resp)["package_id"])

	resp, err = c.DescribeCart(ctx)
	require.NoError(t, err)
	var cart []map[string]any
	require.NoError(t, resp.Decode(&cart))
	assert.Len(t, cart, 1)

	resp, err = c.CheckoutCart(ctx, client.CheckoutParams{Format: client.CartFormatBucketKey})
	require.NoError(t, err)
	out := decode(t, resp)
	assert.Equal(t, "bucket-key", out["format"])
	items := out["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "s3://datalake/"+id, items[0].(map[string]any)["location"])

	resp, err = c.CheckoutCart(ctx, client.CheckoutParams{Format: client.CartFormatSignedURL})
	require.NoError(t, err)
	assert.Equal(t, "signed-url", decode(t, resp)["format"])

	resp, err = c.Search(ctx, client.SearchParams{Terms: "ocean temps"})
	require.NoError(t, err)
	var results []map[string]any
	require.NoError(t, resp.Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, "Ocean temps", results[0]["name"])

	resp, err = c.RemoveCartItem(ctx, client.CartItemParams{CartItemID: itemID})
	require.NoError(t, err)
	require.True(t, resp.OK())
	resp, err = c.DescribeCartItem(ctx, client.CartItemParams{CartItemID: itemID})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCartFormat_WireValue(t *testing.T) {
	assert.Equal(t, "bucket-key", client.CartFormatBucketKey.WireValue())
	assert.Equal(t, "signed-url", client.CartFormatSignedURL.WireValue())
}

func TestClient_UploadFile(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	id := createPackage(t, c, "p")

	path := filepath.Join(t.TempDir(), "readings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"t":1}`), 0o600))

	res, err := c.UploadFile(ctx, id, path, "")
	require.NoError(t, err)
	require.NotEmpty(t, res.DatasetID)

	var record map[string]any
	require.NoError(t, json.Unmarshal(res.Record, &record))
	assert.Equal(t, "readings.json", record["name"])
	assert.Equal(t, "application/json", record["content_type"])
	assert.Equal(t, float64(7), record["size"])
	assert.Equal(t, datalaketest.StatusUploaded, record["status"])

	blob, ok := srv.API.Blob(res.DatasetID)
	require.True(t, ok)
	assert.Equal(t, `{"t":1}`, string(blob))

	resp, err := c.DescribePackageDatasets(ctx, client.PackageParams{PackageID: id})
	require.NoError(t, err)
	var datasets []map[string]any
	require.NoError(t, resp.Decode(&datasets))
	assert.Len(t, datasets, 1)

	// the upload URL is the only unsigned call
	for _, call := range srv.API.Calls() {
		if strings.HasPrefix(call.Path, "/upload/") {
			assert.Empty(t, call.Auth)
		} else {
			assert.NotEmpty(t, call.Auth)
		}
	}
}

func TestClient_UploadFile_Errors(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	_, err := c.UploadFile(ctx, "p1", filepath.Join(t.TempDir(), "missing.txt"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = c.UploadFile(ctx, "p1", t.TempDir(), "")
	assert.ErrorContains(t, err, "is a directory")
}

func TestClient_UploadPackageDataset_StageFailures(t *testing.T) {
	tests := []struct {
		name       string
		faults     datalaketest.Faults
		stage      datalake.Stage
		sideEffect bool
	}{
		{"register", datalaketest.Faults{FailRegister: true}, datalake.StageRegister, false},
		{"upload", datalaketest.Faults{FailUpload: true}, datalake.StageUpload, true},
		{"confirm", datalaketest.Faults{FailConfirm: true}, datalake.StageConfirm, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newClient(t)
			id := createPackage(t, c, "p")
			srv.API.SetFaults(tt.faults)

			_, err := c.UploadPackageDataset(context.Background(), client.UploadParams{
				PackageID:   id,
				FileName:    "dir/a.txt",
				FileSize:    5,
				ContentType: "text/plain",
				Body:        strings.NewReader("hello"),
			})
			require.Error(t, err)
			assert.True(t, datalake.FailedAt(err, tt.stage))

			var se *datalake.StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.sideEffect, se.RemoteSideEffect())
			if tt.sideEffect {
				assert.NotEmpty(t, se.DatasetID)
			}
		})
	}
}

func TestClient_CleanupOrphans(t *testing.T) {
	ctx := context.Background()
	repo, closeRepo, err := database.Connect(ctx, database.Config{Type: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(closeRepo)

	c, srv := newClient(t, client.WithJournal(repo))
	id := createPackage(t, c, "p")

	srv.API.SetFaults(datalaketest.Faults{FailUpload: true})
	_, err = c.UploadPackageDataset(ctx, client.UploadParams{
		PackageID:   id,
		FileName:    "a.txt",
		FileSize:    5,
		ContentType: "text/plain",
		Body:        strings.NewReader("hello"),
	})
	require.True(t, datalake.FailedAt(err, datalake.StageUpload))
	var se *datalake.StageError
	require.ErrorAs(t, err, &se)

	srv.API.SetFaults(datalaketest.Faults{})
	_, err = c.UploadPackageDataset(ctx, client.UploadParams{
		PackageID:   id,
		FileName:    "b.txt",
		FileSize:    5,
		ContentType: "text/plain",
		Body:        strings.NewReader("world"),
	})
	require.NoError(t, err)

	orphans, err := c.ListOrphans(ctx, "")
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, se.DatasetID, orphans[0].DatasetID)

	results, err := c.CleanupOrphans(ctx, id)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.False(t, results[0].Gone)
	assert.False(t, client.HasCleanupErrors(results))

	resp, err := c.DescribePackageDataset(ctx, client.DatasetParams{PackageID: id, DatasetID: se.DatasetID})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	orphans, err = c.ListOrphans(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	entry, err := repo.Get(ctx, results[0].Entry.ID)
	require.NoError(t, err)
	assert.NotNil(t, entry.CleanedUpAt)
}

func TestClient_CleanupOrphans_AlreadyGone(t *testing.T) {
	ctx := context.Background()
	repo, closeRepo, err := database.Connect(ctx, database.Config{Type: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(closeRepo)

	c, srv := newClient(t, client.WithJournal(repo))
	id := createPackage(t, c, "p")

	srv.API.SetFaults(datalaketest.Faults{FailConfirm: true})
	_, err = c.UploadPackageDataset(ctx, client.UploadParams{
		PackageID:   id,
		FileName:    "a.txt",
		FileSize:    5,
		ContentType: "text/plain",
		Body:        strings.NewReader("hello"),
	})
	require.True(t, datalake.FailedAt(err, datalake.StageConfirm))
	srv.API.SetFaults(datalaketest.Faults{})

	resp, err := c.DeletePackage(ctx, client.PackageParams{PackageID: id})
	require.NoError(t, err)
	require.True(t, resp.OK())

	results, err := c.CleanupOrphans(ctx, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.True(t, results[0].Gone)
}

func TestClient_CleanupOrphans_WithoutJournal(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.CleanupOrphans(context.Background(), "")
	assert.ErrorIs(t, err, client.ErrJournalRequired)
}

func TestClient_TransportError(t *testing.T) {
	c, err := client.New(&client.Config{
		EndpointHost: "api.example.com",
		BaseURL:      "http://127.0.0.1:1",
		AccessKey:    "ak1",
		SecretKey:    "s3cr3t",
	})
	require.NoError(t, err)

	_, err = c.DescribeCart(context.Background())
	assert.ErrorIs(t, err, datalake.ErrTransport)
	assert.False(t, errors.Is(err, datalake.ErrNotFound))
}

func TestClient_WithTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	shared := &http.Client{}
	c, err := client.New(&client.Config{
		EndpointHost: "api.example.com",
		BaseURL:      srv.URL,
		AccessKey:    "ak1",
		SecretKey:    "s3cr3t",
	}, client.WithHTTPClient(shared), client.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.DescribeCart(context.Background())
	assert.ErrorIs(t, err, datalake.ErrTransport)
	assert.Zero(t, shared.Timeout)
}

type countingObserver struct {
	requests int
	uploads  int
}

func (o *countingObserver) ObserveRequest(string, int, error, time.Duration) { o.requests++ }
func (o *countingObserver) ObserveUpload(datalake.Stage, error, int64)         { o.uploads++ }

func TestClient_Observer(t *testing.T) {
	obs := &countingObserver{}
	c, _ := newClient(t, client.WithObserver(obs))
	id := createPackage(t, c, "p")

	_, err := c.UploadPackageDataset(context.Background(), client.UploadParams{
		PackageID:   id,
		FileName:    "a.bin",
		FileSize:    3,
		ContentType: "application/octet-stream",
		Body:        bytes.NewReader([]byte{1, 2, 3}),
	})
	require.NoError(t, err)

	// create, register, confirm
	assert.Equal(t, 3, obs.requests)
	assert.Equal(t, 1, obs.uploads)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/octet-stream", client.DetectContentType("README"))
	assert.Equal(t, "application/octet-stream", client.DetectContentType("data.unknownext"))
	assert.Equal(t, "application/json", client.DetectContentType("a/b.json"))
}
