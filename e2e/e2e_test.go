package e2e_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/datalake/journal"
)

type uploadOutput struct {
	LocalPath string          `json:"local_path"`
	PackageID string          `json:"package_id"`
	DatasetID string          `json:"dataset_id"`
	Size      int64           `json:"size_bytes"`
	Record    json.RawMessage `json:"record"`
	Stage     string          `json:"failed_stage"`
	Error     string          `json:"error"`
}

func (e *Env) upload(packageID string, paths ...string) ([]uploadOutput, Result) {
	e.t.Helper()

	res := e.run(append([]string{"dataset", "upload", packageID}, paths...)...)
	var out []uploadOutput
	require.NoError(e.t, json.Unmarshal(res.Stdout, &out), "decode upload output: %s (stderr: %s)", res.Stdout, res.Stderr)
	return out, res
}

func (e *Env) orphans(packageID string) []journal.Entry {
	e.t.Helper()

	res := e.run("dataset", "orphans", "--package", packageID)
	require.Equal(e.t, 0, res.ExitCode, res.Stderr)

	var out struct {
		Items []journal.Entry `json:"items"`
	}
	require.NoError(e.t, json.Unmarshal(res.Stdout, &out))
	return out.Items
}

func createPackage(t *testing.T, e *Env, name string) string {
	t.Helper()
	body := e.call("package", "create", name, "--description", "e2e package")
	id, _ := body["package_id"].(string)
	require.NotEmpty(t, id)
	return id
}

// TestE2E_PackageLifecycle exercises every non-upload command against the
// mock API.
func TestE2E_PackageLifecycle(t *testing.T) {
	e := newEnv(t, MockConfig{}, JournalConfig{})

	var pkgID string

	t.Run("create package", func(t *testing.T) {
		pkgID = createPackage(t, e, "ocean temperatures")
	})

	t.Run("update and describe", func(t *testing.T) {
		e.call("package", "update", pkgID, "--description", "sea surface readings")

		body := e.call("package", "describe", pkgID)
		assert.Equal(t, "ocean temperatures", body["name"])
		assert.Equal(t, "sea surface readings", body["description"])
	})

	t.Run("metadata", func(t *testing.T) {
		e.call("metadata", "create", pkgID, `{"title":"Ocean temperatures","license":"CC-BY-4.0"}`)

		body := e.call("metadata", "describe", pkgID)
		md, ok := body["metadata"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "CC-BY-4.0", md["license"])

		body = e.call("metadata", "required")
		assert.Contains(t, body["required_metadata"], "title")
	})

	t.Run("search", func(t *testing.T) {
		res := e.run("search", "ocean", "salinity")
		require.Equal(t, 0, res.ExitCode, res.Stderr)

		var resp response
		require.NoError(t, json.Unmarshal(res.Stdout, &resp))
		var hits []map[string]any
		require.NoError(t, json.Unmarshal(resp.Body, &hits))
		require.Len(t, hits, 1)
		assert.Equal(t, pkgID, hits[0]["package_id"])
	})

	t.Run("cart", func(t *testing.T) {
		body := e.call("cart", "add", pkgID)
		itemID, _ := body["cart_item_id"].(string)
		require.NotEmpty(t, itemID)

		e.call("cart", "describe")
		e.call("cart", "item", itemID)
		e.call("cart", "checkout", "--format", "bucket-key")
		e.call("cart", "remove", itemID)

		res := e.run("cart", "item", itemID)
		assert.Equal(t, 1, res.ExitCode)
	})

	t.Run("delete package", func(t *testing.T) {
		e.call("package", "delete", pkgID)

		res := e.run("package", "describe", pkgID)
		assert.Equal(t, 1, res.ExitCode)

		var errOut map[string]any
		require.NoError(t, json.Unmarshal([]byte(res.Stderr), &errOut), res.Stderr)
		assert.Equal(t, float64(404), errOut["status_code"])
	})
}

func TestE2E_Upload_SQLite(t *testing.T) {
	runUploadTests(t, JournalConfig{Type: "sqlite"})
}

func TestE2E_Upload_Postgres(t *testing.T) {
	runUploadTests(t, JournalConfig{Type: "postgres", DSN: getSharedPostgresDatabase(t)})
}

func runUploadTests(t *testing.T, jc JournalConfig) {
	t.Helper()
	e := newEnv(t, MockConfig{}, jc)
	pkgID := createPackage(t, e, "uploads")

	a := e.writeFile("readings.json", `{"t":1}`)
	b := e.writeFile("notes.txt", "calibrated")

	out, res := e.upload(pkgID, a, b)
	require.Equal(t, 0, res.ExitCode, res.Stderr)
	require.Len(t, out, 2)

	for _, o := range out {
		assert.Empty(t, o.Error)
		assert.NotEmpty(t, o.DatasetID)

		var record map[string]any
		require.NoError(t, json.Unmarshal(o.Record, &record))
		assert.Equal(t, "uploaded", record["status"])
	}
	assert.Equal(t, int64(7), out[0].Size)

	body := e.call("dataset", "describe", pkgID, out[0].DatasetID)
	assert.Equal(t, "application/json", body["content_type"])
	assert.Equal(t, float64(7), body["size"])

	assert.Empty(t, e.orphans(pkgID))

	e.call("dataset", "delete", pkgID, out[1].DatasetID)
}

func TestE2E_UploadFailureAndCleanup(t *testing.T) {
	e := newEnv(t, MockConfig{FailStages: []string{"upload"}}, JournalConfig{})
	pkgID := createPackage(t, e, "failing")

	out, res := e.upload(pkgID, e.writeFile("a.csv", "x,y\n1,2\n"))
	assert.Equal(t, 1, res.ExitCode)
	require.Len(t, out, 1)
	assert.Equal(t, "upload", out[0].Stage)
	require.NotEmpty(t, out[0].DatasetID, "registered dataset id is reported")

	orphans := e.orphans(pkgID)
	require.Len(t, orphans, 1)
	assert.Equal(t, out[0].DatasetID, orphans[0].DatasetID)
	assert.Equal(t, "a.csv", orphans[0].Name)

	res = e.run("dataset", "cleanup", "--package", pkgID, "--yes")
	require.Equal(t, 0, res.ExitCode, res.Stderr)

	var cleanup struct {
		Results []struct {
			DatasetID string `json:"dataset_id"`
			Cleaned   bool   `json:"cleaned"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(res.Stdout, &cleanup))
	require.Len(t, cleanup.Results, 1)
	assert.True(t, cleanup.Results[0].Cleaned)

	assert.Empty(t, e.orphans(pkgID))
}

func TestE2E_RegisterFailureLeavesNothingBehind(t *testing.T) {
	e := newEnv(t, MockConfig{FailStages: []string{"register"}}, JournalConfig{})
	pkgID := createPackage(t, e, "no-register")

	out, res := e.upload(pkgID, e.writeFile("a.csv", "1"))
	assert.Equal(t, 1, res.ExitCode)
	require.Len(t, out, 1)
	assert.Equal(t, "register", out[0].Stage)
	assert.Empty(t, out[0].DatasetID)

	assert.Empty(t, e.orphans(pkgID))
}

func TestE2E_NoJournal(t *testing.T) {
	e := newEnv(t, MockConfig{FailStages: []string{"confirm"}}, JournalConfig{})
	pkgID := createPackage(t, e, "unjournaled")

	res := e.run("--no-journal", "dataset", "upload", pkgID, e.writeFile("a.csv", "1"))
	assert.Equal(t, 1, res.ExitCode)

	assert.Empty(t, e.orphans(pkgID))
}

func TestE2E_Auth(t *testing.T) {
	e := newEnv(t, MockConfig{}, JournalConfig{})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		res := e.run("--secret-key", "wrong", "metadata", "required")
		assert.Equal(t, 1, res.ExitCode)

		var resp response
		require.NoError(t, json.Unmarshal(res.Stdout, &resp))
		assert.Equal(t, 403, resp.StatusCode)
	})

	t.Run("wrong endpoint host is rejected", func(t *testing.T) {
		res := e.run("--endpoint-host", "other.test", "metadata", "required")
		assert.Equal(t, 1, res.ExitCode)
	})

	t.Run("sign prints a token", func(t *testing.T) {
		res := e.run("sign")
		require.Equal(t, 0, res.ExitCode, res.Stderr)

		var out map[string]string
		require.NoError(t, json.Unmarshal(res.Stdout, &out))
		assert.NotEmpty(t, out["token"])
	})
}
