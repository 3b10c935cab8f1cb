package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/journal"
	"github.com/sagarc03/datalake/journal/sqlite"
	"github.com/sagarc03/datalake/upload"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestRepo creates a repo on a fresh table in an in-memory database.
func setupTestRepo(t *testing.T) journal.Repo {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	table := "uploads_" + getRandomString(t)
	require.NoError(t, sqlite.Migrate(ctx, db, table))
	require.NoError(t, sqlite.ValidateSchema(ctx, db, table))

	repo, err := sqlite.NewRepo(db, table)
	require.NoError(t, err)
	return repo
}

func newEntry(packageID string, state upload.State, stage datalake.Stage, datasetID string) journal.Entry {
	return journal.Entry{
		ID:          uuid.New(),
		PackageID:   packageID,
		DatasetID:   datasetID,
		Name:        "data.csv",
		Size:        1024,
		ContentType: "text/csv",
		State:       state,
		Stage:       stage,
	}
}

func TestRepo_Record(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	t.Run("insert", func(t *testing.T) {
		e := newEntry("p1", upload.StateCreated, "", "")
		got, err := repo.Record(ctx, e)
		require.NoError(t, err)

		assert.Equal(t, e.ID, got.ID)
		assert.Equal(t, "p1", got.PackageID)
		assert.Equal(t, int64(1024), got.Size)
		assert.Equal(t, upload.StateCreated, got.State)
		assert.False(t, got.CreatedAt.IsZero())
		assert.Nil(t, got.CleanedUpAt)
	})

	t.Run("update keeps created_at", func(t *testing.T) {
		e := newEntry("p1", upload.StateCreated, "", "")
		e.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		e.UpdatedAt = e.CreatedAt
		first, err := repo.Record(ctx, e)
		require.NoError(t, err)

		e.State = upload.StateRegistered
		e.Stage = datalake.StageRegister
		e.DatasetID = "d9"
		e.CreatedAt = time.Time{}
		e.UpdatedAt = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
		second, err := repo.Record(ctx, e)
		require.NoError(t, err)

		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
		assert.True(t, second.UpdatedAt.After(second.CreatedAt))
		assert.Equal(t, "d9", second.DatasetID)
		assert.Equal(t, upload.StateRegistered, second.State)
	})

	t.Run("assigns id", func(t *testing.T) {
		e := newEntry("p1", upload.StateCreated, "", "")
		e.ID = uuid.Nil
		got, err := repo.Record(ctx, e)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, got.ID)
	})
}

func TestRepo_Get_NotFound(t *testing.T) {
	repo := setupTestRepo(t)
	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, datalake.ErrNotFound)
}

func TestRepo_List_Pagination(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		e := newEntry("p1", upload.StateConfirmed, datalake.StageConfirm, fmt.Sprintf("d%d", i))
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		e.UpdatedAt = e.CreatedAt
		_, err := repo.Record(ctx, e)
		require.NoError(t, err)
	}
	_, err := repo.Record(ctx, newEntry("other", upload.StateConfirmed, datalake.StageConfirm, "x"))
	require.NoError(t, err)

	var seen []string
	q := journal.Query{PackageID: "p1", Limit: 2}
	for {
		res, err := repo.List(ctx, q)
		require.NoError(t, err)
		for _, e := range res.Items {
			seen = append(seen, e.DatasetID)
		}
		if res.NextCursor == "" {
			break
		}
		q.Cursor = res.NextCursor
	}

	assert.Equal(t, []string{"d0", "d1", "d2", "d3", "d4"}, seen)

	all, err := repo.List(ctx, journal.Query{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 6)

	_, err = repo.List(ctx, journal.Query{Cursor: "!!!"})
	assert.Error(t, err)
}

func TestRepo_Orphans(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	uploadFail := newEntry("p1", upload.StateFailed, datalake.StageUpload, "d1")
	confirmFail := newEntry("p1", upload.StateFailed, datalake.StageConfirm, "d2")
	registerFail := newEntry("p1", upload.StateFailed, datalake.StageRegister, "")
	done := newEntry("p1", upload.StateConfirmed, datalake.StageConfirm, "d3")

	for _, e := range []journal.Entry{uploadFail, confirmFail, registerFail, done} {
		_, err := repo.Record(ctx, e)
		require.NoError(t, err)
	}

	res, err := repo.ListOrphans(ctx, journal.Query{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	ids := []uuid.UUID{res.Items[0].ID, res.Items[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{uploadFail.ID, confirmFail.ID}, ids)

	require.NoError(t, repo.MarkCleanedUp(ctx, uploadFail.ID))

	res, err = repo.ListOrphans(ctx, journal.Query{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, confirmFail.ID, res.Items[0].ID)

	got, err := repo.Get(ctx, uploadFail.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CleanedUpAt)

	t.Run("twice", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkCleanedUp(ctx, uploadFail.ID), datalake.ErrNotFound)
	})

	t.Run("not an orphan", func(t *testing.T) {
		assert.ErrorIs(t, repo.MarkCleanedUp(ctx, done.ID), datalake.ErrNotFound)
		assert.ErrorIs(t, repo.MarkCleanedUp(ctx, registerFail.ID), datalake.ErrNotFound)
	})
}

func TestValidateSchema(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	t.Run("missing table", func(t *testing.T) {
		err := sqlite.ValidateSchema(ctx, db, "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("wrong columns", func(t *testing.T) {
		_, err := db.ExecContext(ctx, `CREATE TABLE wrong (id TEXT NOT NULL, size TEXT)`)
		require.NoError(t, err)

		err = sqlite.ValidateSchema(ctx, db, "wrong")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing column package_id")
		assert.Contains(t, err.Error(), "size: expected integer, got text")
	})

	t.Run("invalid name", func(t *testing.T) {
		assert.Error(t, sqlite.Migrate(ctx, db, "Bad-Name"))
		_, err := sqlite.NewRepo(db, "Bad-Name")
		assert.Error(t, err)
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		require.NoError(t, sqlite.Migrate(ctx, db, "twice"))
		require.NoError(t, sqlite.Migrate(ctx, db, "twice"))
		require.NoError(t, sqlite.ValidateSchema(ctx, db, "twice"))
		require.NoError(t, sqlite.DropTable(ctx, db, "twice"))
		assert.Error(t, sqlite.ValidateSchema(ctx, db, "twice"))
	})
}
