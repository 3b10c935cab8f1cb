package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/datalake/journal"
	"github.com/sagarc03/datalake/journal/database"
	"github.com/sagarc03/datalake/upload"
)

func TestConnect_SQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "journal.db")

	repo, cleanup, err := database.Connect(ctx, database.Config{Type: "sqlite", DSN: dsn})
	require.NoError(t, err)

	e, err := repo.Record(ctx, journal.Entry{
		ID:          uuid.New(),
		PackageID:   "p1",
		Name:        "a.txt",
		ContentType: "text/plain",
		State:       upload.StateCreated,
	})
	require.NoError(t, err)
	cleanup()

	// reopening runs migrations against the existing table
	repo, cleanup, err = database.Connect(ctx, database.Config{Type: "sqlite", DSN: dsn, Table: journal.DefaultTable})
	require.NoError(t, err)
	defer cleanup()

	got, err := repo.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got.Name)
}

func TestConnect_InvalidType(t *testing.T) {
	_, _, err := database.Connect(context.Background(), database.Config{Type: "mysql", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported journal type")
}

func TestConnect_InvalidTable(t *testing.T) {
	_, _, err := database.Connect(context.Background(), database.Config{Type: "sqlite", DSN: ":memory:", Table: "drop table;"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid name")
}
