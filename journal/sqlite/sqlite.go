// Package sqlite implements the journal repo using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/datalake/journal"

	_ "modernc.org/sqlite" // SQLite driver
)

// Open opens dsn and limits the pool to one connection, so ":memory:"
// databases are shared by every query.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// NewRepo returns a journal.Repo on table. The table must already exist.
func NewRepo(db *sql.DB, table string) (journal.Repo, error) {
	if err := journal.ValidateTable(table); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}
	return &repo{db: db, tableName: quoteIdentifier(table)}, nil
}
