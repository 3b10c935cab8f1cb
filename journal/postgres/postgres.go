// Package postgres implements the journal repo using PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/datalake/journal"
)

// Open connects to dsn and pings the server.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// NewRepo returns a journal.Repo on table. The table must already exist.
func NewRepo(pool *pgxpool.Pool, table string) (journal.Repo, error) {
	if err := journal.ValidateTable(table); err != nil {
		return nil, fmt.Errorf("new repo: %w", err)
	}
	return &repo{pool: pool, tableName: pgx.Identifier{table}.Sanitize()}, nil
}
