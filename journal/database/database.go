// Package database connects the upload journal to its configured backend.
package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/datalake/journal"
	"github.com/sagarc03/datalake/journal/postgres"
	"github.com/sagarc03/datalake/journal/sqlite"
)

// Config holds the configuration for connecting to a journal backend.
type Config struct {
	// Type is "sqlite" or "postgres".
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name.
	DSN string `mapstructure:"dsn" validate:"required"`
	// Table is the journal table name.
	Table string `mapstructure:"table" validate:"required"`
}

// Connect opens the configured backend, runs migrations, validates the
// schema and returns a Repo. The cleanup function closes the connection.
func Connect(ctx context.Context, cfg Config) (journal.Repo, func(), error) {
	table := cfg.Table
	if table == "" {
		table = journal.DefaultTable
	}
	if err := journal.ValidateTable(table); err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	switch cfg.Type {
	case "sqlite":
		return connectSQLite(ctx, cfg.DSN, table)
	case "postgres":
		return connectPostgres(ctx, cfg.DSN, table)
	default:
		return nil, nil, fmt.Errorf("unsupported journal type: %s", cfg.Type)
	}
}

func connectSQLite(ctx context.Context, dsn, table string) (journal.Repo, func(), error) {
	db, err := sqlite.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err = sqlite.Migrate(ctx, db, table); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	if err = sqlite.ValidateSchema(ctx, db, table); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	repo, err := sqlite.NewRepo(db, table)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("create sqlite repo: %w", err)
	}

	return repo, func() { _ = db.Close() }, nil
}

func connectPostgres(ctx context.Context, dsn, table string) (journal.Repo, func(), error) {
	pool, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err = postgres.Migrate(ctx, pool, table); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	if err = postgres.ValidateSchema(ctx, pool, table); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	repo, err := postgres.NewRepo(pool, table)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("create postgres repo: %w", err)
	}

	return repo, pool.Close, nil
}
