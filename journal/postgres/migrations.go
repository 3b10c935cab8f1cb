package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/datalake/journal"
)

// Migrate creates the journal table and its indexes if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, table string) error {
	if err := journal.ValidateTable(table); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	quotedTable := pgx.Identifier{table}.Sanitize()
	indexOrphans := pgx.Identifier{fmt.Sprintf("idx_%s_orphans", table)}.Sanitize()
	indexList := pgx.Identifier{fmt.Sprintf("idx_%s_list", table)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			package_id TEXT NOT NULL,
			dataset_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			size BIGINT NOT NULL,
			content_type TEXT NOT NULL,
			state TEXT NOT NULL,
			stage TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			cleaned_up_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (created_at, id)
		WHERE (state = 'failed' AND cleaned_up_at IS NULL);

		CREATE INDEX IF NOT EXISTS %s
		ON %s (created_at, id);
	`,
		quotedTable,
		indexOrphans, quotedTable,
		indexList, quotedTable,
	)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("migrate: create journal table: %w", err)
	}
	return nil
}

// DropTable removes the journal table.
func DropTable(ctx context.Context, pool *pgxpool.Pool, table string) error {
	if err := journal.ValidateTable(table); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", pgx.Identifier{table}.Sanitize()))
	return err
}
