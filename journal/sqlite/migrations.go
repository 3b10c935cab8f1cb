package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/datalake/journal"
)

func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

// Migrate creates the journal table and its indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB, table string) error {
	if err := journal.ValidateTable(table); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	quotedTable := quoteIdentifier(table)
	indexOrphans := quoteIdentifier(fmt.Sprintf("idx_%s_orphans", table))
	indexList := quoteIdentifier(fmt.Sprintf("idx_%s_list", table))

	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT NOT NULL PRIMARY KEY,
			package_id TEXT NOT NULL,
			dataset_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL,
			size INTEGER NOT NULL,
			content_type TEXT NOT NULL,
			state TEXT NOT NULL,
			stage TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			cleaned_up_at TEXT
		)
	`, quotedTable)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("migrate: create table: %w", err)
	}

	indexSQL := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s (state, cleaned_up_at)
	`, indexOrphans, quotedTable)

	if _, err := db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("migrate: create index orphans: %w", err)
	}

	indexSQL = fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s ON %s (created_at, id)
	`, indexList, quotedTable)

	if _, err := db.ExecContext(ctx, indexSQL); err != nil {
		return fmt.Errorf("migrate: create index list: %w", err)
	}

	return nil
}

// DropTable removes the journal table.
func DropTable(ctx context.Context, db *sql.DB, table string) error {
	if err := journal.ValidateTable(table); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(table)))
	return err
}
