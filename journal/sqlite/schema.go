package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sagarc03/datalake/journal"
)

type columnInfo struct {
	dataType   string
	isNullable bool
}

var journalTableSchema = map[string]columnInfo{
	"id":            {"text", false},
	"package_id":    {"text", false},
	"dataset_id":    {"text", false},
	"name":          {"text", false},
	"size":          {"integer", false},
	"content_type":  {"text", false},
	"state":         {"text", false},
	"stage":         {"text", false},
	"error":         {"text", false},
	"created_at":    {"text", false},
	"updated_at":    {"text", false},
	"cleaned_up_at": {"text", true},
}

// ValidateSchema checks that table exists with the expected columns.
func ValidateSchema(ctx context.Context, db *sql.DB, table string) error {
	if err := journal.ValidateTable(table); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	var name string
	err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("validate schema: table %s does not exist", table)
	}
	if err != nil {
		return fmt.Errorf("validate schema: check table exists: %w", err)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdentifier(table)))
	if err != nil {
		return fmt.Errorf("validate schema: query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	actual := make(map[string]columnInfo)
	for rows.Next() {
		var cid, notNull, pk int
		var colName, dataType string
		var dflt sql.NullString

		if err := rows.Scan(&cid, &colName, &dataType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("validate schema: scan column: %w", err)
		}
		actual[colName] = columnInfo{
			dataType:   strings.ToLower(dataType),
			isNullable: notNull == 0,
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema: rows: %w", err)
	}

	var problems []string
	for col, want := range journalTableSchema {
		got, ok := actual[col]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("missing column %s", col))
		case got.dataType != want.dataType:
			problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", col, want.dataType, got.dataType))
		case got.isNullable != want.isNullable:
			problems = append(problems, fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", col, want.isNullable, got.isNullable))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("validate schema: table %s: %s", table, strings.Join(problems, "; "))
	}

	return nil
}
