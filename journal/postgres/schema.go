package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/datalake/journal"
)

type columnInfo struct {
	dataType   string
	isNullable bool
}

var journalTableSchema = map[string]columnInfo{
	"id":            {"uuid", false},
	"package_id":    {"text", false},
	"dataset_id":    {"text", false},
	"name":          {"text", false},
	"size":          {"bigint", false},
	"content_type":  {"text", false},
	"state":         {"text", false},
	"stage":         {"text", false},
	"error":         {"text", false},
	"created_at":    {"timestamp with time zone", false},
	"updated_at":    {"timestamp with time zone", false},
	"cleaned_up_at": {"timestamp with time zone", true},
}

// ValidateSchema checks that table exists with the expected columns.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, table string) error {
	if err := journal.ValidateTable(table); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}

	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			AND table_name = $1
		)
	`, table).Scan(&exists)
	if err != nil {
		return fmt.Errorf("validate schema: check table exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate schema: table %s does not exist", table)
	}

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
	`, table)
	if err != nil {
		return fmt.Errorf("validate schema: query columns: %w", err)
	}
	defer rows.Close()

	actual := make(map[string]columnInfo)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate schema: scan column: %w", err)
		}
		actual[name] = columnInfo{
			dataType:   strings.ToLower(dataType),
			isNullable: nullable == "YES",
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
