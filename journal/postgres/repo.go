package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/journal"
	"github.com/sagarc03/datalake/upload"
)

const selectColumns = `id, package_id, dataset_id, name, size, content_type, state, stage, error, created_at, updated_at, cleaned_up_at`

const orphanCondition = `state = 'failed' AND stage IN ('upload', 'confirm') AND dataset_id <> '' AND cleaned_up_at IS NULL`

type repo struct {
	pool      *pgxpool.Pool
	tableName string
}

func (r *repo) Record(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = e.UpdatedAt
	}

	query := fmt.Sprintf( //nolint:gosec // G201: table name is sanitized
		`INSERT INTO %s (id, package_id, dataset_id, name, size, content_type, state, stage, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			dataset_id = EXCLUDED.dataset_id,
			state = EXCLUDED.state,
			stage = EXCLUDED.stage,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
		RETURNING %s`, r.tableName, selectColumns)

	out, err := scanEntry(r.pool.QueryRow(ctx, query,
		e.ID, e.PackageID, e.DatasetID, e.Name, e.Size, e.ContentType,
		string(e.State), string(e.Stage), e.Error,
		e.CreatedAt.UTC(), e.UpdatedAt.UTC(),
	))
	if err != nil {
		return journal.Entry{}, fmt.Errorf("record: %w", err)
	}
	return out, nil
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (journal.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, selectColumns, r.tableName) //nolint:gosec // table name is sanitized

	e, err := scanEntry(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return journal.Entry{}, fmt.Errorf("get: %w", datalake.ErrNotFound)
		}
		return journal.Entry{}, fmt.Errorf("get: %w", err)
	}
	return e, nil
}

func (r *repo) List(ctx context.Context, q journal.Query) (journal.ListResult, error) {
	return r.listWithCondition(ctx, q, "TRUE", "list")
}

func (r *repo) ListOrphans(ctx context.Context, q journal.Query) (journal.ListResult, error) {
	return r.listWithCondition(ctx, q, orphanCondition, "list orphans")
}

func (r *repo) listWithCondition(ctx context.Context, q journal.Query, whereCondition, opName string) (journal.ListResult, error) {
	q = q.Normalize()

	cursor, err := journal.DecodeCursor(q.Cursor)
	if err != nil {
		return journal.ListResult{}, fmt.Errorf("%s: %w", opName, err)
	}

	where := whereCondition
	var args []any

	if q.PackageID != "" {
		args = append(args, q.PackageID)
		where += fmt.Sprintf(" AND package_id = $%d", len(args))
	}
	if q.Cursor != "" {
		args = append(args, cursor.CreatedAt, cursor.ID)
		where += fmt.Sprintf(" AND (created_at, id) > ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, q.Limit+1)

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY created_at, id
		LIMIT $%d
	`, selectColumns, r.tableName, where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return journal.ListResult{}, fmt.Errorf("%s: %w", opName, err)
	}
	defer rows.Close()

	items := make([]journal.Entry, 0, q.Limit)
	for rows.Next() {
		e, scanErr := scanEntry(rows)
		if scanErr != nil {
			return journal.ListResult{}, fmt.Errorf("%s: scan: %w", opName, scanErr)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return journal.ListResult{}, fmt.Errorf("%s: rows: %w", opName, err)
	}

	return journal.Page(items, q.Limit), nil
}

func (r *repo) MarkCleanedUp(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is sanitized
		`UPDATE %s
		SET cleaned_up_at = NOW()
		WHERE id = $1 AND %s`, r.tableName, orphanCondition)

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark cleaned up: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark cleaned up: %w", datalake.ErrNotFound)
	}
	return nil
}

func scanEntry(row pgx.Row) (journal.Entry, error) {
	var e journal.Entry
	var state, stage string

	if err := row.Scan(
		&e.ID, &e.PackageID, &e.DatasetID, &e.Name, &e.Size, &e.ContentType,
		&state, &stage, &e.Error, &e.CreatedAt, &e.UpdatedAt, &e.CleanedUpAt,
	); err != nil {
		return journal.Entry{}, err
	}
	e.State = upload.State(state)
	e.Stage = datalake.Stage(stage)
	return e, nil
}
