package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/journal"
	"github.com/sagarc03/datalake/upload"
)

// timeFormat is fixed width so text ordering matches time ordering.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `id, package_id, dataset_id, name, size, content_type, state, stage, error, created_at, updated_at, cleaned_up_at`

const orphanCondition = `state = 'failed' AND stage IN ('upload', 'confirm') AND dataset_id <> '' AND cleaned_up_at IS NULL`

type repo struct {
	db        *sql.DB
	tableName string
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
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

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, package_id, dataset_id, name, size, content_type, state, stage, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			dataset_id = excluded.dataset_id,
			state = excluded.state,
			stage = excluded.stage,
			error = excluded.error,
			updated_at = excluded.updated_at`, r.tableName)

	_, err := r.db.ExecContext(ctx, query,
		e.ID.String(), e.PackageID, e.DatasetID, e.Name, e.Size, e.ContentType,
		string(e.State), string(e.Stage), e.Error,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("record: %w", err)
	}

	return r.Get(ctx, e.ID)
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (journal.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, selectColumns, r.tableName) //nolint:gosec // table name is validated

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return journal.Entry{}, fmt.Errorf("get: %w", datalake.ErrNotFound)
		}
		return journal.Entry{}, fmt.Errorf("get: %w", err)
	}
	return e, nil
}

func (r *repo) List(ctx context.Context, q journal.Query) (journal.ListResult, error) {
	return r.listWithCondition(ctx, q, "1 = 1", "list")
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
		where += " AND package_id = ?"
		args = append(args, q.PackageID)
	}
	if q.Cursor != "" {
		where += " AND (created_at, id) > (?, ?)"
		args = append(args, formatTime(cursor.CreatedAt), cursor.ID.String())
	}
	args = append(args, q.Limit+1)

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY created_at, id
		LIMIT ?
	`, selectColumns, r.tableName, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return journal.ListResult{}, fmt.Errorf("%s: %w", opName, err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]journal.Entry, 0, q.Limit)
	for rows.Next() {
		e, scanErr := scanEntry(rows)
		if scanErr != nil {
			return journal.ListResult{}, fmt.Errorf("%s: %w", opName, scanErr)
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return journal.ListResult{}, fmt.Errorf("%s: rows: %w", opName, err)
	}

	return journal.Page(items, q.Limit), nil
}

func (r *repo) MarkCleanedUp(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET cleaned_up_at = ?
		WHERE id = ? AND %s`, r.tableName, orphanCondition)

	result, err := r.db.ExecContext(ctx, query, formatTime(time.Now()), id.String())
	if err != nil {
		return fmt.Errorf("mark cleaned up: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark cleaned up: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("mark cleaned up: %w", datalake.ErrNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (journal.Entry, error) {
	var e journal.Entry
	var idStr, state, stage, createdAt, updatedAt string
	var cleanedUpAt sql.NullString

	if err := s.Scan(
		&idStr, &e.PackageID, &e.DatasetID, &e.Name, &e.Size, &e.ContentType,
		&state, &stage, &e.Error, &createdAt, &updatedAt, &cleanedUpAt,
	); err != nil {
		return journal.Entry{}, err
	}

	var err error
	if e.ID, err = uuid.Parse(idStr); err != nil {
		return journal.Entry{}, fmt.Errorf("parse id: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return journal.Entry{}, fmt.Errorf("parse created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return journal.Entry{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if cleanedUpAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, cleanedUpAt.String)
		if err != nil {
			return journal.Entry{}, fmt.Errorf("parse cleaned_up_at: %w", err)
		}
		e.CleanedUpAt = &t
	}
	e.State = upload.State(state)
	e.Stage = datalake.Stage(stage)

	return e, nil
}
