package journal

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/upload"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "datalake_uploads"

// DefaultLimit is the page size used when a query sets none.
const DefaultLimit = 100

// Entry is the journalled state of one upload run.
type Entry struct {
	ID          uuid.UUID      `json:"id"`
	PackageID   string         `json:"package_id"`
	DatasetID   string         `json:"dataset_id,omitempty"`
	Name        string         `json:"name"`
	Size        int64          `json:"size"`
	ContentType string         `json:"content_type"`
	State       upload.State   `json:"state"`
	Stage       datalake.Stage `json:"stage,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CleanedUpAt *time.Time     `json:"cleaned_up_at,omitempty"`
}

// Orphan reports whether the entry left a registered dataset behind.
func (e Entry) Orphan() bool {
	return e.State == upload.StateFailed &&
		(e.Stage == datalake.StageUpload || e.Stage == datalake.StageConfirm) &&
		e.DatasetID != "" &&
		e.CleanedUpAt == nil
}

// Query selects a page of entries. PackageID is optional.
type Query struct {
	PackageID string
	Limit     int
	Cursor    string
}

// Normalize applies the default limit.
func (q Query) Normalize() Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// ListResult is one page of entries.
type ListResult struct {
	Items      []Entry `json:"items"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// Repo stores journal entries.
type Repo interface {
	// Record inserts e, or updates the entry with the same ID. CreatedAt is
	// kept from the first write.
	Record(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id uuid.UUID) (Entry, error)
	List(ctx context.Context, q Query) (ListResult, error)
	// ListOrphans returns failed uploads whose registered dataset has not
	// been cleaned up.
	ListOrphans(ctx context.Context, q Query) (ListResult, error)
	MarkCleanedUp(ctx context.Context, id uuid.UUID) error
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateTable checks that name can be used unquoted as a table name.
func ValidateTable(name string) error {
	if name == "" {
		return errors.New("validate table: name cannot be empty")
	}
	if !validTableNameRegex.MatchString(name) || len(name) > 63 {
		return fmt.Errorf("validate table: invalid name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", name)
	}
	return nil
}

// Cursor is the position after the last entry of a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// EncodeCursor encodes a page position.
func EncodeCursor(createdAt time.Time, id uuid.UUID) string {
	data := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id.String()
	return base64.URLEncoding.EncodeToString([]byte(data))
}

// DecodeCursor decodes a cursor produced by EncodeCursor. An empty string is
// the zero Cursor.
func DecodeCursor(cursor string) (Cursor, error) {
	if cursor == "" {
		return Cursor{}, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid encoding: %w", err)
	}

	ts, rawID, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return Cursor{}, errors.New("decode cursor: invalid format")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid timestamp: %w", err)
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: invalid id: %w", err)
	}

	return Cursor{CreatedAt: createdAt, ID: id}, nil
}

// Page trims items fetched with limit+1 to limit and computes the next cursor.
func Page(items []Entry, limit int) ListResult {
	if len(items) <= limit {
		return ListResult{Items: items}
	}
	last := items[limit-1]
	return ListResult{
		Items:      items[:limit],
		NextCursor: EncodeCursor(last.CreatedAt, last.ID),
	}
}
