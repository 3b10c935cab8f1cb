package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/sagarc03/datalake/upload"
)

// Recorder writes upload transitions to a Repo.
type Recorder struct {
	Repo Repo
	Now  func() time.Time
}

// NewRecorder creates a Recorder for repo.
func NewRecorder(repo Repo) *Recorder {
	return &Recorder{Repo: repo, Now: time.Now}
}

// RecordTransition upserts the entry for the transition's run.
func (r *Recorder) RecordTransition(ctx context.Context, t upload.Transition) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	e := Entry{
		ID:          t.RunID,
		PackageID:   t.PackageID,
		DatasetID:   t.DatasetID,
		Name:        t.Name,
		Size:        t.Size,
		ContentType: t.ContentType,
		State:       t.State,
		Stage:       t.Stage,
		UpdatedAt:   now().UTC(),
	}
	if t.Err != nil {
		e.Error = t.Err.Error()
	}

	if _, err := r.Repo.Record(ctx, e); err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}
