package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sagarc03/datalake/journal"
)

// CleanupResult is the outcome for one orphaned dataset.
type CleanupResult struct {
	Entry journal.Entry
	// Gone is set when the dataset no longer existed on the server.
	Gone bool
	Err  error
}

// ListOrphans returns journalled uploads that left a registered dataset
// behind. packageID is optional.
func (c *Client) ListOrphans(ctx context.Context, packageID string) ([]journal.Entry, error) {
	if c.journal == nil {
		return nil, ErrJournalRequired
	}

	var out []journal.Entry
	q := journal.Query{PackageID: packageID}
	for {
		page, err := c.journal.ListOrphans(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list orphans: %w", err)
		}
		out = append(out, page.Items...)
		if page.NextCursor == "" {
			return out, nil
		}
		q.Cursor = page.NextCursor
	}
}

// CleanupOrphans deletes every orphaned dataset and marks its journal entry
// cleaned up. A dataset the server no longer has counts as cleaned. Per
// dataset failures are reported in the results and do not stop the run.
func (c *Client) CleanupOrphans(ctx context.Context, packageID string) ([]CleanupResult, error) {
	orphans, err := c.ListOrphans(ctx, packageID)
	if err != nil {
		return nil, err
	}

	results := make([]CleanupResult, 0, len(orphans))
	for _, e := range orphans {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, c.cleanup(ctx, e))
	}
	return results, nil
}

func (c *Client) cleanup(ctx context.Context, e journal.Entry) CleanupResult {
	res := CleanupResult{Entry: e}
	log := c.logger.With("entry_id", e.ID, "package_id", e.PackageID, "dataset_id", e.DatasetID)

	resp, err := c.DeletePackageDataset(ctx, DatasetParams{PackageID: e.PackageID, DatasetID: e.DatasetID})
	if err != nil {
		res.Err = err
		return res
	}
	if err := CheckStatus(resp); err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			res.Err = err
			return res
		}
		res.Gone = true
	}

	if err := c.journal.MarkCleanedUp(ctx, e.ID); err != nil {
		res.Err = fmt.Errorf("mark cleaned up: %w", err)
		return res
	}
	log.Info("orphaned dataset cleaned up", "gone", res.Gone)
	return res
}

// HasCleanupErrors reports whether any dataset could not be cleaned up.
func HasCleanupErrors(results []CleanupResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}
