package client

import (
	"errors"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/transport"
)

// Errors for profile operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrNoProfiles      = errors.New("no profiles configured")
	ErrProfileExists   = errors.New("profile already exists")
)

// ErrConfigRequired is returned by New when cfg is nil.
var ErrConfigRequired = errors.New("config is required")

// ErrJournalRequired is returned by journal operations on a client built
// without WithJournal.
var ErrJournalRequired = errors.New("upload journal is not configured")

// APIError is a JSON response with a non-2xx status.
type APIError = datalake.APIError

// CheckStatus returns an *APIError for a response with status >= 400 and nil
// otherwise. Resource methods never call it; callers opt in.
func CheckStatus(resp transport.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	return &APIError{StatusCode: resp.StatusCode, Body: resp.Body}
}
