package upload

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"

	"github.com/sagarc03/datalake"
)

// DatasetType is the object type sent with every register call.
const DatasetType = "dataset"

// State is a step of the upload state machine.
type State string

const (
	StateCreated    State = "created"
	StateRegistered State = "registered"
	StateUploaded   State = "uploaded"
	StateConfirmed  State = "confirmed"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// Plan describes one dataset upload. Body is read exactly once; a Plan cannot
// be run a second time, whatever the outcome of the first run.
type Plan struct {
	PackageID   string
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader

	consumed atomic.Bool
}

// Validate checks the plan before any I/O.
func (p *Plan) Validate() error {
	switch {
	case p.PackageID == "":
		return fmt.Errorf("package id is required: %w", datalake.ErrInvalidInput)
	case p.Name == "":
		return fmt.Errorf("name is required: %w", datalake.ErrInvalidInput)
	case p.Size < 0:
		return fmt.Errorf("size must not be negative: %w", datalake.ErrInvalidInput)
	case p.ContentType == "":
		return fmt.Errorf("content type is required: %w", datalake.ErrInvalidInput)
	case p.Body == nil:
		return fmt.Errorf("body is required: %w", datalake.ErrInvalidInput)
	}
	return nil
}

// Consumed reports whether the plan has been handed to an orchestrator.
func (p *Plan) Consumed() bool {
	return p.consumed.Load()
}

// DatasetName is the name registered with the API: the base name of Name.
func (p *Plan) DatasetName() string {
	return filepath.Base(p.Name)
}

func (p *Plan) claim() bool {
	return p.consumed.CompareAndSwap(false, true)
}

// Result is the confirmed dataset record.
type Result struct {
	DatasetID string
	// Record is the body of the confirm response, as sent by the server.
	Record json.RawMessage
}

type registerRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	ContentType string `json:"content_type"`
}

type registerResponse struct {
	DatasetID string `json:"dataset_id"`
	UploadURL string `json:"uploadUrl"`
}
