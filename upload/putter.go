package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sagarc03/datalake"
)

// Putter streams bytes to a one-time upload URL.
type Putter interface {
	Put(ctx context.Context, url string, body io.Reader, size int64, contentType string) error
}

// HTTPPutter is the default Putter. The URL is pre-authorized, so no Auth
// header is sent.
type HTTPPutter struct {
	Client *http.Client
}

// RejectedError is returned when the upload URL answers with a non-2xx status.
type RejectedError struct {
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("upload rejected with status %d", e.StatusCode)
}

// Put sends body with Content-Type and Content-Length set from the plan. A
// zero size sends an empty body and fails if body has any bytes, so the
// request never falls back to chunked encoding.
func (p HTTPPutter) Put(ctx context.Context, url string, body io.Reader, size int64, contentType string) error {
	client := p.Client
	if client == nil {
		client = &http.Client{}
	}

	if size == 0 {
		var one [1]byte
		n, err := io.ReadFull(body, one[:])
		if n > 0 {
			return fmt.Errorf("body is longer than the declared size 0: %w", datalake.ErrInvalidInput)
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read body: %w", err)
		}
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RejectedError{StatusCode: resp.StatusCode}
	}
	return nil
}
