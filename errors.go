package datalake

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfiguration is matched by every *ConfigError.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("transport error")
	// ErrMalformedResponse is returned when a response body is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrInvalidInput is returned when a call is made with missing or invalid parameters.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is returned when a token fails verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrPlanConsumed is returned when an upload plan is run a second time.
	ErrPlanConsumed = errors.New("upload plan already consumed")
)

// ConfigError reports a missing or empty required setting. It is raised at
// construction time only.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %s is required", e.Field)
}

// Is reports whether target is ErrConfiguration or a ConfigError for the same field.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfiguration {
		return true
	}
	var t *ConfigError
	if errors.As(target, &t) {
		return t.Field == e.Field
	}
	return false
}

// TransportError wraps a connection-level failure or an unparseable response.
type TransportError struct {
	Method string
	Host   string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s%s: %v", e.Method, e.Host, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Stage names a step of the upload protocol.
type Stage string

const (
	StageRegister Stage = "register"
	StageUpload   Stage = "upload"
	StageConfirm  Stage = "confirm"
)

// StageError is the terminal failure of an upload. DatasetID is set once the
// register step has succeeded.
type StageError struct {
	Stage     Stage
	DatasetID string
	Err       error
}

func (e *StageError) Error() string {
	if e.DatasetID != "" {
		return fmt.Sprintf("upload failed at %s (dataset %s): %v", e.Stage, e.DatasetID, e.Err)
	}
	return fmt.Sprintf("upload failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// RemoteSideEffect reports whether a dataset record exists on the server
// despite the failure. Only a register failure leaves nothing behind.
func (e *StageError) RemoteSideEffect() bool {
	return e.Stage != StageRegister
}

// FailedAt reports whether err is a StageError for the given stage.
func FailedAt(err error, stage Stage) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}

// APIError is a well-formed JSON response with a non-2xx status. The transport
// never produces it; callers that want strict status handling build one with
// the response they got back.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("api error: status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("api error: status %d", e.StatusCode)
}

// Message returns the "message" or "error" field of the body, if any.
func (e *APIError) Message() string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// Is maps well-known statuses onto the shared sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}
