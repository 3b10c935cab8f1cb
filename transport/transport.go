package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/datalake"
)

const (
	// DefaultPort is the port the data lake API listens on.
	DefaultPort = 443

	// RequestIDHeader carries a per-call id for log correlation.
	RequestIDHeader = "X-Request-Id"
)

// Doer is the subset of *http.Client used by the transport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer is notified once per Send.
type Observer interface {
	ObserveRequest(method string, statusCode int, err error, elapsed time.Duration)
}

// Request is one signed API call. Body may be nil; when set it is streamed to
// the connection as it is read.
type Request struct {
	Path   string
	Method string
	Body   io.Reader
	Token  string
}

// Response is whatever JSON the server returned, with its status code.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}

// Decode unmarshals the response body into v.
func (r Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Value returns the body as a generic JSON value. Numbers are json.Number so
// no precision is lost.
func (r Response) Value() (any, error) {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

// OK reports whether the status code is 2xx.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport sends signed requests to one API host.
type Transport struct {
	host     string
	baseURL  *url.URL
	client   Doer
	logger   *slog.Logger
	observer Observer
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient sets the client used for requests. Timeouts belong there.
// A nil client keeps the transport's own.
func WithHTTPClient(client Doer) Option {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithBaseURL sends requests to u instead of https://<host>:443. Used for
// local mocks and tests.
func WithBaseURL(u *url.URL) Option {
	return func(t *Transport) {
		t.baseURL = u
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithObserver sets a request observer.
func WithObserver(o Observer) Option {
	return func(t *Transport) {
		t.observer = o
	}
}

// New creates a Transport for host.
func New(host string, opts ...Option) (*Transport, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, &datalake.ConfigError{Field: "endpoint host"}
	}

	t := &Transport{
		host: host,
		baseURL: &url.URL{
			Scheme: "https",
			Host:   fmt.Sprintf("%s:%d", host, DefaultPort),
		},
		client: &http.Client{},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Host returns the API host the transport was built for.
func (t *Transport) Host() string {
	return t.host
}

// Send performs one HTTP exchange and returns the parsed response body.
//
// The status code is not interpreted: any well-formed JSON body resolves.
// A connection or read failure, or a body that is not JSON, is returned as a
// *datalake.TransportError.
func (t *Transport) Send(ctx context.Context, r Request) (resp Response, err error) {
	if r.Path == "" {
		return Response{}, fmt.Errorf("send: path is required: %w", datalake.ErrInvalidInput)
	}
	if r.Token == "" {
		return Response{}, fmt.Errorf("send: token is required: %w", datalake.ErrInvalidInput)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	requestID := uuid.NewString()
	defer func() {
		if t.observer != nil {
			t.observer.ObserveRequest(method, resp.StatusCode, err, time.Since(start))
		}
	}()

	target, err := t.resolve(r.Path)
	if err != nil {
		return Response{}, fmt.Errorf("send: %w", err)
	}

	body := r.Body
	if body == nil {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(datalake.AuthHeader, datalake.AuthHeaderValue(r.Token))
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := t.logger.With("request_id", requestID, "method", method, "path", r.Path)
	log.Debug("sending request")

	httpResp, err := t.client.Do(req)
	if err != nil {
		log.Debug("request failed", "err", err)
		return Response{}, t.wrap(method, r.Path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	// chunks are appended in arrival order
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, httpResp.Body); err != nil {
		log.Debug("reading response failed", "err", err, "status", httpResp.StatusCode)
		return Response{StatusCode: httpResp.StatusCode}, t.wrap(method, r.Path, fmt.Errorf("read response: %w", err))
	}

	if !json.Valid(buf.Bytes()) {
		log.Debug("response is not json", "status", httpResp.StatusCode, "bytes", buf.Len())
		return Response{StatusCode: httpResp.StatusCode}, t.wrap(method, r.Path, datalake.ErrMalformedResponse)
	}

	log.Debug("received response", "status", httpResp.StatusCode, "bytes", buf.Len())

	return Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       json.RawMessage(buf.Bytes()),
	}, nil
}

func (t *Transport) resolve(path string) (string, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, datalake.ErrInvalidInput)
	}
	u := *t.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + ref.Path
	u.RawPath = ""
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

func (t *Transport) wrap(method, path string, err error) error {
	return &datalake.TransportError{
		Method: method,
		Host:   t.host,
		Path:   path,
		Err:    err,
	}
}
