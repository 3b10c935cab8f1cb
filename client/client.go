package client

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

	"github.com/go-playground/validator/v10"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/journal"
	"github.com/sagarc03/datalake/transport"
	"github.com/sagarc03/datalake/upload"
)

// DefaultTimeout is the HTTP client timeout used when no client is supplied.
const DefaultTimeout = 30 * time.Second

var validate = validator.New()

// Observer receives request and upload outcomes. *metrics.Metrics
// implements it.
type Observer interface {
	transport.Observer
	upload.Observer
}

// Client calls the data lake API with one set of credentials.
type Client struct {
	signer    *datalake.Signer
	transport *transport.Transport
	uploader  *upload.Orchestrator
	journal   journal.Repo

	httpClient *http.Client
	timeout    *time.Duration
	putter     upload.Putter
	clock      func() time.Time
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API calls and uploads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout. It is applied to a copy of the
// client, so a client passed to WithHTTPClient is never modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = &timeout
	}
}

// WithPutter replaces the uploader used for one-time upload URLs.
func WithPutter(p upload.Putter) Option {
	return func(c *Client) {
		c.putter = p
	}
}

// WithClock sets the signer's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.clock = now
	}
}

// WithObserver reports request and upload outcomes to obs.
func WithObserver(obs Observer) Option {
	return func(c *Client) {
		c.observer = obs
	}
}

// WithJournal records every upload transition in repo and enables
// CleanupOrphans.
func WithJournal(repo journal.Repo) Option {
	return func(c *Client) {
		c.journal = repo
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a client. Missing credentials are a *datalake.ConfigError.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		clock:      time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.timeout != nil {
		hc := *c.httpClient
		hc.Timeout = *c.timeout
		c.httpClient = &hc
	}

	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}
	c.signer, err = datalake.NewSigner(creds, datalake.WithClock(c.clock))
	if err != nil {
		return nil, err
	}

	topts := []transport.Option{
		transport.WithHTTPClient(c.httpClient),
		transport.WithLogger(c.logger),
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, &datalake.ConfigError{Field: "base url"}
		}
		topts = append(topts, transport.WithBaseURL(u))
	}
	if c.observer != nil {
		topts = append(topts, transport.WithObserver(c.observer))
	}
	c.transport, err = transport.New(creds.EndpointHost, topts...)
	if err != nil {
		return nil, err
	}

	if c.putter == nil {
		c.putter = upload.HTTPPutter{Client: c.httpClient}
	}
	uopts := []upload.Option{
		upload.WithPutter(c.putter),
		upload.WithLogger(c.logger),
	}
	if c.observer != nil {
		uopts = append(uopts, upload.WithObserver(c.observer))
	}
	if c.journal != nil {
		uopts = append(uopts, upload.WithRecorder(journal.NewRecorder(c.journal)))
	}
	c.uploader = upload.New(c.transport, c.signer, uopts...)

	return c, nil
}

// Signer returns the client's signer.
func (c *Client) Signer() *datalake.Signer {
	return c.signer
}

// Token returns a token for the current UTC day.
func (c *Client) Token() string {
	return c.signer.Token()
}

func (c *Client) send(ctx context.Context, method, path string, body any) (transport.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return transport.Response{}, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	return c.transport.Send(ctx, transport.Request{
		Path:   path,
		Method: method,
		Body:   r,
		Token:  c.signer.Token(),
	})
}

func validateParams(op string, params any) error {
	if err := validate.Struct(params); err != nil {
		return fmt.Errorf("%s: %w: %w", op, datalake.ErrInvalidInput, err)
	}
	return nil
}
