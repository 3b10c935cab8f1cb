package datalaketest

import (
	"net/http/httptest"
	"net/url"
	"testing"
)

// Credentials accepted by a Server started with default Config.
const (
	AccessKey    = "ak1"
	SecretKey    = "s3cr3t"
	EndpointHost = "api.example.com"
)

// Server is an API listening on a local httptest server.
type Server struct {
	API  *API
	HTTP *httptest.Server
}

// NewServer starts an API for the duration of the test. Unset EndpointHost
// and Keys default to the package credentials.
func NewServer(tb testing.TB, cfg Config) *Server {
	tb.Helper()

	if cfg.EndpointHost == "" {
		cfg.EndpointHost = EndpointHost
	}
	if cfg.Keys == nil {
		cfg.Keys = map[string]string{AccessKey: SecretKey}
	}

	api := New(cfg)
	srv := httptest.NewServer(api.Handler())
	tb.Cleanup(srv.Close)

	return &Server{API: api, HTTP: srv}
}

// URL returns the server's base URL.
func (s *Server) URL() *url.URL {
	u, _ := url.Parse(s.HTTP.URL)
	return u
}
