package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/config"
	"github.com/sagarc03/datalake/datalaketest"
	"github.com/sagarc03/datalake/metrics"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run an in-memory data lake API",
	Long: `Run an in-memory data lake API for local testing.

Tokens are checked against --mock-host and the keys in mock.keys (settings
file) or --mock-keys-file. Without any keys the API accepts ak1/s3cr3t.
State is lost on exit. Prometheus metrics are served on /metrics.

Point the client at it with:
  datalake-cli --base-url http://127.0.0.1:8080 --endpoint-host localhost \
    --access-key ak1 --secret-key s3cr3t package create demo`,
	Args: cobra.NoArgs,
	RunE: runMock,
}

func init() {
	mockCmd.Flags().String("addr", "", "listen address (default: 127.0.0.1:8080, env: DATALAKE_MOCK_ADDR)")
	mockCmd.Flags().String("mock-host", "", "endpoint host tokens must be signed for (default: localhost)")
	mockCmd.Flags().String("mock-keys-file", "", "JSON or YAML file of access/secret key pairs")
	mockCmd.Flags().StringSliceVar(&mockFailStages, "fail-stage", nil, "make an upload stage fail with a 500: register, upload, confirm")
}

var mockFailStages []string

func parseFaults(stages []string) (datalaketest.Faults, error) {
	var f datalaketest.Faults
	for _, s := range stages {
		switch datalake.Stage(strings.ToLower(strings.TrimSpace(s))) {
		case datalake.StageRegister:
			f.FailRegister = true
		case datalake.StageUpload:
			f.FailUpload = true
		case datalake.StageConfirm:
			f.FailConfirm = true
		default:
			return f, fmt.Errorf("unknown upload stage %q", s)
		}
	}
	return f, nil
}

func runMock(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	settings, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	faults, err := parseFaults(mockFailStages)
	if err != nil {
		return err
	}

	keys, err := settings.Mock.Keys.Load()
	if err != nil {
		return fmt.Errorf("load mock keys: %w", err)
	}
	if len(keys) == 0 {
		keys = map[string]string{datalaketest.AccessKey: datalaketest.SecretKey}
		slog.Warn("no mock keys configured, using the built-in test key", "access_key", datalaketest.AccessKey)
	}

	api := datalaketest.New(datalaketest.Config{
		EndpointHost: settings.Mock.EndpointHost,
		Keys:         keys,
		Logger:       slog.Default(),
	})
	api.SetFaults(faults)

	m := metrics.New()
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(observeRequests(m))
	r.Handle("/metrics", m.Handler())
	r.Mount("/", api.Handler())

	server := &http.Server{
		Addr:              settings.Mock.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down mock API...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("mock API shutdown error", "err", err)
		}
	}()

	slog.Info("starting mock API", "addr", settings.Mock.Addr, "endpoint_host", settings.Mock.EndpointHost, "keys", len(keys))
	fmt.Fprintf(os.Stderr, "Mock API listening on http://%s (endpoint host %s)\n", settings.Mock.Addr, settings.Mock.EndpointHost)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// observeRequests records every served request in m.
func observeRequests(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(r.Method, status, nil, time.Since(start))
		})
	}
}
