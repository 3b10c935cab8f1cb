package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagarc03/datalake/client"
	"github.com/sagarc03/datalake/config"
	"github.com/sagarc03/datalake/journal/database"
	"github.com/sagarc03/datalake/metrics"
	"github.com/sagarc03/datalake/transport"
)

// session is the client and its supporting stores for one command run.
type session struct {
	settings     *config.Config
	client       *client.Client
	metrics      *metrics.Metrics
	closeJournal func()
}

// newSession builds a client from the merged profile. The upload journal is
// opened only when withJournal is set and the journal is enabled.
func newSession(cmd *cobra.Command, withJournal bool) (*session, error) {
	settings, err := config.FromContext(cmd.Context())
	if err != nil {
		return nil, err
	}

	cfg, err := buildConfig(settings)
	if err != nil {
		return nil, err
	}

	s := &session{
		settings: settings,
		metrics:  metrics.New(),
	}
	opts := []client.Option{
		client.WithHTTPClient(&http.Client{Timeout: settings.HTTP.Timeout}),
		client.WithObserver(s.metrics),
		client.WithLogger(slog.Default()),
	}

	if withJournal && settings.Journal.Enabled {
		if err := ensureJournalDir(settings.Journal.Config); err != nil {
			return nil, err
		}
		repo, closeFn, err := database.Connect(cmd.Context(), settings.Journal.Config)
		if err != nil {
			return nil, fmt.Errorf("open upload journal: %w", err)
		}
		s.closeJournal = closeFn
		opts = append(opts, client.WithJournal(repo))
	}

	s.client, err = client.New(cfg, opts...)
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// close releases the journal and writes the metrics textfile when one is
// configured.
func (s *session) close() {
	if s.closeJournal != nil {
		s.closeJournal()
	}
	if path := s.settings.Metrics.Textfile; path != "" {
		if err := s.metrics.WriteTextfile(path); err != nil {
			slog.Warn("write metrics textfile", "path", path, "err", err)
		}
	}
}

func ensureJournalDir(cfg database.Config) error {
	if cfg.Type != "sqlite" || cfg.DSN == ":memory:" || strings.HasPrefix(cfg.DSN, "file:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o700); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}
	return nil
}

// printResponse prints resp and turns a status of 400 or above into an error.
func printResponse(resp transport.Response, err error) error {
	if err != nil {
		return err
	}
	if err := getFormatter().FormatResponse(os.Stdout, resp); err != nil {
		return err
	}
	return client.CheckStatus(resp)
}

// withSession runs fn with a session that is closed afterwards.
func withSession(withJournal bool, fn func(cmd *cobra.Command, args []string, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd, withJournal)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(cmd, args, s)
	}
}
