package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/datalake/client"
	"github.com/sagarc03/datalake/config"
)

var (
	version = "dev"

	cfgFile       string
	settingsFiles []string
	profileName   string
	endpointHost  string
	baseURL       string
	accessKey     string
	secretKey     string
	jsonOutput    bool
	quiet         bool
)

var rootCmd = &cobra.Command{
	Use:     "datalake-cli",
	Version: version,
	Short:   "Client for the data lake API",
	Long: `datalake-cli manages packages, datasets, metadata and the cart of a data
lake API.

Credentials come from a profile in ~/.datalake/config.yaml (see 'configure'),
the DATALAKE_ENDPOINT_HOST, DATALAKE_ACCESS_KEY and DATALAKE_SECRET_KEY
environment variables, or flags, later sources winning.

Responses are printed as the server sent them. A status of 400 or above makes
the command exit non-zero.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(settingsFiles, cmd.Flags())
		if err != nil {
			return err
		}
		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "profile file (default: ~/.datalake/config.yaml, env: DATALAKE_CONFIG)")
	pf.StringSliceVar(&settingsFiles, "settings", nil, "settings file(s) (default: ./datalake.yaml, ~/.datalake/datalake.yaml)")
	pf.StringVarP(&profileName, "profile", "p", "", "profile name (env: DATALAKE_PROFILE)")
	pf.StringVar(&endpointHost, "endpoint-host", "", "API host tokens are signed for (env: DATALAKE_ENDPOINT_HOST)")
	pf.StringVar(&baseURL, "base-url", "", "send requests here instead of https://<endpoint-host> (env: DATALAKE_HTTP_BASE_URL)")
	pf.StringVarP(&accessKey, "access-key", "a", "", "access key (env: DATALAKE_ACCESS_KEY)")
	pf.StringVarP(&secretKey, "secret-key", "k", "", "secret key (env: DATALAKE_SECRET_KEY)")
	pf.BoolVar(&jsonOutput, "json", false, "output as JSON")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")
	pf.String("log-level", "", "log level: debug, info, warn, error (env: DATALAKE_LOG_LEVEL)")
	pf.Duration("timeout", 0, "HTTP timeout (default: 30s, env: DATALAKE_HTTP_TIMEOUT)")
	pf.String("journal-type", "", "upload journal backend: sqlite, postgres (env: DATALAKE_JOURNAL_TYPE)")
	pf.String("journal-dsn", "", "upload journal DSN (default: ~/.datalake/journal.db, env: DATALAKE_JOURNAL_DSN)")
	pf.Bool("no-journal", false, "do not record uploads")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit (env: DATALAKE_METRICS_TEXTFILE)")

	rootCmd.AddCommand(packageCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(mockCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_ = getFormatter().FormatError(os.Stderr, err)
		os.Exit(1)
	}
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() client.Formatter {
	return client.NewFormatter(jsonOutput, quiet)
}

// getConfigPath returns the profile file path: flag, then env, then default.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := client.ConfigPathFromEnv(); p != "" {
		return p
	}
	return client.DefaultConfigPath()
}

// buildConfig merges profile, env and flags, later sources winning.
func buildConfig(settings *config.Config) (*client.Config, error) {
	var configs []*client.Config

	name := profileName
	if name == "" {
		name = client.ProfileFromEnv()
	}

	configPath := getConfigPath()
	fileCfg, err := client.LoadConfigFile(configPath)
	switch {
	case err == nil:
		p, perr := fileCfg.GetProfile(name)
		if perr != nil && (name != "" || !errors.Is(perr, client.ErrNoProfiles)) {
			return nil, perr
		}
		configs = append(configs, client.ConfigFromProfile(p))
	case cfgFile != "" || name != "":
		// an explicit file or profile must exist
		return nil, err
	}

	configs = append(configs,
		&client.Config{BaseURL: settings.HTTP.BaseURL},
		client.ConfigFromEnv(),
		&client.Config{
			EndpointHost: endpointHost,
			BaseURL:      baseURL,
			AccessKey:    accessKey,
			SecretKey:    secretKey,
		},
	)

	cfg := client.MergeConfig(configs...)
	if cfg.EndpointHost == "" && cfg.AccessKey == "" {
		return nil, fmt.Errorf("no credentials: run 'datalake-cli configure add <name>' or set %s", client.EnvAccessKey)
	}
	return cfg, nil
}
