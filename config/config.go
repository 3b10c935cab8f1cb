package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/datalake/journal"
	"github.com/sagarc03/datalake/journal/database"
	"github.com/sagarc03/datalake/keybackend"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DATALAKE"

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the CLI's runtime configuration. Credentials are not part of it;
// they come from the client profile file.
type Config struct {
	Env     string        `mapstructure:"env" validate:"required,oneof=dev prod production"`
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Journal JournalConfig `mapstructure:"journal"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Mock    MockConfig    `mapstructure:"mock"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// HTTPConfig configures the API client.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"min=0"`
	// BaseURL overrides where requests are sent; tokens are still signed for
	// the profile's endpoint host.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
}

// JournalConfig configures the upload journal.
type JournalConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	database.Config `mapstructure:",squash"`
}

// MetricsConfig configures metrics export. An empty Textfile disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// MockConfig configures the local mock API.
type MockConfig struct {
	Addr         string                `mapstructure:"addr" validate:"required,hostname_port"`
	EndpointHost string                `mapstructure:"endpoint_host" validate:"required"`
	Keys         keybackend.KeysConfig `mapstructure:"keys"`
}

// IsProd reports whether the production log format is selected.
func (c *Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"log-level":      "log.level",
	"timeout":        "http.timeout",
	"base-url":       "http.base_url",
	"journal-type":   "journal.type",
	"journal-dsn":    "journal.dsn",
	"journal-table":  "journal.table",
	"no-journal":     "",
	"metrics-file":   "metrics.textfile",
	"addr":           "mock.addr",
	"mock-host":      "mock.endpoint_host",
	"mock-keys-file": "mock.keys.file",
}

// bindFlags binds explicitly set flags to viper keys. Flags mapped to ""
// are handled by the caller.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}
		if viperKey == "" || !f.Changed {
			return
		}
		_ = v.BindPFlag(viperKey, f)
	})

	if f := flags.Lookup("no-journal"); f != nil && f.Changed && f.Value.String() == "true" {
		v.Set("journal.enabled", false)
	}
}

// DefaultDir is ~/.datalake, or "." when there is no home directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".datalake")
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("log.level", "")

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.base_url", "")

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.type", "sqlite")
	v.SetDefault("journal.dsn", filepath.Join(DefaultDir(), "journal.db"))
	v.SetDefault("journal.table", journal.DefaultTable)

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("mock.addr", "127.0.0.1:8080")
	v.SetDefault("mock.endpoint_host", "localhost")
}

// Load reads configuration and returns a validated Config.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Without explicit files, datalake.yaml is looked up in the working directory
// and then in ~/.datalake. A missing file is not an error.
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("datalake")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDir())

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
