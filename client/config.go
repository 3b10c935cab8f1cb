package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sagarc03/datalake"
)

// Profile is one named set of credentials in the profile file.
type Profile struct {
	Name         string `yaml:"name"`
	EndpointHost string `yaml:"endpoint_host"`
	BaseURL      string `yaml:"base_url,omitempty"`
	AccessKey    string `yaml:"access_key,omitempty"`
	SecretKey    string `yaml:"secret_key,omitempty"`
	Default      bool   `yaml:"default,omitempty"`
}

const (
	endpointHostRule = "required,hostname_rfc1123|hostname_port"
	baseURLRule      = "omitempty,url,startswith=http"
)

// ValidateEndpointHost accepts a bare host name, optionally with a port.
func ValidateEndpointHost(host string) error {
	if validate.Var(host, endpointHostRule) != nil {
		return fmt.Errorf("endpoint host %q: want a host such as api.example.com: %w", host, datalake.ErrInvalidInput)
	}
	return nil
}

// ValidateBaseURL accepts an empty string or an http(s) URL.
func ValidateBaseURL(raw string) error {
	if validate.Var(raw, baseURLRule) != nil {
		return fmt.Errorf("base URL %q: want http:// or https://: %w", raw, datalake.ErrInvalidInput)
	}
	return nil
}

// Validate checks the fields that are fixed when a profile is saved. Keys may
// be left empty and supplied through the environment.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name: %w", datalake.ErrInvalidInput)
	}
	return errors.Join(ValidateEndpointHost(p.EndpointHost), ValidateBaseURL(p.BaseURL))
}

// ConfigFile is the on-disk profile file.
type ConfigFile struct {
	Profiles []Profile `yaml:"profiles"`
}

func (c *ConfigFile) index(name string) int {
	return slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Name == name })
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// GetProfile returns the named profile, or the default one for an empty name.
func (c *ConfigFile) GetProfile(name string) (*Profile, error) {
	if name == "" {
		return c.GetDefaultProfile()
	}
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}
	i := c.index(name)
	if i < 0 {
		return nil, notFound(name)
	}
	return &c.Profiles[i], nil
}

// GetDefaultProfile returns the profile marked default. Without a marked
// profile the first one is the default.
func (c *ConfigFile) GetDefaultProfile() (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}
	i := max(slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Default }), 0)
	return &c.Profiles[i], nil
}

// DefaultProfileName is the name of the default profile, or "" when the file
// has none.
func (c *ConfigFile) DefaultProfileName() string {
	p, err := c.GetDefaultProfile()
	if err != nil {
		return ""
	}
	return p.Name
}

// AddProfile appends p. Names are unique.
func (c *ConfigFile) AddProfile(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile name: %w", datalake.ErrInvalidInput)
	}
	if c.index(p.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// UpdateProfile replaces the profile with the same name.
func (c *ConfigFile) UpdateProfile(p Profile) error {
	i := c.index(p.Name)
	if i < 0 {
		return notFound(p.Name)
	}
	c.Profiles[i] = p
	return nil
}

// Upsert validates p and adds or replaces it. A p marked Default becomes the
// only default.
func (c *ConfigFile) Upsert(p Profile) (created bool, err error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	if i := c.index(p.Name); i >= 0 {
		c.Profiles[i] = p
	} else {
		c.Profiles = append(c.Profiles, p)
		created = true
	}
	if p.Default {
		return created, c.SetDefault(p.Name)
	}
	return created, nil
}

// RemoveProfile deletes a profile by name.
func (c *ConfigFile) RemoveProfile(name string) error {
	i := c.index(name)
	if i < 0 {
		return notFound(name)
	}
	c.Profiles = slices.Delete(c.Profiles, i, i+1)
	return nil
}

// SetDefault marks name as the only default profile.
func (c *ConfigFile) SetDefault(name string) error {
	if c.index(name) < 0 {
		return notFound(name)
	}
	for i := range c.Profiles {
		c.Profiles[i].Default = c.Profiles[i].Name == name
	}
	return nil
}

// ProfileNames lists profile names in file order.
func (c *ConfigFile) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		names = append(names, p.Name)
	}
	return names
}

// Save replaces the file at path with owner-only permissions. The new
// content is written to a temporary file in the same directory and renamed
// into place, so a failed write leaves the old file intact.
func (c *ConfigFile) Save(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

// LoadConfigFile reads a profile file.
func LoadConfigFile(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}

// LoadOrEmptyConfigFile is LoadConfigFile, except that a missing file is an
// empty ConfigFile.
func LoadOrEmptyConfigFile(path string) (*ConfigFile, error) {
	cfg, err := LoadConfigFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &ConfigFile{}, nil
	}
	return cfg, err
}

// DefaultConfigPath is ~/.datalake/config.yaml, or "" when there is no home
// directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".datalake", "config.yaml")
}

// Environment variables read by ConfigFromEnv and friends.
const (
	EnvEndpointHost = "DATALAKE_ENDPOINT_HOST"
	EnvBaseURL      = "DATALAKE_BASE_URL"
	EnvAccessKey    = "DATALAKE_ACCESS_KEY"
	EnvSecretKey    = "DATALAKE_SECRET_KEY"
	EnvProfile      = "DATALAKE_PROFILE"
	EnvConfig       = "DATALAKE_CONFIG"
)

// Config is the resolved connection settings for one API.
//
// EndpointHost is what tokens are signed for. BaseURL, when set, is where
// requests are actually sent (a local mock, a proxy); it defaults to
// https://<EndpointHost>:443.
type Config struct {
	EndpointHost string
	BaseURL      string
	AccessKey    string
	SecretKey    string
}

// Credentials validates the config and returns its credentials.
func (c *Config) Credentials() (datalake.Credentials, error) {
	return datalake.NewCredentials(c.AccessKey, c.SecretKey, c.EndpointHost)
}

// ConfigFromProfile copies the connection fields of p.
func ConfigFromProfile(p *Profile) *Config {
	if p == nil {
		return &Config{}
	}
	return &Config{
		EndpointHost: p.EndpointHost,
		BaseURL:      p.BaseURL,
		AccessKey:    p.AccessKey,
		SecretKey:    p.SecretKey,
	}
}

// ConfigFromEnv reads the DATALAKE_* variables.
func ConfigFromEnv() *Config {
	return &Config{
		EndpointHost: os.Getenv(EnvEndpointHost),
		BaseURL:      os.Getenv(EnvBaseURL),
		AccessKey:    os.Getenv(EnvAccessKey),
		SecretKey:    os.Getenv(EnvSecretKey),
	}
}

// ProfileFromEnv returns DATALAKE_PROFILE.
func ProfileFromEnv() string {
	return os.Getenv(EnvProfile)
}

// ConfigPathFromEnv returns DATALAKE_CONFIG.
func ConfigPathFromEnv() string {
	return os.Getenv(EnvConfig)
}

// MergeConfig merges configs left to right. An empty field never overrides a
// value set earlier.
func MergeConfig(configs ...*Config) *Config {
	result := &Config{}
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		if cfg.EndpointHost != "" {
			result.EndpointHost = cfg.EndpointHost
		}
		if cfg.BaseURL != "" {
			result.BaseURL = cfg.BaseURL
		}
		if cfg.AccessKey != "" {
			result.AccessKey = cfg.AccessKey
		}
		if cfg.SecretKey != "" {
			result.SecretKey = cfg.SecretKey
		}
	}
	return result
}
