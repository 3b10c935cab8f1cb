package datalake

import (
	"log/slog"
	"strings"
)

// Credentials identify a caller to the data lake API. They are immutable once
// built and safe to share between goroutines.
type Credentials struct {
	AccessKey    string
	SecretKey    string
	EndpointHost string
}

// NewCredentials validates and returns a Credentials value. Surrounding
// whitespace is trimmed; an empty field is a *ConfigError.
func NewCredentials(accessKey, secretKey, endpointHost string) (Credentials, error) {
	c := Credentials{
		AccessKey:    strings.TrimSpace(accessKey),
		SecretKey:    strings.TrimSpace(secretKey),
		EndpointHost: strings.TrimSpace(endpointHost),
	}
	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

// Validate checks that all fields are set.
func (c Credentials) Validate() error {
	switch {
	case c.AccessKey == "":
		return &ConfigError{Field: "access key"}
	case c.SecretKey == "":
		return &ConfigError{Field: "secret key"}
	case c.EndpointHost == "":
		return &ConfigError{Field: "endpoint host"}
	}
	return nil
}

// String never includes the secret key.
func (c Credentials) String() string {
	return c.AccessKey + "@" + c.EndpointHost
}

// LogValue keeps the secret key out of structured logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("access_key", c.AccessKey),
		slog.String("endpoint_host", c.EndpointHost),
	)
}
