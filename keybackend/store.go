package keybackend

import (
	"github.com/sagarc03/datalake"
)

// KeysConfig holds configuration for loading access keys.
type KeysConfig struct {
	Inline []KeyPair `mapstructure:"inline"` // Inline key pairs from config
	File   string    `mapstructure:"file"`   // Path to a JSON or YAML file of key pairs
}

// Load merges inline keys with keys from File. Keys from File override
// duplicates.
func (c KeysConfig) Load() (map[string]string, error) {
	keys := make(map[string]string)

	for _, p := range c.Inline {
		if p.AccessKey != "" && p.SecretKey != "" {
			keys[p.AccessKey] = p.SecretKey
		}
	}

	if c.File != "" {
		fileKeys, err := LoadKeysFromFile(c.File)
		if err != nil {
			return nil, err
		}
		for k, v := range fileKeys {
			keys[k] = v
		}
	}

	return keys, nil
}

// NewSecretStore creates a SecretStore from the given configuration.
func NewSecretStore(cfg KeysConfig) (datalake.SecretStore, error) {
	keys, err := cfg.Load()
	if err != nil {
		return nil, err
	}
	return NewMapSecretStore(keys), nil
}
