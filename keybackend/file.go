package keybackend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyPair represents an access key and secret key pair.
type KeyPair struct {
	AccessKey string `json:"access_key" yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key" mapstructure:"secret_key"`
}

// LoadKeysFromFile loads access keys for the mock API from a JSON or YAML file
// holding a list of key pairs:
//
//	[
//	  {"access_key": "ak1", "secret_key": "s3cr3t"}
//	]
//
// Files ending in .yaml or .yml are parsed as YAML. Pairs with an empty field
// are skipped and later duplicates win.
func LoadKeysFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Clean(path)) //#nosec G304 -- path is user-provided config
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}

	var pairs []KeyPair
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &pairs)
	default:
		err = json.Unmarshal(data, &pairs)
	}
	if err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}

	keys := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.AccessKey != "" && p.SecretKey != "" {
			keys[p.AccessKey] = p.SecretKey
		}
	}
	return keys, nil
}
