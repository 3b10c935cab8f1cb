package keybackend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/keybackend"
)

func TestMapSecretStore_Lookup(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{"ak1": "s3cr3t"})

	secret, err := store.Lookup("ak1")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", secret)

	_, err = store.Lookup("nobody")
	assert.ErrorIs(t, err, keybackend.ErrKeyNotFound)
	assert.ErrorIs(t, err, datalake.ErrUnauthorized)

	_, err = keybackend.NewMapSecretStore(nil).Lookup("ak1")
	assert.ErrorIs(t, err, keybackend.ErrKeyNotFound)
}

func TestLoadKeysFromFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		want    map[string]string
		wantErr string
	}{
		{
			name:    "json",
			file:    "keys.json",
			content: `[{"access_key": "ak1", "secret_key": "s3cr3t"}, {"access_key": "ak2", "secret_key": "other"}]`,
			want:    map[string]string{"ak1": "s3cr3t", "ak2": "other"},
		},
		{
			name:    "yaml",
			file:    "keys.yaml",
			content: "- access_key: ak1\n  secret_key: s3cr3t\n",
			want:    map[string]string{"ak1": "s3cr3t"},
		},
		{
			name:    "skips incomplete pairs",
			file:    "keys.json",
			content: `[{"access_key": "", "secret_key": "x"}, {"access_key": "ak1", "secret_key": ""}]`,
			want:    map[string]string{},
		},
		{
			name:    "last duplicate wins",
			file:    "keys.json",
			content: `[{"access_key": "ak1", "secret_key": "first"}, {"access_key": "ak1", "secret_key": "second"}]`,
			want:    map[string]string{"ak1": "second"},
		},
		{
			name:    "object instead of list",
			file:    "keys.json",
			content: `{"access_key": "ak1", "secret_key": "s3cr3t"}`,
			wantErr: "parse keys file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			keys, err := keybackend.LoadKeysFromFile(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, keys)
		})
	}

	_, err := keybackend.LoadKeysFromFile("/nonexistent/keys.json")
	assert.ErrorContains(t, err, "read keys file")
}

func TestNewSecretStore_FileOverridesInline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"access_key": "ak1", "secret_key": "from-file"}]`), 0o600))

	store, err := keybackend.NewSecretStore(keybackend.KeysConfig{
		Inline: []keybackend.KeyPair{
			{AccessKey: "ak1", SecretKey: "inline"},
			{AccessKey: "ak2", SecretKey: "inline2"},
		},
		File: path,
	})
	require.NoError(t, err)

	secret, err := store.Lookup("ak1")
	require.NoError(t, err)
	assert.Equal(t, "from-file", secret)

	secret, err = store.Lookup("ak2")
	require.NoError(t, err)
	assert.Equal(t, "inline2", secret)

	_, err = keybackend.NewSecretStore(keybackend.KeysConfig{File: "/nonexistent/keys.json"})
	assert.Error(t, err)
}

func TestKeysConfig_Load(t *testing.T) {
	keys, err := keybackend.KeysConfig{}.Load()
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = keybackend.KeysConfig{Inline: []keybackend.KeyPair{
		{AccessKey: "ak1", SecretKey: "s3cr3t"},
		{AccessKey: "ak2"},
	}}.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ak1": "s3cr3t"}, keys)
}
