package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.Catalog.APIKey)
	assert.Equal(t, "https://www.googleapis.com/youtube/v3", cfg.Catalog.BaseURL)
	assert.Equal(t, "US", cfg.Catalog.Region)
	assert.Equal(t, 4, cfg.Catalog.Workers)
	assert.Equal(t, 5.0, cfg.Catalog.RequestsPerSecond)
	assert.Equal(t, 15, cfg.Catalog.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Catalog.MaxRetries)
	assert.Equal(t, "~/.config/yoda", cfg.Storage.Path)
	assert.Equal(t, "yt_history.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "wal", cfg.Storage.SQLiteJournalMode)
	assert.True(t, cfg.Ingest.StrictFields)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8050, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.TopN)
	assert.Equal(t, 0.02, cfg.Server.SmallShare)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
catalog:
  region: "GB"
  workers: 8
ingest:
  strict_fields: false
server:
  port: 9999
logging:
  level: "debug"
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "GB", cfg.Catalog.Region)
	assert.Equal(t, 8, cfg.Catalog.Workers)
	assert.False(t, cfg.Ingest.StrictFields)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Non-overridden values remain defaults
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 15, cfg.Catalog.TimeoutSeconds)
	assert.Equal(t, "~/.config/yoda", cfg.Storage.Path)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(cfgPath, []byte(":::not valid yaml{{{"), 0644)
	require.NoError(t, err)

	_, err = Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"zero workers":   "catalog:\n  workers: 0\n",
		"negative rps":   "catalog:\n  requests_per_second: -1\n",
		"port range":     "server:\n  port: 70000\n",
		"share too big":  "server:\n  small_share: 1.5\n",
		"empty filename": "storage:\n  sqlite_file: \"\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			cfgPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))

			_, err := Load(cfgPath)
			assert.Error(t, err)
		})
	}
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("catalog:\n  api_key: from-file\n"), 0644))

	t.Setenv(APIKeyEnv, "")
	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Catalog.APIKey)

	t.Setenv(APIKeyEnv, "from-env")
	cfg, err = Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Catalog.APIKey)
}

func TestLoadOrCreateCreatesDefaultsWhenMissing(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "deep", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)

	// Should return defaults
	assert.Equal(t, "US", cfg.Catalog.Region)
	assert.Equal(t, 8050, cfg.Server.Port)

	// File should now exist on disk
	_, statErr := os.Stat(cfgPath)
	assert.NoError(t, statErr)

	// File should be valid YAML loadable again
	cfg2, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.Port, cfg2.Server.Port)
	assert.Equal(t, cfg.Server.SmallShare, cfg2.Server.SmallShare)
}

func TestLoadOrCreateDoesNotPersistEnvKey(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(APIKeyEnv, "secret")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Catalog.APIKey)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestLoadOrCreateLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
server:
  top_n: 25
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Server.TopN)
	// Other fields remain defaults
	assert.Equal(t, "yt_history.db", cfg.Storage.SQLiteFile)
}

func TestDBPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/var/lib/yoda"
	path, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/yoda/yt_history.db", path)

	cfg.Storage.Path = "~/data"
	path, err = cfg.DBPath()
	require.NoError(t, err)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "yt_history.db"), path)
}

func TestAddr(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1:8050", cfg.Addr())
}
