package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/yoda/config.yaml"

// APIKeyEnv overrides catalog.api_key when set.
const APIKeyEnv = "YODA_API_KEY"

// Config holds all YODA configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog"`
	Storage StorageConfig `yaml:"storage"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

type CatalogConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	Region            string  `yaml:"region"`
	Workers           int     `yaml:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type IngestConfig struct {
	StrictFields bool `yaml:"strict_fields"`
}

type ServerConfig struct {
	Host       string  `yaml:"host"`
	Port       int     `yaml:"port"`
	TopN       int     `yaml:"top_n"`
	SmallShare float64 `yaml:"small_share"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies environment overrides.
func (c *Config) applyEnv() {
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.Catalog.APIKey = key
	}
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Catalog.Workers < 1:
		return fmt.Errorf("catalog.workers must be at least 1, got %d", c.Catalog.Workers)
	case c.Catalog.RequestsPerSecond < 0:
		return fmt.Errorf("catalog.requests_per_second must not be negative")
	case c.Catalog.TimeoutSeconds < 0:
		return fmt.Errorf("catalog.timeout_seconds must not be negative")
	case c.Catalog.MaxRetries < 0:
		return fmt.Errorf("catalog.max_retries must not be negative")
	case c.Storage.SQLiteFile == "":
		return fmt.Errorf("storage.sqlite_file must be set")
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	case c.Server.SmallShare < 0 || c.Server.SmallShare >= 1:
		return fmt.Errorf("server.small_share must be in [0, 1), got %g", c.Server.SmallShare)
	}
	return nil
}

// DBPath returns the expanded path of the SQLite database.
func (c *Config) DBPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// Addr returns the dashboard listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		cfg.applyEnv()
		return cfg, nil
	}

	return Load(path)
}
