package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			APIKey:            "",
			BaseURL:           "https://www.googleapis.com/youtube/v3",
			Region:            "US",
			Workers:           4,
			RequestsPerSecond: 5,
			TimeoutSeconds:    15,
			MaxRetries:        3,
		},
		Storage: StorageConfig{
			Path:              "~/.config/yoda",
			SQLiteFile:        "yt_history.db",
			SQLiteJournalMode: "wal",
		},
		Ingest: IngestConfig{
			StrictFields: true,
		},
		Server: ServerConfig{
			Host:       "127.0.0.1",
			Port:       8050,
			TopN:       10,
			SmallShare: 0.02,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
