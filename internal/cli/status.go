package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/runnerr0/yoda/internal/config"
	"github.com/runnerr0/yoda/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string             `json:"version"`
	DatabasePath      string             `json:"database_path"`
	DatabaseSizeBytes int64              `json:"database_size_bytes"`
	Imported          bool               `json:"imported"`
	WatchRows         int64              `json:"watch_rows"`
	SearchRows        int64              `json:"search_rows"`
	EnrichedRows      int64              `json:"enriched_rows"`
	SearchVideos      int64              `json:"search_videos"`
	OldestWatch       string             `json:"oldest_watch,omitempty"`
	NewestWatch       string             `json:"newest_watch,omitempty"`
	TopChannels       []channelCountJSON `json:"top_channels"`
	CatalogConfigured bool               `json:"catalog_configured"`
	Region            string             `json:"region"`
}

type channelCountJSON struct {
	Channel string `json:"channel"`
	Count   int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	store, dbPath, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return c.executeWithStore(cfg, store, dbPath)
}

// executeWithStore runs status against a provided store (for testing).
func (c *StatusCommand) executeWithStore(cfg *config.Config, store storage.Store, dbPath string) error {
	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dbSize := getDatabaseSize(dbPath)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(cfg, stats, dbPath, dbSize)
	}
	c.printStatusHuman(cfg, stats, dbPath, dbSize)
	return nil
}

func (c *StatusCommand) printStatusHuman(cfg *config.Config, stats *storage.Stats, dbPath string, dbSize int64) {
	fmt.Println("YODA Status")
	fmt.Println("===========")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(dbSize))

	if !stats.HasImportData {
		fmt.Println()
		fmt.Println("No history imported yet. Run `yoda import --watch ... --search ...`.")
		return
	}

	fmt.Printf("Watched:       %s\n", formatNumber(stats.WatchRows))
	if stats.WatchRows > 0 {
		pct := float64(stats.EnrichedRows) / float64(stats.WatchRows) * 100
		fmt.Printf("Enriched:      %s (%.1f%%)\n", formatNumber(stats.EnrichedRows), pct)
	}
	fmt.Printf("Searches:      %s (%s video results)\n", formatNumber(stats.SearchRows), formatNumber(stats.SearchVideos))

	if stats.WatchRows > 0 && !stats.OldestWatch.IsZero() {
		fmt.Printf("Oldest:        %s\n", stats.OldestWatch.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.NewestWatch.Local().Format("2006-01-02"))
	}

	if len(stats.TopChannels) > 0 {
		fmt.Println()
		fmt.Println("Top Channels:")
		for _, ch := range stats.TopChannels {
			fmt.Printf("  %-30s %s\n", ch.Channel, formatNumber(ch.Count))
		}
	}

	fmt.Println()
	if cfg.Catalog.APIKey != "" {
		fmt.Printf("Catalog:       configured (region %s)\n", cfg.Catalog.Region)
	} else {
		fmt.Println("Catalog:       no API key")
	}
}

func (c *StatusCommand) printStatusJSON(cfg *config.Config, stats *storage.Stats, dbPath string, dbSize int64) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		Imported:          stats.HasImportData,
		WatchRows:         stats.WatchRows,
		SearchRows:        stats.SearchRows,
		EnrichedRows:      stats.EnrichedRows,
		SearchVideos:      stats.SearchVideos,
		TopChannels:       make([]channelCountJSON, len(stats.TopChannels)),
		CatalogConfigured: cfg.Catalog.APIKey != "",
		Region:            cfg.Catalog.Region,
	}

	if !stats.OldestWatch.IsZero() {
		out.OldestWatch = stats.OldestWatch.UTC().Format(time.RFC3339)
		out.NewestWatch = stats.NewestWatch.UTC().Format(time.RFC3339)
	}

	for i, ch := range stats.TopChannels {
		out.TopChannels[i] = channelCountJSON{Channel: ch.Channel, Count: ch.Count}
	}

	return printJSON(out)
}

// getDatabaseSize returns the database file size in bytes, or 0 when the
// file does not exist.
func getDatabaseSize(dbPath string) int64 {
	info, err := os.Stat(dbPath)
	if err != nil {
		return 0
	}
	return info.Size()
}
