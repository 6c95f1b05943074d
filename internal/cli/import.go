package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/yoda/internal/config"
	"github.com/runnerr0/yoda/internal/enrich"
	"github.com/runnerr0/yoda/internal/pipeline"
	"github.com/runnerr0/yoda/internal/youtube"
)

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	log := newLogger(cfg, c.globals)

	store, dbPath, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Debug().Str("db", dbPath).Msg("store opened")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return c.executeWithSaver(ctx, cfg, store, c.catalog(cfg, log), log)
}

// catalog returns the metadata service for this run, or nil when enrichment
// is disabled or no API key is configured.
func (c *ImportCommand) catalog(cfg *config.Config, log zerolog.Logger) enrich.Catalog {
	if c.SkipEnrich {
		return nil
	}
	if cfg.Catalog.APIKey == "" {
		log.Warn().Msgf("no catalog API key (set catalog.api_key or %s); importing without enrichment", config.APIKeyEnv)
		return nil
	}
	return youtube.NewClient(youtube.Config{
		APIKey:            cfg.Catalog.APIKey,
		BaseURL:           cfg.Catalog.BaseURL,
		Timeout:           time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second,
		MaxRetries:        cfg.Catalog.MaxRetries,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
	}, log)
}

// executeWithSaver runs the import against a provided saver and catalog (for testing).
func (c *ImportCommand) executeWithSaver(ctx context.Context, cfg *config.Config, saver pipeline.Saver, catalog enrich.Catalog, log zerolog.Logger) error {
	opts := pipeline.Options{
		Region: cfg.Catalog.Region,
		Strict: cfg.Ingest.StrictFields && !c.Lenient,
		Log:    log,
	}
	if catalog != nil {
		opts.Enricher = enrich.New(catalog, enrich.Options{
			Workers:     cfg.Catalog.Workers,
			CallTimeout: time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second,
			Log:         log,
		})
	}

	report, err := pipeline.New(saver, opts).Run(ctx, pipeline.Sources{
		WatchPath:  c.Watch,
		SearchPath: c.Search,
	})
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(report)
	}
	c.printReportHuman(report)
	return nil
}

func (c *ImportCommand) printReportHuman(r *pipeline.Report) {
	fmt.Println("Import complete")
	fmt.Println("===============")
	fmt.Printf("Watch history:  %s of %s records kept\n", formatNumber(int64(r.WatchKept)), formatNumber(int64(r.WatchRead)))
	fmt.Printf("Search history: %s of %s records kept\n", formatNumber(int64(r.SearchKept)), formatNumber(int64(r.SearchRead)))

	if r.Batches == 0 && r.CategoryError == "" {
		fmt.Println("Enrichment:     skipped")
	} else {
		fmt.Printf("Enrichment:     %s records, %d/%d batches ok\n",
			formatNumber(int64(r.Enriched)), r.Batches-r.FailedBatches, r.Batches)
	}
	if r.CategoryError != "" {
		fmt.Printf("Categories:     unavailable (%s)\n", r.CategoryError)
	}
	fmt.Printf("Took:           %s\n", r.Duration.Round(time.Millisecond))
}
