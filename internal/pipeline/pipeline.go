// Package pipeline runs one import: decode both exports, normalize, filter,
// enrich watch rows from the catalog and replace the stored tables.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/runnerr0/yoda/internal/enrich"
	"github.com/runnerr0/yoda/internal/history"
	"github.com/runnerr0/yoda/internal/metrics"
)

// Saver persists a finished import.
type Saver interface {
	Save(ctx context.Context, watch []history.WatchRecord, search []history.SearchRecord) error
}

// Sources names the two export files of one import.
type Sources struct {
	WatchPath  string
	SearchPath string
}

// Options configures an Importer.
type Options struct {
	// Region selects the catalog category names. Defaults to "US".
	Region string
	// Strict rejects export records with unknown fields.
	Strict bool
	// Enricher looks up watch metadata. Nil skips enrichment.
	Enricher *enrich.Enricher
	Log      zerolog.Logger
}

// Report summarizes one import run.
type Report struct {
	RunID         string        `json:"run_id"`
	WatchRead     int           `json:"watch_read"`
	SearchRead    int           `json:"search_read"`
	WatchKept     int           `json:"watch_kept"`
	SearchKept    int           `json:"search_kept"`
	Enriched      int           `json:"enriched"`
	Batches       int           `json:"batches"`
	FailedBatches int           `json:"failed_batches"`
	Categories    int           `json:"categories"`
	CategoryError string        `json:"category_error,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Importer wires the import stages together.
type Importer struct {
	saver    Saver
	enricher *enrich.Enricher
	decoder  history.Decoder
	region   string
	log      zerolog.Logger
}

// New creates an Importer that writes through saver.
func New(saver Saver, opts Options) *Importer {
	region := opts.Region
	if region == "" {
		region = "US"
	}
	return &Importer{
		saver:    saver,
		enricher: opts.Enricher,
		decoder:  history.Decoder{Strict: opts.Strict},
		region:   region,
		log:      opts.Log,
	}
}

// Run executes one import. Decode and save failures abort the run and leave
// the stored tables as they were. Catalog failures only reduce enrichment.
func (im *Importer) Run(ctx context.Context, src Sources) (*Report, error) {
	started := time.Now()
	report := &Report{RunID: uuid.NewString()}
	log := im.log.With().Str("run_id", report.RunID).Logger()

	watchRaw, err := im.decoder.DecodeFile(src.WatchPath)
	if err != nil {
		return nil, fmt.Errorf("read watch history: %w", err)
	}
	searchRaw, err := im.decoder.DecodeFile(src.SearchPath)
	if err != nil {
		return nil, fmt.Errorf("read search history: %w", err)
	}
	report.WatchRead, report.SearchRead = len(watchRaw), len(searchRaw)
	log.Info().Int("watch", report.WatchRead).Int("search", report.SearchRead).Msg("exports decoded")

	watch, search := Transform(watchRaw, searchRaw)
	report.WatchKept, report.SearchKept = len(watch), len(search)
	log.Info().Int("watch", report.WatchKept).Int("search", report.SearchKept).Msg("records filtered")

	if im.enricher != nil {
		watch = im.enrich(ctx, log, watch, report)
	} else {
		log.Info().Msg("enrichment skipped")
	}
	if err := im.saver.Save(ctx, watch, search); err != nil {
		return nil, fmt.Errorf("save import: %w", err)
	}
	metrics.ImportedRows.WithLabelValues("watch_history").Set(float64(len(watch)))
	metrics.ImportedRows.WithLabelValues("search_history").Set(float64(len(search)))

	report.Duration = time.Since(started)
	log.Info().
		Int("watch", len(watch)).
		Int("search", len(search)).
		Int("enriched", report.Enriched).
		Dur("took", report.Duration).
		Msg("import saved")
	return report, nil
}

func (im *Importer) enrich(ctx context.Context, log zerolog.Logger, watch []history.WatchRecord, report *Report) []history.WatchRecord {
	cm, err := im.enricher.FetchCategoryMap(ctx, im.region)
	if err != nil {
		log.Warn().Err(err).Msg("continuing without category names")
		report.CategoryError = err.Error()
	}
	report.Categories = len(cm)

	res := im.enricher.Enrich(ctx, watch, cm)
	report.Enriched = res.Matched
	report.Batches, report.FailedBatches = res.Batches, res.FailedBatches
	if res.FailedBatches > 0 {
		log.Warn().Int("failed", res.FailedBatches).Int("batches", res.Batches).Msg("some lookup batches failed")
	}
	return res.Records
}

// Transform runs the per-record stages on decoded exports: normalize, drop
// ads and noise, then project to the stored shapes.
func Transform(watchRaw, searchRaw []history.RawActivityRecord) ([]history.WatchRecord, []history.SearchRecord) {
	watch := history.BuildWatch(history.FilterWatch(history.Normalize(watchRaw)))
	search := history.BuildSearch(history.FilterSearch(history.Normalize(searchRaw)))
	return watch, search
}
