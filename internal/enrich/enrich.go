// Package enrich joins catalog metadata onto watch records.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/yoda/internal/history"
	"github.com/runnerr0/yoda/internal/metrics"
)

// BatchSize is the number of ids per catalog lookup. The catalog rejects
// larger requests, so this is fixed rather than configurable.
const BatchSize = 50

// ErrCategoryMap marks a failed category listing.
var ErrCategoryMap = errors.New("category map unavailable")

// CategoryMap maps catalog category ids to display names.
type CategoryMap map[string]string

// Catalog is the external metadata service.
type Catalog interface {
	Categories(ctx context.Context, region string) (map[string]string, error)
	Videos(ctx context.Context, ids []string) ([]history.VideoMeta, error)
}

// Options tunes an Enricher.
type Options struct {
	// Workers bounds concurrent batch lookups; <= 0 means 4, 1 is sequential.
	Workers int
	// CallTimeout bounds a single catalog call; 0 means no extra timeout.
	CallTimeout time.Duration
	Log         zerolog.Logger
}

// Enricher looks up video metadata in fixed-size batches.
type Enricher struct {
	catalog     Catalog
	workers     int
	callTimeout time.Duration
	log         zerolog.Logger
}

// Result is the outcome of one Enrich call.
type Result struct {
	Records []history.WatchRecord
	// Matched counts records the catalog returned metadata for.
	Matched       int
	Batches       int
	FailedBatches int
}

// New creates an Enricher over catalog.
func New(catalog Catalog, opts Options) *Enricher {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Enricher{
		catalog:     catalog,
		workers:     workers,
		callTimeout: opts.CallTimeout,
		log:         opts.Log,
	}
}

// FetchCategoryMap lists categories for region. On failure it returns an
// empty, non-nil map together with an error wrapping ErrCategoryMap so the
// caller can carry on without category names.
func (e *Enricher) FetchCategoryMap(ctx context.Context, region string) (CategoryMap, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()

	cats, err := e.catalog.Categories(ctx, region)
	if err != nil {
		return CategoryMap{}, fmt.Errorf("%w: region %s: %v", ErrCategoryMap, region, err)
	}
	cm := make(CategoryMap, len(cats))
	for id, name := range cats {
		cm[id] = name
	}
	return cm, nil
}

// Enrich left-joins catalog metadata onto records by video id. Every input
// record appears exactly once in the output, in input order. A failed batch
// leaves its records without metadata; Enrich itself never fails.
func (e *Enricher) Enrich(ctx context.Context, records []history.WatchRecord, cm CategoryMap) Result {
	batches := chunk(distinctIDs(records), BatchSize)
	metas, failed := e.lookup(ctx, batches)

	out := make([]history.WatchRecord, len(records))
	matched := 0
	for i, rec := range records {
		var ok bool
		out[i], ok = join(rec, metas, cm)
		if ok {
			matched++
		}
	}

	return Result{Records: out, Matched: matched, Batches: len(batches), FailedBatches: failed}
}

// join fills enrichment columns for one record. The display title becomes
// the catalog title when there is one and is otherwise left as exported.
// It reports whether the catalog knew the record's video.
func join(rec history.WatchRecord, metas map[string]history.VideoMeta, cm CategoryMap) (history.WatchRecord, bool) {
	if rec.VideoID == nil {
		return rec, false
	}
	meta, ok := metas[*rec.VideoID]
	if !ok {
		return rec, false
	}

	rec.CategoryID = meta.CategoryID
	rec.VideoDescription = meta.Description
	if meta.CategoryID != nil {
		if name, ok := cm[*meta.CategoryID]; ok {
			rec.CategoryName = &name
		}
	}
	if meta.Title != nil {
		rec.Title = meta.Title
	}
	return rec, true
}

// distinctIDs returns the non-nil video ids of records, first occurrence
// order, without duplicates.
func distinctIDs(records []history.WatchRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range records {
		if r.VideoID == nil || seen[*r.VideoID] {
			continue
		}
		seen[*r.VideoID] = true
		ids = append(ids, *r.VideoID)
	}
	return ids
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

// lookup issues every batch on a bounded worker pool and merges the results
// by video id.
func (e *Enricher) lookup(ctx context.Context, batches [][]string) (map[string]history.VideoMeta, int) {
	metas := make(map[string]history.VideoMeta)
	if len(batches) == 0 {
		return metas, 0
	}

	work := make(chan int, len(batches))
	for i := range batches {
		work <- i
	}
	close(work)

	workers := e.workers
	if workers > len(batches) {
		workers = len(batches)
	}

	var (
		mu     sync.Mutex
		failed int
		wg     sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				found, err := e.fetchBatch(ctx, batches[i])

				mu.Lock()
				if err != nil {
					failed++
				}
				for _, m := range found {
					metas[m.ID] = m
				}
				mu.Unlock()

				if err != nil {
					metrics.CatalogBatches.WithLabelValues("failure").Inc()
					e.log.Warn().Err(err).Int("batch", i).Int("size", len(batches[i])).Msg("video lookup batch failed")
					continue
				}
				metrics.CatalogBatches.WithLabelValues("success").Inc()
				e.log.Debug().Int("batch", i).Int("size", len(batches[i])).Int("found", len(found)).Msg("video lookup batch done")
			}
		}()
	}
	wg.Wait()

	return metas, failed
}

func (e *Enricher) fetchBatch(ctx context.Context, ids []string) ([]history.VideoMeta, error) {
	ctx, cancel := e.callContext(ctx)
	defer cancel()
	return e.catalog.Videos(ctx, ids)
}

func (e *Enricher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.callTimeout > 0 {
		return context.WithTimeout(ctx, e.callTimeout)
	}
	return context.WithCancel(ctx)
}
