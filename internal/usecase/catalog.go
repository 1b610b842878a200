package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"holdup/internal/domain"
	"holdup/internal/ports"
)

// BuildStats reports what one catalog build consumed and produced.
type BuildStats struct {
	Day      string
	Batches  int
	Raw      int
	Dropped  int
	Articles int
	Tickers  int
}

// Builder turns raw staged batches into deduplicated, ticker-grouped catalog
// partitions. The build is a pure function of staging content, so rerunning
// it on unchanged input reproduces the partition byte for byte.
type Builder struct {
	staging ports.StagingStore
	catalog ports.CatalogStore
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewBuilder wires the staging source and catalog sink.
func NewBuilder(staging ports.StagingStore, catalog ports.CatalogStore, logger *slog.Logger) *Builder {
	return &Builder{
		staging:  staging,
		catalog:  catalog,
		logger:   logger,
		inFlight: map[string]struct{}{},
	}
}

// Build rebuilds the catalog partition for one day and atomically replaces
// any prior version. Two builds for the same day must not race to replace the
// same output, so a second concurrent call fails fast with
// BuildConflictError; builds for different days proceed independently.
func (b *Builder) Build(ctx context.Context, day time.Time) (BuildStats, error) {
	key := domain.DayKey(day)
	stats := BuildStats{Day: key}

	b.mu.Lock()
	if _, busy := b.inFlight[key]; busy {
		b.mu.Unlock()
		return stats, &domain.BuildConflictError{Day: key}
	}
	b.inFlight[key] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.inFlight, key)
		b.mu.Unlock()
	}()

	batches, err := b.staging.Read(ctx, day)
	if err != nil {
		return stats, err
	}
	stats.Batches = len(batches)

	catalog, raw, dropped := buildCatalog(batches)
	stats.Raw = raw
	stats.Dropped = dropped
	stats.Tickers = len(catalog)

	unique := map[string]struct{}{}
	for _, records := range catalog {
		for _, record := range records {
			unique[record.ID] = struct{}{}
		}
	}
	stats.Articles = len(unique)

	if err := b.catalog.Replace(ctx, day, catalog); err != nil {
		return stats, err
	}

	b.debug("catalog built",
		"day", key,
		"batches", stats.Batches,
		"raw", stats.Raw,
		"dropped", stats.Dropped,
		"articles", stats.Articles,
		"tickers", stats.Tickers)

	return stats, nil
}

// BuildRange rebuilds every day in [from, to]. One corrupt staging partition
// skips that day and is reported alongside the days that succeeded.
func (b *Builder) BuildRange(ctx context.Context, from, to time.Time) ([]BuildStats, []error) {
	var (
		all  []BuildStats
		errs []error
	)

	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to.UTC()); day = day.Add(24 * time.Hour) {
		stats, err := b.Build(ctx, day)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, stats)
	}

	return all, errs
}

// buildCatalog flattens batches in append order, normalizes, deduplicates by
// article id, and fans records out to one group per ticker.
func buildCatalog(batches []domain.Batch) (domain.Catalog, int, int) {
	var (
		raw     int
		dropped int
		order   []string
		latest  = map[string]domain.ArticleRecord{}
	)

	for _, batch := range batches {
		for _, entry := range batch.Articles {
			raw++
			record, err := domain.Normalize(entry, batch.FetchedAt)
			if err != nil {
				dropped++
				continue
			}

			prev, seen := latest[record.ID]
			if !seen {
				order = append(order, record.ID)
				latest[record.ID] = record
				continue
			}
			// Providers reissue ids with updated text; the most recent
			// fetch is authoritative. On an exact fetched_at tie the
			// later-staged copy wins.
			if !record.FetchedAt.Before(prev.FetchedAt) {
				latest[record.ID] = record
			}
		}
	}

	catalog := domain.Catalog{}
	for _, id := range order {
		record := latest[id]
		for _, ticker := range record.Tickers {
			catalog[ticker] = append(catalog[ticker], record)
		}
	}

	for ticker := range catalog {
		records := catalog[ticker]
		sort.SliceStable(records, func(i, j int) bool {
			if !records[i].PublishedAt.Equal(records[j].PublishedAt) {
				return records[i].PublishedAt.Before(records[j].PublishedAt)
			}
			return records[i].ID < records[j].ID
		})
		catalog[ticker] = records
	}

	return catalog, raw, dropped
}

func (b *Builder) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
