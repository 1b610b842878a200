package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"holdup/internal/crawl"
	"holdup/internal/domain"
)

func TestRunPartialCrawlFailure(t *testing.T) {
	t.Parallel()

	staging := newMemStaging()
	catalog := newMemCatalog()
	day := mustDay("2024-01-05")

	crawler := &fakeCrawler{fetch: func(_ context.Context, req crawl.Request) ([]domain.RawArticle, error) {
		switch req.Ticker {
		case "MSFT":
			return nil, fmt.Errorf("connection reset")
		default:
			return []domain.RawArticle{
				raw(req.Ticker+"-1", []string{req.Ticker}, "2024-01-05T09:00:00Z"),
			}, nil
		}
	}}

	pipeline := NewPipeline(PipelineDeps{
		Crawler: crawler,
		Staging: staging,
		Builder: NewBuilder(staging, catalog, nil),
		Now:     func() time.Time { return time.Date(2024, 1, 5, 11, 0, 0, 0, time.UTC) },
	})

	report := pipeline.Run(context.Background(), []string{"AAPL", "MSFT", "NVDA"}, day)

	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Ticker != "MSFT" {
		t.Fatalf("expected MSFT to fail, got %+v", failed)
	}
	var crawlErr *domain.CrawlError
	if !errors.As(failed[0].Err, &crawlErr) {
		t.Fatalf("expected CrawlError, got %v", failed[0].Err)
	}
	if report.BuildErr != nil {
		t.Fatalf("build should succeed on partial input: %v", report.BuildErr)
	}

	built, _ := catalog.Read(context.Background(), day)
	if len(built["AAPL"]) != 1 || len(built["NVDA"]) != 1 {
		t.Fatalf("surviving tickers missing from catalog: %v", built)
	}
	if len(built["MSFT"]) != 0 {
		t.Fatalf("failed ticker should have no group: %v", built["MSFT"])
	}
}

func TestRunFallsBackToWatchlist(t *testing.T) {
	t.Parallel()

	staging := newMemStaging()
	catalog := newMemCatalog()
	day := mustDay("2024-01-05")

	var fetched []string
	crawler := &fakeCrawler{fetch: func(_ context.Context, req crawl.Request) ([]domain.RawArticle, error) {
		fetched = append(fetched, req.Ticker)
		return nil, nil
	}}

	pipeline := NewPipeline(PipelineDeps{
		Crawler:   crawler,
		Staging:   staging,
		Builder:   NewBuilder(staging, catalog, nil),
		Watchlist: &fakeWatchlist{tickers: []string{"AAPL", "MSFT"}},
	})

	report := pipeline.Run(context.Background(), nil, day)

	if !reflect.DeepEqual(fetched, []string{"AAPL", "MSFT"}) {
		t.Fatalf("watchlist not used: %v", fetched)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	// Empty fetches stage nothing.
	if len(staging.batches) != 0 {
		t.Fatalf("empty crawl results must not be staged: %v", staging.batches)
	}
}

func TestRunEmptyResolutionIsNoop(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(PipelineDeps{
		Crawler:   &fakeCrawler{fetch: func(context.Context, crawl.Request) ([]domain.RawArticle, error) { return nil, nil }},
		Staging:   newMemStaging(),
		Watchlist: &fakeWatchlist{},
	})

	report := pipeline.Run(context.Background(), nil, mustDay("2024-01-05"))
	if len(report.Results) != 0 || report.StagingErr != nil {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestRunIsIdempotentAtCatalogLayer(t *testing.T) {
	t.Parallel()

	staging := newMemStaging()
	catalog := newMemCatalog()
	day := mustDay("2024-01-05")

	crawler := &fakeCrawler{fetch: func(_ context.Context, req crawl.Request) ([]domain.RawArticle, error) {
		return []domain.RawArticle{raw("a1", []string{"AAPL"}, "2024-01-05T09:00:00Z")}, nil
	}}

	pipeline := NewPipeline(PipelineDeps{
		Crawler: crawler,
		Staging: staging,
		Builder: NewBuilder(staging, catalog, nil),
		Now:     func() time.Time { return time.Date(2024, 1, 5, 11, 0, 0, 0, time.UTC) },
	})

	pipeline.Run(context.Background(), []string{"AAPL"}, day)
	first, _ := catalog.Read(context.Background(), day)

	pipeline.Run(context.Background(), []string{"AAPL"}, day)
	second, _ := catalog.Read(context.Background(), day)

	// Staging accumulated a second raw batch; the catalog did not change.
	if len(staging.batches["2024-01-05"]) != 2 {
		t.Fatalf("staging should accumulate, got %d batches", len(staging.batches["2024-01-05"]))
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("catalog changed across identical reruns")
	}
	if len(second["AAPL"]) != 1 {
		t.Fatalf("duplicates not collapsed: %v", second["AAPL"])
	}
}

func TestRunStagingWriteFailureAbortsCycle(t *testing.T) {
	t.Parallel()

	staging := newMemStaging()
	staging.writeErr = &domain.StorageWriteError{Kind: "staging", Day: "2024-01-05", Err: errors.New("disk full")}
	catalog := newMemCatalog()

	var fetched []string
	crawler := &fakeCrawler{fetch: func(_ context.Context, req crawl.Request) ([]domain.RawArticle, error) {
		fetched = append(fetched, req.Ticker)
		return []domain.RawArticle{raw(req.Ticker, []string{req.Ticker}, "2024-01-05T09:00:00Z")}, nil
	}}

	pipeline := NewPipeline(PipelineDeps{
		Crawler: crawler,
		Staging: staging,
		Builder: NewBuilder(staging, catalog, nil),
	})

	report := pipeline.Run(context.Background(), []string{"AAPL", "MSFT"}, mustDay("2024-01-05"))

	var writeErr *domain.StorageWriteError
	if !errors.As(report.StagingErr, &writeErr) {
		t.Fatalf("expected StorageWriteError in report, got %v", report.StagingErr)
	}
	// The cycle aborts after the first failed append.
	if !reflect.DeepEqual(fetched, []string{"AAPL"}) {
		t.Fatalf("expected crawl to stop after write failure, fetched %v", fetched)
	}
}

func TestRunDeduplicatesRequestedTickers(t *testing.T) {
	t.Parallel()

	staging := newMemStaging()
	var fetched []string
	crawler := &fakeCrawler{fetch: func(_ context.Context, req crawl.Request) ([]domain.RawArticle, error) {
		fetched = append(fetched, req.Ticker)
		return nil, nil
	}}

	pipeline := NewPipeline(PipelineDeps{Crawler: crawler, Staging: staging})
	pipeline.Run(context.Background(), []string{"aapl", "AAPL", " msft "}, mustDay("2024-01-05"))

	if !reflect.DeepEqual(fetched, []string{"AAPL", "MSFT"}) {
		t.Fatalf("tickers not normalized: %v", fetched)
	}
}
