package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"holdup/internal/crawl"
	"holdup/internal/domain"
	"holdup/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Crawler   crawl.Crawler
	Staging   ports.StagingStore
	Builder   *Builder
	Watchlist ports.Watchlist
	DaysBack  int
	Limit     int
	Logger    *slog.Logger
	Now       func() time.Time
}

// TickerResult is the per-ticker outcome of one run.
type TickerResult struct {
	Ticker string
	Staged int
	Err    error
}

// Report summarizes one pipeline run. A partially failed run still carries
// the catalog built from whatever was staged.
type Report struct {
	Day        string
	Results    []TickerResult
	StagingErr error
	Build      BuildStats
	BuildErr   error
}

// Failed returns the tickers whose crawl did not complete.
func (r Report) Failed() []TickerResult {
	var failed []TickerResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Pipeline sequences crawling, staging and catalog building for one day.
type Pipeline struct {
	crawler   crawl.Crawler
	staging   ports.StagingStore
	builder   *Builder
	watchlist ports.Watchlist
	daysBack  int
	limit     int
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	daysBack := deps.DaysBack
	if daysBack <= 0 {
		daysBack = 1
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		crawler:   deps.Crawler,
		staging:   deps.Staging,
		builder:   deps.Builder,
		watchlist: deps.Watchlist,
		daysBack:  daysBack,
		limit:     deps.Limit,
		logger:    deps.Logger,
		now:       now,
	}
}

// Run crawls each ticker, stages what came back, then rebuilds the day's
// catalog once over everything staged. One ticker's crawl failure never
// blocks the others; a staging write failure is fatal for the crawl cycle.
// Re-running for the same tickers and day is safe: staging accumulates and
// the rebuild deduplicates the accumulation away.
func (p *Pipeline) Run(ctx context.Context, tickers []string, day time.Time) Report {
	report := Report{Day: domain.DayKey(day)}

	resolved, err := p.resolveTickers(tickers)
	if err != nil {
		report.StagingErr = err
		return report
	}
	if len(resolved) == 0 {
		p.warn("nothing to crawl: no tickers given and watchlist is empty")
		return report
	}

	since := day.UTC().Truncate(24 * time.Hour).Add(-time.Duration(p.daysBack-1) * 24 * time.Hour)
	until := day.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	for _, ticker := range resolved {
		result := TickerResult{Ticker: ticker}

		articles, err := p.crawler.Fetch(ctx, crawl.Request{
			Ticker: ticker,
			Since:  since,
			Until:  until,
			Limit:  p.limit,
		})
		if err != nil {
			result.Err = &domain.CrawlError{Ticker: ticker, Err: err}
			p.warn("crawl failed", "ticker", ticker, "error", err)
			report.Results = append(report.Results, result)
			continue
		}

		if len(articles) > 0 {
			batch := domain.Batch{
				Provider:  p.crawler.Name(),
				Ticker:    ticker,
				FetchedAt: p.now().UTC(),
				Articles:  articles,
			}
			if err := p.staging.Append(ctx, day, batch); err != nil {
				result.Err = err
				report.Results = append(report.Results, result)
				report.StagingErr = err
				p.warn("staging append failed, aborting crawl cycle", "ticker", ticker, "error", err)
				break
			}
			result.Staged = len(articles)
		}

		report.Results = append(report.Results, result)
	}

	// Build over whatever made it into staging, even after partial failure:
	// a partial catalog beats none, and the rebuild stays consistent.
	if p.builder != nil {
		report.Build, report.BuildErr = p.builder.Build(ctx, day)
		if report.BuildErr != nil {
			p.warn("catalog build failed", "day", report.Day, "error", report.BuildErr)
		}
	}

	return report
}

func (p *Pipeline) resolveTickers(tickers []string) ([]string, error) {
	if len(tickers) == 0 && p.watchlist != nil {
		listed, err := p.watchlist.List()
		if err != nil {
			return nil, err
		}
		tickers = listed
	}

	seen := map[string]struct{}{}
	resolved := make([]string, 0, len(tickers))
	for _, t := range tickers {
		sym := strings.ToUpper(strings.TrimSpace(t))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		resolved = append(resolved, sym)
	}

	return resolved, nil
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
