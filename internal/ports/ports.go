package ports

import (
	"context"
	"time"

	"holdup/internal/domain"
)

// StagingStore is the append-only raw article log, partitioned by UTC day.
// Appends never inspect or rewrite existing content; duplicates are normal.
type StagingStore interface {
	Append(ctx context.Context, day time.Time, batch domain.Batch) error
	Read(ctx context.Context, day time.Time) ([]domain.Batch, error)
	ReadRange(ctx context.Context, from, to time.Time) (map[string][]domain.Batch, error)
	Days(ctx context.Context) ([]string, error)
}

// CatalogStore holds the deduplicated, ticker-grouped read model. Replace
// swaps the whole partition atomically; readers never observe a partial day.
type CatalogStore interface {
	Replace(ctx context.Context, day time.Time, catalog domain.Catalog) error
	Read(ctx context.Context, day time.Time) (domain.Catalog, error)
	Days(ctx context.Context) ([]string, error)
}

// Watchlist persists the ordered set of tracked ticker symbols.
type Watchlist interface {
	List() ([]string, error)
	Add(tickers []string) ([]string, error)
	Remove(ticker string) (bool, error)
}

// ChatClient renders a prose completion for a system/user prompt pair.
type ChatClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Notifier pushes a short digest to an outbound channel (Telegram, etc.).
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when the pipeline executes in watch mode.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
