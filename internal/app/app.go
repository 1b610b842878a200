package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"holdup/internal/config"
	"holdup/internal/crawl"
	"holdup/internal/domain"
	"holdup/internal/infrastructure/crawler"
	"holdup/internal/infrastructure/llm"
	"holdup/internal/infrastructure/scheduler"
	"holdup/internal/infrastructure/storage"
	"holdup/internal/infrastructure/telegram"
	"holdup/internal/infrastructure/watchlist"
	"holdup/internal/logging"
	"holdup/internal/ports"
	"holdup/internal/usecase"
)

// Application wires configuration to stores, crawlers and use cases.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sql.DB

	Staging   ports.StagingStore
	Catalog   ports.CatalogStore
	Watchlist ports.Watchlist

	pipeline  *usecase.Pipeline
	builder   *usecase.Builder
	consumer  *usecase.SummaryConsumer
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance. The storage backend is
// Postgres when a DSN is configured, local files otherwise.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := storage.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.Staging = storage.NewPostgresStaging(db)
		a.Catalog = storage.NewPostgresCatalog(db)
	} else {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		a.Staging = storage.NewFileStaging(cfg.StagingDir())
		a.Catalog = storage.NewFileCatalog(cfg.CatalogDir())
	}

	a.Watchlist = watchlist.New(cfg.WatchlistPath())

	registry := crawl.NewRegistry()
	registry.Register(crawler.NewAlpacaCrawler(cfg.Alpaca, nil))
	registry.Register(crawler.NewFinvizCrawler("", nil))

	provider, err := registry.Resolve(cfg.Crawler.Provider)
	if err != nil {
		return nil, err
	}

	a.builder = usecase.NewBuilder(a.Staging, a.Catalog, baseLogger.With("component", "builder"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Crawler:   provider,
		Staging:   a.Staging,
		Builder:   a.builder,
		Watchlist: a.Watchlist,
		DaysBack:  cfg.Crawler.DaysBack,
		Limit:     cfg.Crawler.Limit,
		Logger:    baseLogger.With("component", "pipeline"),
	})

	var chatClient ports.ChatClient
	if cfg.ChatGPT.APIKey != "" {
		chatClient = llm.NewChatGPTClient(cfg.ChatGPT)
	}
	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	a.consumer = usecase.NewSummaryConsumer(usecase.SummaryDeps{
		Catalog:      a.Catalog,
		Chat:         chatClient,
		Notifier:     notifier,
		OutputDir:    cfg.OutputDir(),
		SystemPrompt: cfg.ChatGPT.SystemPrompt,
		Logger:       baseLogger.With("component", "summary"),
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Location())
	a.scheduler = usecase.NewScheduler(driver, a.pipeline, baseLogger.With("component", "scheduler"))

	return a, nil
}

// Today resolves the current calendar day in the configured timezone.
func (a *Application) Today() time.Time {
	return domain.LocalDay(time.Now().In(a.cfg.Location()))
}

// Run crawls the tickers, stages the results and rebuilds the day's catalog.
func (a *Application) Run(ctx context.Context, tickers []string, day time.Time) usecase.Report {
	return a.pipeline.Run(ctx, tickers, day)
}

// BuildCatalog rebuilds one catalog partition from staging.
func (a *Application) BuildCatalog(ctx context.Context, day time.Time) (usecase.BuildStats, error) {
	return a.builder.Build(ctx, day)
}

// BuildCatalogRange rebuilds every partition in [from, to].
func (a *Application) BuildCatalogRange(ctx context.Context, from, to time.Time) ([]usecase.BuildStats, []error) {
	return a.builder.BuildRange(ctx, from, to)
}

// Summarize renders the day's catalog into a markdown summary. Returns the
// output path, empty when there was nothing to summarize.
func (a *Application) Summarize(ctx context.Context, day time.Time) (string, error) {
	return a.consumer.Consume(ctx, day)
}

// Watch runs the pipeline on the configured cron schedule until ctx ends.
func (a *Application) Watch(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

// Close releases backend resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
