package usecase

import (
	"context"
	"log/slog"
	"time"

	"holdup/internal/domain"
	"holdup/internal/ports"
)

// Scheduler wires the cron driver to a recurring pipeline run over the
// watchlist. Used by `holdup watch`.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the underlying driver. Each trigger runs
// the full watchlist for the day it fired on.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report := s.pipeline.Run(ctx, nil, domain.LocalDay(trigger))
		if s.logger == nil {
			return
		}
		s.logger.Info("scheduled run finished",
			"day", report.Day,
			"tickers", len(report.Results),
			"failed", len(report.Failed()),
			"articles", report.Build.Articles)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
