package usecase

import (
	"context"
	"time"

	"NewsCrawler/internal/ports"
)

// Scheduler wires the cron driver with the batch use case.
type Scheduler struct {
	driver ports.Scheduler
	batch  *Batch
}

// NewScheduler returns a helper to start/stop recurring crawls.
func NewScheduler(driver ports.Scheduler, batch *Batch) *Scheduler {
	return &Scheduler{driver: driver, batch: batch}
}

// Start registers a run over all sources with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.batch == nil {
		return nil
	}

	job := func(time.Time) {
		_ = s.batch.RunAll(ctx)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
