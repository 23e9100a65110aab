package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"TiskyPipeline/internal/ports"
)

// retryInterval arms a single retry after a failed refresh. The next
// scheduled fire supersedes it.
const retryInterval = time.Hour

// Refresher performs the daily full re-ingest: stop in-flight pipeline work,
// reload the print index, drop read-side caches, restart the sweep.
type Refresher struct {
	pipeline    *Pipeline
	index       ports.PrintIndex
	invalidator ports.Invalidator
	log         *slog.Logger

	mu         sync.Mutex
	refreshing bool
	retry      *time.Timer
}

// NewRefresher wires the refresher against the pipeline and caches.
func NewRefresher(pipeline *Pipeline, index ports.PrintIndex, invalidator ports.Invalidator, log *slog.Logger) *Refresher {
	return &Refresher{
		pipeline:    pipeline,
		index:       index,
		invalidator: invalidator,
		log:         log,
	}
}

// RefreshAll runs one full refresh. A trigger arriving while a refresh is in
// progress is dropped with a warning, never queued. On failure a single
// retry is armed.
func (r *Refresher) RefreshAll(ctx context.Context) {
	r.mu.Lock()
	if r.refreshing {
		r.mu.Unlock()
		r.log.Warn("refresh already in progress, dropping trigger")
		return
	}
	r.refreshing = true
	if r.retry != nil {
		r.retry.Stop()
		r.retry = nil
	}
	r.mu.Unlock()

	err := r.refresh(ctx)

	r.mu.Lock()
	r.refreshing = false
	if err != nil && ctx.Err() == nil {
		r.log.Error("refresh failed, retry armed", "error", err, "in", retryInterval)
		r.retry = time.AfterFunc(retryInterval, func() { r.RefreshAll(ctx) })
	}
	r.mu.Unlock()
}

func (r *Refresher) refresh(ctx context.Context) error {
	r.log.Info("daily refresh starting")

	// Cancellation is awaited so no stage is torn down mid-write.
	r.pipeline.CancelAll(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.index.Reload(ctx); err != nil {
		return fmt.Errorf("reload print index: %w", err)
	}

	periods, err := r.index.Periods(ctx)
	if err != nil {
		return fmt.Errorf("list periods: %w", err)
	}
	if r.invalidator != nil {
		for _, period := range periods {
			r.invalidator.Invalidate(period)
		}
	}

	r.pipeline.StartAll(ctx, true)
	r.log.Info("daily refresh started pipeline", "periods", len(periods))
	return nil
}

// Stop cancels any armed retry.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retry != nil {
		r.retry.Stop()
		r.retry = nil
	}
}
