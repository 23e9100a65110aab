package usecase

import (
	"context"
	"time"

	"TiskyPipeline/internal/ports"
)

// DailyRefresh wires the cron-like driver to the refresher.
type DailyRefresh struct {
	driver    ports.Scheduler
	refresher *Refresher
}

// NewDailyRefresh returns a helper to start/stop the recurring refresh.
func NewDailyRefresh(driver ports.Scheduler, refresher *Refresher) *DailyRefresh {
	return &DailyRefresh{driver: driver, refresher: refresher}
}

// Start registers the refresh job with the provided scheduler.
func (d *DailyRefresh) Start(ctx context.Context) error {
	if d.driver == nil || d.refresher == nil {
		return nil
	}

	job := func(time.Time) {
		d.refresher.RefreshAll(ctx)
	}

	return d.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler and any armed retry.
func (d *DailyRefresh) Stop(ctx context.Context) error {
	if d.refresher != nil {
		d.refresher.Stop()
	}
	if d.driver == nil {
		return nil
	}

	return d.driver.Stop(ctx)
}
