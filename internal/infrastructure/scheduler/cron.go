// Package scheduler runs recurring jobs on a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"TiskyPipeline/internal/ports"
)

// Cron drives a single job from a standard 5-field cron expression evaluated
// in a fixed location, so a "0 3 * * *" spec fires at 3 AM in that zone.
type Cron struct {
	spec string
	loc  *time.Location

	mu      sync.Mutex
	runner  *cron.Cron
	stopped chan struct{}
}

var _ ports.Scheduler = (*Cron)(nil)

// NewCron builds a scheduler from a cron expression and location.
func NewCron(spec string, loc *time.Location) *Cron {
	return &Cron{spec: spec, loc: loc}
}

// Start registers the job and begins the schedule. Idempotent; a second call
// while running is a no-op.
func (c *Cron) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runner != nil {
		return nil
	}

	runner := cron.New(cron.WithLocation(c.loc))
	if _, err := runner.AddFunc(c.spec, func() { job(time.Now().In(c.loc)) }); err != nil {
		return fmt.Errorf("parse cron spec %q: %w", c.spec, err)
	}
	runner.Start()

	stopped := make(chan struct{})
	c.runner = runner
	c.stopped = stopped

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop(context.Background())
		case <-stopped:
		}
	}()

	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (c *Cron) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.runner
	stopped := c.stopped
	c.runner = nil
	c.stopped = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}
	close(stopped)

	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
