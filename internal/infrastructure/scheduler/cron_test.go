package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestStartRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	c := NewCron("not a cron spec", time.UTC)
	if err := c.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewCron("0 3 * * *", time.FixedZone("CET", 3600))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	c := NewCron("0 3 * * *", time.UTC)
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewCron("0 3 * * *", time.UTC)
	if err := c.Start(context.Background(), func(time.Time) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestNilJobIsNoop(t *testing.T) {
	t.Parallel()

	c := NewCron("0 3 * * *", time.UTC)
	if err := c.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
