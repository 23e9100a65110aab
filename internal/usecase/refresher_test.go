package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"TiskyPipeline/internal/ports"
)

// gatedIndex blocks Reload until released so a refresh can be held open.
type gatedIndex struct {
	fakeIndex
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedIndex) Reload(ctx context.Context) error {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.fakeIndex.Reload(ctx)
}

// countingInvalidator records which periods were invalidated.
type countingInvalidator struct {
	mu      sync.Mutex
	periods []int
}

var _ ports.Invalidator = (*countingInvalidator)(nil)

func (c *countingInvalidator) Invalidate(period int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.periods = append(c.periods, period)
}

func TestRefreshDropsConcurrentTrigger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	index := &gatedIndex{
		fakeIndex: fakeIndex{periods: map[int][]int{}},
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	pipeline := newTestPipeline(t, &fakeSource{}, index, nil)
	refresher := NewRefresher(pipeline, index, nil, discardLogger())

	first := make(chan struct{})
	go func() {
		refresher.RefreshAll(ctx)
		close(first)
	}()
	<-index.entered

	// The second trigger arrives while the first refresh is still inside
	// Reload; it must be dropped, not queued.
	refresher.RefreshAll(ctx)

	close(index.release)
	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh did not finish")
	}

	index.mu.Lock()
	reloads := index.reloads
	index.mu.Unlock()
	if reloads != 1 {
		t.Fatalf("reloads = %d, want 1 (second trigger dropped)", reloads)
	}
}

func TestRefreshInvalidatesAndRestarts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	source := &fakeSource{}
	index := &fakeIndex{periods: map[int][]int{9: {}, 10: {}}}
	pipeline := newTestPipeline(t, source, index, nil)
	invalidator := &countingInvalidator{}
	refresher := NewRefresher(pipeline, index, invalidator, discardLogger())

	refresher.RefreshAll(ctx)
	t.Cleanup(func() { pipeline.CancelAll(context.Background()) })

	index.mu.Lock()
	reloads := index.reloads
	index.mu.Unlock()
	if reloads != 1 {
		t.Fatalf("reloads = %d, want 1", reloads)
	}
	invalidator.mu.Lock()
	defer invalidator.mu.Unlock()
	if len(invalidator.periods) != 2 {
		t.Fatalf("invalidated periods = %v, want both", invalidator.periods)
	}
}
