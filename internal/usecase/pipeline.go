// Package usecase orchestrates the print-processing pipeline: per-period
// stage sequencing, single-flight run control, and the daily full refresh.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"TiskyPipeline/internal/domain"
	"TiskyPipeline/internal/ports"
)

// RunState is the lifecycle of one period run.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// RunStatus is a snapshot of one period's pipeline run.
type RunStatus struct {
	RunID      string
	State      RunState
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// RunOptions narrow a period run. The zero value processes every print of
// the period with warm caches honored.
type RunOptions struct {
	Force  bool  // redo cached work
	Prints []int // restrict to these print numbers (empty = all)
	Limit  int   // cap processed prints (0 = no cap)
}

type periodRun struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	status RunStatus
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Stages     *Stages
	Index      ports.PrintIndex
	LLMFactory ports.LLMFactory
	Notifier   ports.Notifier
	OnComplete func(domain.PeriodResult)
	Logger     *slog.Logger
}

// Pipeline sequences the pipeline stages per period and across periods.
// At most one run is active per period and at most one all-periods sweep
// globally; periods run strictly sequentially to respect the single rate
// budget against the parliament site.
type Pipeline struct {
	stages     *Stages
	index      ports.PrintIndex
	llmFactory ports.LLMFactory
	notifier   ports.Notifier
	onComplete func(domain.PeriodResult)
	log        *slog.Logger

	mu        sync.Mutex
	runs      map[int]*periodRun
	allActive bool
	allCancel context.CancelFunc
	allDone   chan struct{}
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = ports.NopNotifier{}
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		stages:     deps.Stages,
		index:      deps.Index,
		llmFactory: deps.LLMFactory,
		notifier:   notifier,
		onComplete: deps.OnComplete,
		log:        log,
		runs:       map[int]*periodRun{},
	}
}

// Status reports the last known run state for a period.
func (p *Pipeline) Status(period int) RunStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if run, ok := p.runs[period]; ok {
		return run.status
	}
	return RunStatus{State: StateIdle}
}

// StartPeriod launches a background run for one period. Single-flight: when
// a run for that period is still active the call is a no-op and started is
// false; the returned id then identifies the active run.
func (p *Pipeline) StartPeriod(ctx context.Context, period int, opts RunOptions) (runID string, started bool) {
	p.mu.Lock()
	if run, ok := p.runs[period]; ok && run.status.State == StateRunning {
		p.mu.Unlock()
		p.log.Info("period run already active", "period", period, "run_id", run.id)
		return run.id, false
	}

	runCtx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	run := &periodRun{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
		status: RunStatus{RunID: id, State: StateRunning, StartedAt: time.Now()},
	}
	p.runs[period] = run
	p.mu.Unlock()

	go func() {
		defer cancel()
		defer close(run.done)
		err := p.runPeriod(runCtx, period, opts)
		p.finish(period, run, err)
	}()

	return run.id, true
}

// StartAll launches a background sweep over every known period, newest
// first. A second call while a sweep is active is a no-op.
func (p *Pipeline) StartAll(ctx context.Context, force bool) bool {
	p.mu.Lock()
	if p.allActive {
		p.mu.Unlock()
		p.log.Info("all-periods run already active")
		return false
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	p.allActive = true
	p.allCancel = cancel
	done := make(chan struct{})
	p.allDone = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		defer func() {
			p.mu.Lock()
			p.allActive = false
			p.mu.Unlock()
		}()
		p.runAll(sweepCtx, force)
	}()
	return true
}

// runAll sweeps periods sequentially. A failure in one period is logged and
// the sweep continues with the next. When the index cannot supply any
// periods the built-in electoral period table drives the sweep instead.
func (p *Pipeline) runAll(ctx context.Context, force bool) {
	periods, err := p.index.Periods(ctx)
	if err != nil {
		p.log.Warn("cannot list periods from index, sweeping known periods", "error", err)
		periods = domain.KnownPeriods()
	} else if len(periods) == 0 {
		p.log.Warn("print index lists no periods, sweeping known periods")
		periods = domain.KnownPeriods()
	}
	sort.Sort(sort.Reverse(sort.IntSlice(periods)))

	for _, period := range periods {
		if ctx.Err() != nil {
			return
		}
		runID, started := p.StartPeriod(ctx, period, RunOptions{Force: force})
		if !started {
			continue
		}
		p.awaitRun(period, runID)
	}
	p.log.Info("all-periods run finished", "periods", len(periods))
}

func (p *Pipeline) awaitRun(period int, runID string) {
	p.mu.Lock()
	run, ok := p.runs[period]
	p.mu.Unlock()
	if !ok || run.id != runID {
		return
	}
	<-run.done
}

// RunPeriod executes one period synchronously in the caller's goroutine,
// for foreground CLI use. It still claims the period's single-flight slot.
func (p *Pipeline) RunPeriod(ctx context.Context, period int, opts RunOptions) error {
	runID, started := p.StartPeriod(ctx, period, opts)
	if !started {
		return fmt.Errorf("period %d run already active", period)
	}
	p.awaitRun(period, runID)
	if status := p.Status(period); status.State == StateFailed {
		return status.Err
	}
	return nil
}

// CancelAll cancels every active run and waits for each to wind down.
// Cancellation is always awaited so no stage is torn down mid-write.
func (p *Pipeline) CancelAll(ctx context.Context) {
	p.mu.Lock()
	if p.allCancel != nil {
		p.allCancel()
	}
	var pending []*periodRun
	for _, run := range p.runs {
		if run.status.State == StateRunning {
			run.cancel()
			pending = append(pending, run)
		}
	}
	allDone := p.allDone
	p.mu.Unlock()

	for _, run := range pending {
		select {
		case <-run.done:
		case <-ctx.Done():
			return
		}
	}
	if allDone != nil {
		select {
		case <-allDone:
		case <-ctx.Done():
		}
	}
}

func (p *Pipeline) finish(period int, run *periodRun, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	run.status.FinishedAt = time.Now()
	if err != nil {
		run.status.State = StateFailed
		run.status.Err = err
		p.log.Error("period run failed", "period", period, "run_id", run.id, "error", err)
		return
	}
	run.status.State = StateCompleted
	p.log.Info("period run completed", "period", period, "run_id", run.id,
		"duration", run.status.FinishedAt.Sub(run.status.StartedAt).Round(time.Second))
}

// runPeriod executes the fixed stage order for one period. A panic anywhere
// in the stage sequence is converted to a period-level failure so the next
// period is unaffected.
func (p *Pipeline) runPeriod(ctx context.Context, period int, opts RunOptions) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("period %d panicked: %v", period, r)
		}
	}()

	prints, err := p.selectPrints(ctx, period, opts)
	if err != nil {
		return err
	}
	if len(prints) == 0 {
		p.log.Info("no prints indexed for period", "period", period)
		return nil
	}
	p.log.Info("period run starting", "period", period, "prints", len(prints), "force", opts.Force)

	// A fresh client per run re-probes provider availability, so a model
	// started mid-sweep is picked up by the next period.
	var llm ports.LLM
	if p.llmFactory != nil {
		llm = p.llmFactory()
	}

	histories := p.stages.ScrapeHistories(ctx, period, prints, opts.Force)
	pdfKeys, textKeys := p.stages.ProcessDocuments(ctx, period, prints, opts.Force)

	records, err := p.stages.ClassifyAndPersist(ctx, period, textKeys, llm)
	if err != nil {
		return err
	}
	if err := p.stages.ConsolidateTopics(ctx, period, llm); err != nil {
		return err
	}

	lawChanges := p.stages.ScrapeLawChanges(ctx, period, prints, opts.Force)
	subVersions := p.stages.ProcessSubVersions(ctx, period, prints, opts.Force)
	diffsCS, diffsEN := p.stages.AnalyzeDiffs(ctx, period, subVersions, llm)

	if err := ctx.Err(); err != nil {
		return err
	}

	result := buildResult(period, histories, pdfKeys, textKeys, records, lawChanges, subVersions, diffsCS, diffsEN)
	if p.onComplete != nil {
		p.onComplete(result)
	}
	if err := p.notifier.PeriodCompleted(ctx, result); err != nil {
		p.log.Warn("completion notification failed", "period", period, "error", err)
	}
	return nil
}

func (p *Pipeline) selectPrints(ctx context.Context, period int, opts RunOptions) ([]int, error) {
	prints := opts.Prints
	if len(prints) == 0 {
		indexed, err := p.index.Prints(ctx, period)
		if err != nil {
			return nil, fmt.Errorf("list prints for period %d: %w", period, err)
		}
		prints = indexed
	}
	sorted := make([]int, len(prints))
	copy(sorted, prints)
	sort.Ints(sorted)
	if opts.Limit > 0 && len(sorted) > opts.Limit {
		sorted = sorted[:opts.Limit]
	}
	return sorted, nil
}
