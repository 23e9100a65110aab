// Package app wires configuration into the full print-processing pipeline:
// artifact store, scrapers, document handling, LLM providers, caches, and
// the daily refresh.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"TiskyPipeline/internal/cache"
	"TiskyPipeline/internal/config"
	"TiskyPipeline/internal/domain"
	"TiskyPipeline/internal/infrastructure/collector"
	"TiskyPipeline/internal/infrastructure/document"
	"TiskyPipeline/internal/infrastructure/llm"
	"TiskyPipeline/internal/infrastructure/printindex"
	"TiskyPipeline/internal/infrastructure/scheduler"
	"TiskyPipeline/internal/infrastructure/store"
	"TiskyPipeline/internal/infrastructure/telegram"
	"TiskyPipeline/internal/logging"
	"TiskyPipeline/internal/ports"
	"TiskyPipeline/internal/ratelimit"
	"TiskyPipeline/internal/taxonomy"
	"TiskyPipeline/internal/usecase"
)

// Application owns the wired pipeline and its lifecycle.
type Application struct {
	cfg      config.Config
	log      *slog.Logger
	pipeline *usecase.Pipeline
	cache    *cache.Manager
	daily    *usecase.DailyRefresh
	closer   func() error
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	artifacts, closer, err := buildStore(cfg.Store, baseLogger)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(cfg.Source.Delay())
	scraper := collector.New(cfg.Source.BaseURL, cfg.Source.Timeout(), limiter, baseLogger.With("component", "collector"))
	downloader := document.NewDownloader(cfg.Source.BaseURL, artifacts, limiter, baseLogger.With("component", "downloader"))
	extractor := document.NewExtractor(artifacts, baseLogger.With("component", "extractor"))

	llmFactory, err := llm.NewFactory(cfg.LLM, baseLogger.With("component", "llm"))
	if err != nil {
		return nil, fmt.Errorf("configure llm: %w", err)
	}

	table := store.NewClassificationTable(artifacts)
	index := printindex.NewFile(cfg.Index.Path, baseLogger.With("component", "printindex"))
	cacheManager := cache.NewManager(artifacts, table, scraper, baseLogger.With("component", "cache"))

	var notifier ports.Notifier = ports.NopNotifier{}
	if cfg.Notify.BotToken != "" && cfg.Notify.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notify.BotToken, cfg.Notify.ChatID)
	}

	stages := usecase.NewStages(
		artifacts, table, scraper, scraper, downloader, extractor,
		taxonomy.NewClassifier(), baseLogger.With("component", "stages"),
	)
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Stages:     stages,
		Index:      index,
		LLMFactory: llmFactory,
		Notifier:   notifier,
		OnComplete: func(result domain.PeriodResult) { cacheManager.Invalidate(result.Period) },
		Logger:     baseLogger.With("component", "pipeline"),
	})

	refresher := usecase.NewRefresher(pipeline, index, cacheManager, baseLogger.With("component", "refresher"))
	var daily *usecase.DailyRefresh
	if cfg.Refresh.Enabled {
		spec := fmt.Sprintf("0 %d * * *", cfg.Refresh.Hour)
		driver := scheduler.NewCron(spec, cfg.Refresh.Location())
		daily = usecase.NewDailyRefresh(driver, refresher)
	}

	return &Application{
		cfg:      cfg,
		log:      baseLogger,
		pipeline: pipeline,
		cache:    cacheManager,
		daily:    daily,
		closer:   closer,
	}, nil
}

func buildStore(cfg config.StoreConfig, log *slog.Logger) (ports.ArtifactStore, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "fs":
		return store.NewFS(cfg.DataDir, log.With("component", "store.fs")), nil, nil
	case "sqlite":
		db, err := store.NewSQLite(cfg.SQLitePath, log.With("component", "store.sqlite"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// Pipeline exposes the orchestrator for foreground runs.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Cache exposes the read-side cache manager.
func (a *Application) Cache() *cache.Manager {
	return a.cache
}

// Run starts the all-periods pipeline and, when configured, the daily
// refresh, then blocks until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.pipeline.StartAll(ctx, false)

	if a.daily != nil {
		if err := a.daily.Start(ctx); err != nil {
			return fmt.Errorf("start daily refresh: %w", err)
		}
		a.log.Info("daily refresh scheduled", "hour", a.cfg.Refresh.Hour, "zone", a.cfg.Refresh.Location().String())
	}

	<-ctx.Done()
	return nil
}

// Shutdown cancels in-flight work, awaits it, and releases resources.
func (a *Application) Shutdown(ctx context.Context) error {
	if a.daily != nil {
		if err := a.daily.Stop(ctx); err != nil {
			a.log.Warn("scheduler stop failed", "error", err)
		}
	}
	a.pipeline.CancelAll(ctx)
	if a.closer != nil {
		return a.closer()
	}
	return nil
}
