package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"TiskyPipeline/internal/app"
	"TiskyPipeline/internal/config"
	"TiskyPipeline/internal/domain"
	"TiskyPipeline/internal/logging"
	"TiskyPipeline/internal/usecase"
)

const shutdownGrace = 30 * time.Second

func main() {
	// A missing .env is the normal case; real environment always wins.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, logLevel string

	root := &cobra.Command{
		Use:           "tiskypipeline",
		Short:         "Background processing pipeline for parliamentary prints",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if configPath != "" {
				os.Setenv("TISKY_CONFIG", configPath)
			}
			if logLevel != "" {
				os.Setenv("LOG_LEVEL", logLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(), newFetchCmd())
	return root
}

// newRunCmd is the daemon mode: process all periods, keep the daily refresh
// running, exit on SIGINT/SIGTERM.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline for all periods and keep the daily refresh scheduled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				return err
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return application.Shutdown(shutdownCtx)
		},
	}
}

// newFetchCmd runs a single period in the foreground and exits.
func newFetchCmd() *cobra.Command {
	var period, ct, limit int
	var force bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Process one period in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			label, known := domain.PeriodLabels[period]
			if !known {
				return fmt.Errorf("unknown electoral period %d (known: 1-%d)", period, domain.DefaultPeriod)
			}

			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level)
			logger.Info("processing period", "period", period, "years", label)

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := usecase.RunOptions{Force: force, Limit: limit}
			if ct > 0 {
				opts.Prints = []int{ct}
			}

			runErr := application.Pipeline().RunPeriod(ctx, period, opts)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := application.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown failed", "error", err)
			}
			return runErr
		},
	}
	cmd.Flags().IntVar(&period, "period", 0, "electoral period to process")
	cmd.Flags().IntVar(&ct, "ct", 0, "restrict to a single print number")
	cmd.Flags().IntVar(&limit, "limit", 0, "cap the number of prints processed")
	cmd.Flags().BoolVar(&force, "force", false, "redo cached work")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}
