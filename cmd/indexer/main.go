// Package main wires together the indexer binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-indexer/internal/app"
	"github.com/JakeFAU/site-indexer/internal/config"
	"github.com/JakeFAU/site-indexer/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Getenv("INDEXER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return 1
	}
	var logOutputs []string
	if cfg.Paths.LogFile != "" {
		logOutputs = append(logOutputs, cfg.Paths.LogFile)
	}
	logger, err := logging.New(cfg.Logging.Development, logOutputs...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		return 1
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil && !errors.Is(syncErr, syscall.ENOTTY) && !errors.Is(syncErr, syscall.EINVAL) {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{Stdout: os.Stdout})
	if err != nil {
		logger.Error("service init failed", zap.Error(err))
		return 1
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("service shutdown failed", zap.Error(closeErr))
		}
	}()

	if cfg.Schedule.Cron != "" {
		return schedule(ctx, a, cfg.Schedule.Cron, logger)
	}
	return runOnce(ctx, a, logger)
}

func runOnce(ctx context.Context, a *app.App, logger *zap.Logger) int {
	out, err := a.RunOnce(ctx)
	switch {
	case err == nil:
		logger.Info("run finished", zap.String("run_id", out.RunID), zap.Stringer("state", out.State), zap.String("reason", out.Reason))
		return 0
	case errors.Is(err, context.Canceled):
		logger.Warn("run interrupted", zap.String("run_id", out.RunID), zap.Int("attempted", len(out.Results)))
		return 130
	default:
		logger.Error("run failed", zap.String("run_id", out.RunID), zap.Stringer("state", out.State), zap.Error(err))
		return 1
	}
}

// schedule runs the pipeline on a cron expression (UTC) until ctx is done.
// Overlapping triggers are skipped so at most one run is in flight.
func schedule(ctx context.Context, a *app.App, expr string, logger *zap.Logger) int {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(expr, func() {
		runOnce(ctx, a, logger)
	})
	if err != nil {
		logger.Error("invalid schedule", zap.String("cron", expr), zap.Error(err))
		return 1
	}
	c.Start()
	logger.Info("scheduler started", zap.String("cron", expr), zap.Time("next", c.Entries()[0].Next))

	<-ctx.Done()
	logger.Info("scheduler stopping")
	<-c.Stop().Done()
	return 0
}
