// Package app initializes and holds the long-lived services of one indexer
// process, acting as a dependency injection container. Backends are picked
// from config.Config and fail fast when they cannot be reached.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-indexer/internal/clock/system"
	"github.com/JakeFAU/site-indexer/internal/config"
	"github.com/JakeFAU/site-indexer/internal/console"
	"github.com/JakeFAU/site-indexer/internal/credentials"
	"github.com/JakeFAU/site-indexer/internal/id/uuid"
	"github.com/JakeFAU/site-indexer/internal/indexing"
	"github.com/JakeFAU/site-indexer/internal/metrics"
	"github.com/JakeFAU/site-indexer/internal/pipeline"
	"github.com/JakeFAU/site-indexer/internal/processed"
	fileprocessed "github.com/JakeFAU/site-indexer/internal/processed/file"
	memoryprocessed "github.com/JakeFAU/site-indexer/internal/processed/memory"
	pgprocessed "github.com/JakeFAU/site-indexer/internal/processed/postgres"
	redisprocessed "github.com/JakeFAU/site-indexer/internal/processed/redis"
	"github.com/JakeFAU/site-indexer/internal/quota"
	filequota "github.com/JakeFAU/site-indexer/internal/quota/file"
	memoryquota "github.com/JakeFAU/site-indexer/internal/quota/memory"
	pgquota "github.com/JakeFAU/site-indexer/internal/quota/postgres"
	redisquota "github.com/JakeFAU/site-indexer/internal/quota/redis"
	"github.com/JakeFAU/site-indexer/internal/report"
	"github.com/JakeFAU/site-indexer/internal/sink"
	"github.com/JakeFAU/site-indexer/internal/sink/jsonl"
	pubsubsink "github.com/JakeFAU/site-indexer/internal/sink/pubsub"
	"github.com/JakeFAU/site-indexer/internal/sitemap"
	"github.com/JakeFAU/site-indexer/internal/storage"
	gcsstorage "github.com/JakeFAU/site-indexer/internal/storage/gcs"
	localstorage "github.com/JakeFAU/site-indexer/internal/storage/local"
	memorystorage "github.com/JakeFAU/site-indexer/internal/storage/memory"
	"github.com/JakeFAU/site-indexer/internal/submit"
)

// redisQuotaTTL keeps yesterday's record around long enough to be rolled over.
const redisQuotaTTL = 48 * time.Hour

// App holds the shared services for the process.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	redis    *goredis.Client
	runner   *pipeline.Runner
	recorder *metrics.Recorder
	closers  []func() error
}

// Options overrides process-level collaborators, mainly for tests.
type Options struct {
	// Stdout receives the console banner, progress lines and summary.
	Stdout io.Writer
	// HTTPClient is used for sitemap, token and indexing calls.
	HTTPClient *http.Client
}

// New builds every service named by cfg. On error, anything already opened
// is closed.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			if closeErr := a.Close(); closeErr != nil {
				logger.Warn("failed to close services after init failure", zap.Error(closeErr))
			}
		}
	}()
	logger.Info("initializing indexer services",
		zap.String("domain", cfg.Site.Domain),
		zap.String("quota_backend", cfg.Quota.Backend),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("pubsub", cfg.PubSub.Enabled()),
		zap.Bool("skip_processed", cfg.Indexing.SkipProcessed),
	)

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout()}
	}
	clock := system.New()

	quotaStore, err := a.newQuotaStore(ctx)
	if err != nil {
		return nil, err
	}
	seen, err := a.newProcessedStore(ctx)
	if err != nil {
		return nil, err
	}
	blobs, summaryPath, err := a.newBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	results, err := a.newResultSink(ctx, seen)
	if err != nil {
		return nil, err
	}

	a.recorder = metrics.NewRecorder(cfg.Site.Domain)
	// Each run loads the key again, so a rotated key is picked up by the next cron tick.
	tokens := func() indexing.TokenProvider {
		return credentials.New(credentials.Config{
			File:       cfg.Credentials.File,
			JSON:       cfg.Credentials.JSON,
			Scopes:     cfg.Indexing.Scopes,
			HTTPClient: client,
		}, logger.Named("credentials"))
	}
	submitter := submit.New(client, tokens(), results, clock, clock, a.recorder, submit.Config{
		Endpoint:  cfg.Indexing.Endpoint,
		UserAgent: cfg.HTTP.UserAgent,
		PaceEvery: cfg.Indexing.PaceEvery,
		PaceDelay: cfg.Indexing.PaceDelay,
	}, logger.Named("submit"))

	var display pipeline.Display
	if opts.Stdout != nil {
		display = console.NewPrinter(opts.Stdout)
	}
	a.runner = pipeline.New(
		sitemap.NewReader(client, cfg.HTTP.UserAgent, logger.Named("sitemap")),
		quota.NewTracker(quotaStore, clock, logger.Named("quota")),
		submitter,
		tokens,
		seen,
		report.NewBlobSummaryStore(blobs, summaryPath, logger.Named("report")),
		clock,
		uuid.New(),
		display,
		a.recorder,
		pipeline.Options{
			Domain:     cfg.Site.Domain,
			SitemapURL: cfg.Site.SitemapURL,
			Allowance:  cfg.Indexing.DailyQuota,
			MaxPerRun:  cfg.Indexing.MaxPerRun,
			Action:     cfg.Action(),
		},
		logger.Named("pipeline"),
	)
	return a, nil
}

// RunOnce executes one pipeline pass and pushes its metrics.
func (a *App) RunOnce(ctx context.Context) (pipeline.Outcome, error) {
	out, err := a.runner.Run(ctx)
	if pushErr := a.recorder.Push(context.WithoutCancel(ctx), a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); pushErr != nil {
		a.logger.Warn("failed to push metrics", zap.Error(pushErr))
	}
	return out, err
}

// Recorder exposes the metrics recorder.
func (a *App) Recorder() *metrics.Recorder {
	return a.recorder
}

// Close releases every opened backend in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) newQuotaStore(ctx context.Context) (indexing.QuotaStore, error) {
	cfg := a.cfg.Quota
	switch cfg.Backend {
	case "memory":
		a.logger.Info("using in-memory quota store; usage is forgotten on exit")
		return memoryquota.NewStore(indexing.QuotaState{}), nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		a.redis = client
		a.logger.Info("using redis quota store", zap.String("addr", cfg.RedisAddr), zap.String("key", cfg.RedisKey))
		return redisquota.NewStore(client, cfg.RedisKey, redisQuotaTTL)
	case "postgres":
		store, err := pgquota.NewStore(ctx, cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.logger.Info("using postgres quota store", zap.String("table", cfg.Table))
		return store, nil
	default:
		a.logger.Info("using file quota store", zap.String("path", a.cfg.Paths.Quota))
		return filequota.NewStore(a.cfg.Paths.Quota)
	}
}

// newProcessedStore returns nil unless indexing.skip_processed is on. The set
// lives next to the quota record.
func (a *App) newProcessedStore(ctx context.Context) (indexing.ProcessedStore, error) {
	if !a.cfg.Indexing.SkipProcessed {
		return nil, nil
	}
	cfg := a.cfg.Quota
	switch cfg.Backend {
	case "memory":
		return memoryprocessed.NewStore(), nil
	case "redis":
		a.logger.Info("using redis processed-url set", zap.String("key", cfg.ProcessedRedisKey))
		return redisprocessed.NewStore(a.redis, cfg.ProcessedRedisKey)
	case "postgres":
		store, err := pgprocessed.NewStore(ctx, cfg.DSN, cfg.ProcessedTable)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			store.Close()
			return nil
		})
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		a.logger.Info("using postgres processed-url set", zap.String("table", cfg.ProcessedTable))
		return store, nil
	default:
		a.logger.Info("using file processed-url set", zap.String("path", a.cfg.Paths.Processed))
		return fileprocessed.NewStore(a.cfg.Paths.Processed)
	}
}

func (a *App) newBlobStore(ctx context.Context) (storage.BlobStore, string, error) {
	summary := a.cfg.Paths.Summary
	switch a.cfg.Storage.Backend {
	case "gcs":
		store, closeFn, err := gcsstorage.NewFromEnvironment(ctx, gcsstorage.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return nil, "", fmt.Errorf("init gcs storage: %w", err)
		}
		a.closers = append(a.closers, closeFn)
		a.logger.Info("using gcs summary storage", zap.String("bucket", a.cfg.Storage.GCSBucket))
		return store, filepath.ToSlash(summary), nil
	case "memory":
		a.logger.Info("using in-memory summary storage; summaries are discarded on exit")
		return memorystorage.NewBlobStore(), summary, nil
	default:
		store, err := localstorage.New(localstorage.Config{BaseDir: filepath.Dir(summary)})
		if err != nil {
			return nil, "", fmt.Errorf("init local storage: %w", err)
		}
		return store, filepath.Base(summary), nil
	}
}

func (a *App) newResultSink(ctx context.Context, seen indexing.ProcessedStore) (indexing.ResultSink, error) {
	file, err := jsonl.New(a.cfg.Paths.ResultsLog)
	if err != nil {
		return nil, err
	}
	sinks := sink.Multi{file, sink.NewLogSink(a.logger.Named("results"))}
	if seen != nil {
		sinks = append(sinks, processed.NewSink(seen))
	}
	if a.cfg.PubSub.Enabled() {
		publisher, closeFn, err := pubsubsink.Connect(ctx, a.cfg.PubSub.ProjectID, a.cfg.PubSub.Topic)
		if err != nil {
			return nil, fmt.Errorf("init pubsub sink: %w", err)
		}
		a.closers = append(a.closers, closeFn)
		a.logger.Info("publishing results to pubsub", zap.String("topic", a.cfg.PubSub.Topic))
		sinks = append(sinks, publisher)
	}
	return sinks, nil
}
