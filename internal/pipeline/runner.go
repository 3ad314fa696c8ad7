// Package pipeline runs one end-to-end indexing pass: check quota, discover
// sitemap URLs, submit the ones the quota allows and report the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-indexer/internal/indexing"
	"github.com/JakeFAU/site-indexer/internal/processed"
	"github.com/JakeFAU/site-indexer/internal/quota"
	"github.com/JakeFAU/site-indexer/internal/report"
	"github.com/JakeFAU/site-indexer/internal/submit"
)

// URLSource discovers the URLs to submit.
type URLSource interface {
	FetchURLs(ctx context.Context, sitemapURL string) ([]string, error)
}

// TokenFactory builds a fresh TokenProvider for one run, so credentials are
// loaded again on every pass.
type TokenFactory func() indexing.TokenProvider

// Display receives operator-facing progress. console.Printer implements it.
type Display interface {
	Banner(domain string, at time.Time)
	Quota(used, allowance, remaining int)
	QuotaExhausted()
	NoURLs()
	Progress(position, total int, result indexing.Result)
	Summary(summary indexing.DailySummary)
}

// RunRecorder receives run-level metrics.
type RunRecorder interface {
	SetQuota(used, remaining int)
	ObserveRun(state string, d time.Duration, finished time.Time)
}

// Options are the per-site run settings.
type Options struct {
	Domain     string
	SitemapURL string
	Allowance  int
	// MaxPerRun caps a single run below the remaining quota; zero means no cap.
	MaxPerRun int
	Action    indexing.Action
}

// Outcome describes how a run ended.
type Outcome struct {
	RunID     string
	State     State
	Reason    string
	Results   []indexing.Result
	Summary   *indexing.DailySummary
	Remaining int
}

// Runner wires the pipeline collaborators together.
type Runner struct {
	source    URLSource
	quota     *quota.Tracker
	submitter *submit.Submitter
	tokens    TokenFactory
	processed indexing.ProcessedStore
	summaries indexing.SummaryStore
	clock     indexing.Clock
	ids       indexing.IDGenerator
	display   Display
	recorder  RunRecorder
	opts      Options
	logger    *zap.Logger
}

// New constructs a Runner. tokens, processed, display and recorder may be
// nil. Without tokens the submitter keeps its own provider; without processed
// every discovered URL is eligible.
func New(
	source URLSource,
	tracker *quota.Tracker,
	submitter *submit.Submitter,
	tokens TokenFactory,
	processed indexing.ProcessedStore,
	summaries indexing.SummaryStore,
	clock indexing.Clock,
	ids indexing.IDGenerator,
	display Display,
	recorder RunRecorder,
	opts Options,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Action == "" {
		opts.Action = indexing.ActionUpdated
	}
	return &Runner{
		source:    source,
		quota:     tracker,
		submitter: submitter,
		tokens:    tokens,
		processed: processed,
		summaries: summaries,
		clock:     clock,
		ids:       ids,
		display:   display,
		recorder:  recorder,
		opts:      opts,
		logger:    logger,
	}
}

type run struct {
	*Runner
	submitter *submit.Submitter
	logger    *zap.Logger
	out       Outcome
}

func (r *run) transition(to State, fields ...zap.Field) {
	from := r.out.State
	r.out.State = to
	fields = append([]zap.Field{
		zap.Stringer("from", from),
		zap.Stringer("state", to),
	}, fields...)
	if to == StateAborted {
		r.logger.Warn("run aborted", fields...)
		return
	}
	r.logger.Info("run state changed", fields...)
}

func (r *run) abort(reason string, fields ...zap.Field) {
	r.out.Reason = reason
	r.transition(StateAborted, append([]zap.Field{zap.String("reason", reason)}, fields...)...)
}

// Run executes one pass. A nil error with State Aborted means the run was
// skipped (no quota, no URLs). A non-nil error is fatal, except when ctx was
// canceled mid-submission: the partial batch is still reported and the
// context error is returned alongside a Done outcome.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	started := r.clock.Now()
	runID, err := r.ids.NewID()
	if err != nil {
		return Outcome{State: StateAborted, Reason: "run id"}, fmt.Errorf("generate run id: %w", err)
	}

	submitter := r.submitter.WithRunID(runID)
	if r.tokens != nil {
		submitter = submitter.WithTokens(r.tokens())
	}
	ru := &run{
		Runner:    r,
		submitter: submitter,
		logger:    r.logger.With(zap.String("run_id", runID)),
		out:       Outcome{RunID: runID, State: StateIdle},
	}
	defer func() {
		finished := r.clock.Now()
		if r.recorder != nil {
			r.recorder.ObserveRun(ru.out.State.String(), finished.Sub(started), finished)
		}
	}()

	if r.display != nil {
		r.display.Banner(r.opts.Domain, started)
	}
	err = ru.execute(ctx)
	return ru.out, err
}

func (r *run) execute(ctx context.Context) error {
	state, remaining, err := r.quota.Check(ctx, r.opts.Allowance)
	if err != nil {
		r.abort("quota unavailable", zap.Error(err))
		return err
	}
	r.out.Remaining = remaining
	r.transition(StateQuotaChecked,
		zap.String("date", state.Date),
		zap.Int("used", state.RequestsUsed),
		zap.Int("allowance", r.opts.Allowance),
		zap.Int("remaining", remaining),
	)
	if r.display != nil {
		r.display.Quota(state.RequestsUsed, r.opts.Allowance, remaining)
	}
	if r.recorder != nil {
		r.recorder.SetQuota(state.RequestsUsed, remaining)
	}
	if remaining == 0 {
		if r.display != nil {
			r.display.QuotaExhausted()
		}
		r.abort("daily quota exhausted")
		return nil
	}

	r.transition(StateDiscovering, zap.String("sitemap_url", r.opts.SitemapURL))
	urls, err := r.source.FetchURLs(ctx, r.opts.SitemapURL)
	if err != nil && !indexing.IsRecoverable(err) {
		r.abort("sitemap discovery failed", zap.Error(err))
		return err
	}
	if len(urls) == 0 {
		if r.display != nil {
			r.display.NoURLs()
		}
		fields := []zap.Field{zap.String("sitemap_url", r.opts.SitemapURL)}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		r.abort("no URLs discovered", fields...)
		return nil
	}

	if r.processed != nil {
		seen, err := r.processed.Processed(ctx)
		if err != nil {
			r.abort("processed urls unavailable", zap.Error(err))
			return fmt.Errorf("load processed urls: %w", err)
		}
		fresh := processed.Filter(urls, seen)
		r.logger.Info("skipping processed URLs",
			zap.Int("discovered", len(urls)),
			zap.Int("skipped", len(urls)-len(fresh)),
		)
		urls = fresh
		if len(urls) == 0 {
			if r.display != nil {
				r.display.NoURLs()
			}
			r.abort("no unprocessed URLs")
			return nil
		}
	}

	batch := urls[:batchSize(len(urls), remaining, r.opts.MaxPerRun)]
	r.transition(StateSubmitting,
		zap.Int("discovered", len(urls)),
		zap.Int("total", len(batch)),
		zap.Int("deferred", len(urls)-len(batch)),
		zap.Int("remaining", remaining),
	)

	var progress submit.ProgressFunc
	if r.display != nil {
		progress = r.display.Progress
	}
	results, submitErr := r.submitter.SubmitAll(ctx, batch, r.opts.Action, progress)
	r.out.Results = results

	interrupted := submitErr != nil && ctx.Err() != nil
	if submitErr != nil && !interrupted {
		// Attempts already made still count against today's allowance.
		consumeErr := r.quota.Consume(context.WithoutCancel(ctx), len(results))
		r.abort("submission failed", zap.Int("attempted", len(results)), zap.Error(submitErr))
		return errors.Join(submitErr, consumeErr)
	}

	reportCtx := ctx
	if interrupted {
		r.logger.Warn("run interrupted, reporting partial batch",
			zap.Int("attempted", len(results)),
			zap.Int("total", len(batch)),
			zap.Error(submitErr),
		)
		reportCtx = context.WithoutCancel(ctx)
	}
	if err := r.report(reportCtx, results, state.RequestsUsed, remaining); err != nil {
		return err
	}
	if interrupted {
		r.out.Reason = "interrupted"
		return submitErr
	}
	return nil
}

func (r *run) report(ctx context.Context, results []indexing.Result, usedBefore, remaining int) error {
	summary := report.Summarize(results, r.opts.Domain, r.clock.Now(), r.out.RunID)
	r.transition(StateReporting,
		zap.Int("total", summary.TotalURLs),
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.String("success_rate", summary.SuccessRate),
	)

	if err := r.quota.Consume(ctx, len(results)); err != nil {
		r.abort("quota update failed", zap.Error(err))
		return err
	}
	r.out.Remaining = max(remaining-len(results), 0)
	if r.recorder != nil {
		r.recorder.SetQuota(usedBefore+len(results), r.out.Remaining)
	}

	if err := r.summaries.Save(ctx, summary); err != nil {
		r.abort("summary write failed", zap.Error(err))
		return fmt.Errorf("save daily summary: %w", err)
	}
	r.out.Summary = &summary
	if r.display != nil {
		r.display.Summary(summary)
	}
	r.transition(StateDone,
		zap.Int("used", usedBefore+len(results)),
		zap.Int("remaining", r.out.Remaining),
	)
	return nil
}

// batchSize is min(discovered, remaining), further capped by maxPerRun when set.
func batchSize(discovered, remaining, maxPerRun int) int {
	n := min(discovered, remaining)
	if maxPerRun > 0 {
		n = min(n, maxPerRun)
	}
	return n
}
