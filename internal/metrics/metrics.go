// Package metrics records run-level Prometheus metrics for the indexer. A
// batch job has no scrape endpoint, so the registry is pushed to a
// Pushgateway when the run finishes.
package metrics

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Recorder owns a private registry with the indexer's collectors. The site
// is attached as a Pushgateway grouping key rather than a metric label.
type Recorder struct {
	registry *prometheus.Registry
	site     string

	submissionsTotal *prometheus.CounterVec
	pacingDelays     prometheus.Histogram
	quotaUsed        prometheus.Gauge
	quotaRemaining   prometheus.Gauge
	runDuration      prometheus.Gauge
	runsTotal        *prometheus.CounterVec
	lastRunTimestamp prometheus.Gauge
}

// NewRecorder registers the collectors for site on a fresh registry.
func NewRecorder(site string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		site:     SanitizeSite(site),
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_submissions_total",
				Help: "Total number of URL notifications sent, labeled by status.",
			},
			[]string{"status"},
		),
		pacingDelays: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indexer_pacing_delay_seconds",
				Help:    "Histogram of pacing waits between submission batches.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
		quotaUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "indexer_quota_used",
			Help: "Submission calls charged against today's allowance.",
		}),
		quotaRemaining: factory.NewGauge(prometheus.GaugeOpts{
			Name: "indexer_quota_remaining",
			Help: "Submission calls left in today's allowance.",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "indexer_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_runs_total",
				Help: "Total number of runs, labeled by terminal state.",
			},
			[]string{"state"},
		),
		lastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "indexer_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSubmission counts one submission attempt.
func (r *Recorder) ObserveSubmission(status indexing.StatusCode) {
	r.submissionsTotal.WithLabelValues(status.String()).Inc()
}

// ObservePacingDelay records the duration of a pacing wait.
func (r *Recorder) ObservePacingDelay(d time.Duration) {
	r.pacingDelays.Observe(d.Seconds())
}

// SetQuota publishes the current quota position.
func (r *Recorder) SetQuota(used, remaining int) {
	r.quotaUsed.Set(float64(used))
	r.quotaRemaining.Set(float64(remaining))
}

// ObserveRun records the terminal state of a run and how long it took.
func (r *Recorder) ObserveRun(state string, d time.Duration, finished time.Time) {
	r.runsTotal.WithLabelValues(state).Inc()
	r.runDuration.Set(d.Seconds())
	r.lastRunTimestamp.Set(float64(finished.Unix()))
}

// Push sends the registry to the Pushgateway at gatewayURL under job,
// replacing the previous push for this site.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	err := push.New(gatewayURL, job).
		Gatherer(r.registry).
		Grouping("site", r.site).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
