// Package report turns a run's submission results into a DailySummary and
// persists it as the latest-run artifact.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-indexer/internal/indexing"
	"github.com/JakeFAU/site-indexer/internal/storage"
)

// Summarize counts successes and failures. success_rate is formatted to one
// decimal place, or "0%" when there are no results.
func Summarize(results []indexing.Result, domain string, now time.Time, runID string) indexing.DailySummary {
	summary := indexing.DailySummary{
		RunID:       runID,
		Timestamp:   now,
		Domain:      domain,
		TotalURLs:   len(results),
		SuccessRate: "0%",
	}
	for _, r := range results {
		if r.Success() {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	if summary.TotalURLs > 0 {
		rate := float64(summary.Successful) / float64(summary.TotalURLs) * 100
		summary.SuccessRate = fmt.Sprintf("%.1f%%", rate)
	}
	return summary
}

// BlobSummaryStore writes the summary as indented JSON to a fixed object path,
// replacing the previous run's summary.
type BlobSummaryStore struct {
	blobs  storage.BlobStore
	path   string
	logger *zap.Logger
}

// NewBlobSummaryStore returns a SummaryStore backed by blobs.
func NewBlobSummaryStore(blobs storage.BlobStore, path string, logger *zap.Logger) *BlobSummaryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlobSummaryStore{blobs: blobs, path: path, logger: logger}
}

// Save implements indexing.SummaryStore.
func (s *BlobSummaryStore) Save(ctx context.Context, summary indexing.DailySummary) error {
	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	uri, err := s.blobs.PutObject(ctx, s.path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("write summary %s: %w", s.path, err)
	}
	s.logger.Info("daily summary saved", zap.String("uri", uri), zap.String("run_id", summary.RunID))
	return nil
}
