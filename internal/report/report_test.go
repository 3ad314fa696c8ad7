package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-indexer/internal/indexing"
	"github.com/JakeFAU/site-indexer/internal/storage/memory"
)

var now = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func results(codes ...indexing.StatusCode) []indexing.Result {
	out := make([]indexing.Result, len(codes))
	for i, c := range codes {
		out[i] = indexing.Result{URL: "https://example.com/", StatusCode: c}
	}
	return out
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		results    []indexing.Result
		successful int
		failed     int
		rate       string
	}{
		{name: "empty", results: nil, rate: "0%"},
		{name: "all ok", results: results(200, 200), successful: 2, rate: "100.0%"},
		{name: "mixed", results: results(200, 429, indexing.StatusError), successful: 1, failed: 2, rate: "33.3%"},
		{name: "none ok", results: results(403), failed: 1, rate: "0.0%"},
		{name: "other 2xx is failure", results: results(200, 202), successful: 1, failed: 1, rate: "50.0%"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := Summarize(tc.results, "example.com", now, "run-1")
			assert.Equal(t, tc.successful, s.Successful)
			assert.Equal(t, tc.failed, s.Failed)
			assert.Equal(t, len(tc.results), s.TotalURLs)
			assert.Equal(t, s.TotalURLs, s.Successful+s.Failed)
			assert.Equal(t, tc.rate, s.SuccessRate)
			assert.Equal(t, "example.com", s.Domain)
			assert.Equal(t, "run-1", s.RunID)
			assert.Equal(t, now, s.Timestamp)
		})
	}
}

func TestBlobSummaryStoreOverwrites(t *testing.T) {
	t.Parallel()

	blobs := memory.NewBlobStore()
	store := NewBlobSummaryStore(blobs, "logs/daily_summary.json", nil)

	require.NoError(t, store.Save(context.Background(), Summarize(results(200), "example.com", now, "first")))
	require.NoError(t, store.Save(context.Background(), Summarize(results(200, 500), "example.com", now, "second")))

	raw, ok := blobs.Get("logs/daily_summary.json")
	require.True(t, ok)
	require.Equal(t, 2, blobs.Puts())
	require.Contains(t, string(raw), "\n  \"total_urls\": 2")

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, "second", got["run_id"])
	require.EqualValues(t, 1, got["successful_submissions"])
	require.EqualValues(t, 1, got["failed_submissions"])
	require.Equal(t, "50.0%", got["success_rate"])
	require.Equal(t, "2026-10-17T09:00:00Z", got["timestamp"])
}

type failingBlobs struct{}

func (failingBlobs) PutObject(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("bucket gone")
}

func TestBlobSummaryStoreError(t *testing.T) {
	t.Parallel()

	err := NewBlobSummaryStore(failingBlobs{}, "s.json", nil).Save(context.Background(), indexing.DailySummary{})
	require.ErrorContains(t, err, "bucket gone")
}
