// Package processed skips URLs that an earlier run already submitted
// successfully, and records new successes as they happen.
package processed

import (
	"context"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Filter returns urls minus those in seen, keeping sitemap order.
func Filter(urls []string, seen map[string]struct{}) []string {
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		if _, ok := seen[url]; ok {
			continue
		}
		out = append(out, url)
	}
	return out
}

// Sink marks every successful Result in a ProcessedStore.
type Sink struct {
	store indexing.ProcessedStore
}

// NewSink wraps store.
func NewSink(store indexing.ProcessedStore) *Sink {
	return &Sink{store: store}
}

// Append implements indexing.ResultSink. Failed attempts are ignored so they
// are retried on a later run.
func (s *Sink) Append(ctx context.Context, result indexing.Result) error {
	if !result.Success() {
		return nil
	}
	return s.store.MarkProcessed(ctx, result.URL)
}
