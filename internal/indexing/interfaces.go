package indexing

import (
	"context"
	"time"
)

// TokenProvider hands out bearer tokens for the indexing endpoint.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// ResultSink receives every submission attempt, in order.
type ResultSink interface {
	Append(ctx context.Context, result Result) error
}

// SummaryStore persists the latest DailySummary, replacing any previous one.
type SummaryStore interface {
	Save(ctx context.Context, summary DailySummary) error
}

// QuotaStore loads and saves the quota record.
type QuotaStore interface {
	Load(ctx context.Context) (QuotaState, error)
	Save(ctx context.Context, state QuotaState) error
}

// ProcessedStore remembers URLs that were already submitted successfully.
type ProcessedStore interface {
	Processed(ctx context.Context) (map[string]struct{}, error)
	MarkProcessed(ctx context.Context, url string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
