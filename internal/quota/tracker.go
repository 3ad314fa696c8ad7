// Package quota tracks submission calls against a fixed daily allowance.
// The count resets when the calendar day (UTC) changes.
package quota

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Tracker reads and updates the quota record through a QuotaStore.
// Concurrent runs are not coordinated; at most one run is expected per day.
type Tracker struct {
	store  indexing.QuotaStore
	clock  indexing.Clock
	logger *zap.Logger
}

// NewTracker constructs a Tracker.
func NewTracker(store indexing.QuotaStore, clock indexing.Clock, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, clock: clock, logger: logger}
}

// State returns today's record, rolled over to zero if the stored date is stale.
func (t *Tracker) State(ctx context.Context) (indexing.QuotaState, error) {
	stored, err := t.store.Load(ctx)
	if err != nil {
		return indexing.QuotaState{}, fmt.Errorf("load quota state: %w", err)
	}
	today := t.clock.Now().UTC().Format(indexing.DateLayout)
	if stored.Date != today {
		if stored.Date != "" {
			t.logger.Info("quota rolled over",
				zap.String("previous_date", stored.Date),
				zap.Int("previous_used", stored.RequestsUsed),
				zap.String("date", today),
			)
		}
		return indexing.QuotaState{Date: today}, nil
	}
	return stored, nil
}

// Remaining returns allowance minus today's usage, never below zero.
func (t *Tracker) Remaining(ctx context.Context, allowance int) (int, error) {
	_, left, err := t.Check(ctx, allowance)
	return left, err
}

// Check returns today's record together with the remaining allowance.
func (t *Tracker) Check(ctx context.Context, allowance int) (indexing.QuotaState, int, error) {
	state, err := t.State(ctx)
	if err != nil {
		return indexing.QuotaState{}, 0, err
	}
	return state, remaining(allowance, state.RequestsUsed), nil
}

// Consume adds n attempted calls to today's usage and persists it.
func (t *Tracker) Consume(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("consume: negative count %d", n)
	}
	state, err := t.State(ctx)
	if err != nil {
		return err
	}
	state.RequestsUsed += n
	if err := t.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save quota state: %w", err)
	}
	t.logger.Info("quota updated",
		zap.String("date", state.Date),
		zap.Int("consumed", n),
		zap.Int("used", state.RequestsUsed),
	)
	return nil
}

func remaining(allowance, used int) int {
	if left := allowance - used; left > 0 {
		return left
	}
	return 0
}
