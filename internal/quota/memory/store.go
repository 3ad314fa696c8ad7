// Package memory keeps quota state in process memory, for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Store is an in-memory indexing.QuotaStore.
type Store struct {
	mu    sync.RWMutex
	state indexing.QuotaState
	saves int
}

// NewStore returns a Store seeded with initial.
func NewStore(initial indexing.QuotaState) *Store {
	return &Store{state: initial}
}

// Load returns the current state.
func (s *Store) Load(context.Context) (indexing.QuotaState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, nil
}

// Save replaces the current state.
func (s *Store) Save(_ context.Context, state indexing.QuotaState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *Store) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
