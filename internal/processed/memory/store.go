// Package memory keeps the processed-URL set in process memory.
package memory

import (
	"context"
	"maps"
	"sync"
)

// Store is an in-memory indexing.ProcessedStore.
type Store struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

// NewStore returns a Store seeded with urls.
func NewStore(urls ...string) *Store {
	s := &Store{urls: make(map[string]struct{}, len(urls))}
	for _, url := range urls {
		s.urls[url] = struct{}{}
	}
	return s
}

// Processed returns a copy of the set.
func (s *Store) Processed(context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.urls), nil
}

// MarkProcessed adds url to the set.
func (s *Store) MarkProcessed(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls[url] = struct{}{}
	return nil
}
