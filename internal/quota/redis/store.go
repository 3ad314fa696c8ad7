// Package redis keeps quota state under a single Redis key so several hosts
// can share one daily allowance.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Store stores the JSON-encoded QuotaState at key.
type Store struct {
	client goredis.Cmdable
	key    string
	ttl    time.Duration
}

// NewStore wraps an existing client. A zero ttl keeps the key forever.
func NewStore(client goredis.Cmdable, key string, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	return &Store{client: client, key: key, ttl: ttl}, nil
}

// Load reads the state; a missing key is a zero state.
func (s *Store) Load(ctx context.Context) (indexing.QuotaState, error) {
	val, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return indexing.QuotaState{}, nil
		}
		return indexing.QuotaState{}, fmt.Errorf("get %s: %w", s.key, err)
	}
	var state indexing.QuotaState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return indexing.QuotaState{}, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return state, nil
}

// Save overwrites the state.
func (s *Store) Save(ctx context.Context, state indexing.QuotaState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}
