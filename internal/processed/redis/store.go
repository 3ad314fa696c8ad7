// Package redis keeps the processed-URL set in a Redis set.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Store wraps SADD/SMEMBERS on a single key.
type Store struct {
	client goredis.Cmdable
	key    string
}

// NewStore wraps an existing client.
func NewStore(client goredis.Cmdable, key string) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if key == "" {
		return nil, fmt.Errorf("redis key is required")
	}
	return &Store{client: client, key: key}, nil
}

// Processed returns every member; a missing key is an empty set.
func (s *Store) Processed(ctx context.Context) (map[string]struct{}, error) {
	members, err := s.client.SMembersMap(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", s.key, err)
	}
	return members, nil
}

// MarkProcessed adds url to the set.
func (s *Store) MarkProcessed(ctx context.Context, url string) error {
	if err := s.client.SAdd(ctx, s.key, url).Err(); err != nil {
		return fmt.Errorf("sadd %s: %w", s.key, err)
	}
	return nil
}
