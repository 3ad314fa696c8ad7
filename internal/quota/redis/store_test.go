package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store, err := NewStore(client, "site-indexer:quota", ttl)
	require.NoError(t, err)
	return store, mr
}

func TestNewStoreValidation(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, "key", 0)
	require.Error(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	_, err = NewStore(client, "", 0)
	require.Error(t, err)
}

func TestLoadMissingKey(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t, 0)
	state, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, indexing.QuotaState{}, state)
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t, 48*time.Hour)
	want := indexing.QuotaState{Date: "2026-10-17", RequestsUsed: 9}
	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	raw, err := mr.Get("site-indexer:quota")
	require.NoError(t, err)
	require.JSONEq(t, `{"date":"2026-10-17","requests_used":9}`, raw)
	require.Equal(t, 48*time.Hour, mr.TTL("site-indexer:quota"))
}

func TestLoadCorruptValue(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t, 0)
	require.NoError(t, mr.Set("site-indexer:quota", "not-json"))
	_, err := store.Load(context.Background())
	require.Error(t, err)
}

func TestLoadServerDown(t *testing.T) {
	t.Parallel()

	store, mr := newTestStore(t, 0)
	mr.Close()
	_, err := store.Load(context.Background())
	require.Error(t, err)
}
