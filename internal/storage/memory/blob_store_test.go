package memory

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.PutObject(context.Background(), "logs/daily_summary.json", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://logs/daily_summary.json" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'C'
	stored, ok := store.Get("logs/daily_summary.json")
	if !ok || string(stored) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", stored)
	}
}

func TestBlobStoreOverwrites(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, body := range []string{"first", "second"} {
		if _, err := store.PutObject(context.Background(), "summary.json", "", strings.NewReader(body)); err != nil {
			t.Fatalf("PutObject() error = %v", err)
		}
	}
	got, _ := store.Get("summary.json")
	if string(got) != "second" {
		t.Fatalf("expected last write to win, got %q", got)
	}
	if store.Puts() != 2 {
		t.Fatalf("expected 2 puts, got %d", store.Puts())
	}
	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected missing path to be absent")
	}
}
