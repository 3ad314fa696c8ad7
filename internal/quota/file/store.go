// Package file persists quota state as a small JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Store reads and writes {date, requests_used} at a fixed path.
type Store struct {
	path string
}

// NewStore creates the parent directory if needed.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("quota file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create quota dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Load returns the stored state, or a zero state when the file does not exist yet.
func (s *Store) Load(ctx context.Context) (indexing.QuotaState, error) {
	if err := ctx.Err(); err != nil {
		return indexing.QuotaState{}, fmt.Errorf("context canceled: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return indexing.QuotaState{}, nil
	}
	if err != nil {
		return indexing.QuotaState{}, fmt.Errorf("read quota file %s: %w", s.path, err)
	}
	var state indexing.QuotaState
	if err := json.Unmarshal(data, &state); err != nil {
		return indexing.QuotaState{}, fmt.Errorf("decode quota file %s: %w", s.path, err)
	}
	return state, nil
}

// Save writes the state through a temp file and rename so readers never see a partial file.
func (s *Store) Save(ctx context.Context, state indexing.QuotaState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".quota-*.json")
	if err != nil {
		return fmt.Errorf("create temp quota file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp quota file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp quota file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace quota file %s: %w", s.path, err)
	}
	return nil
}
