// Package file keeps the processed-URL set as a newline-delimited text file.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store appends one URL per line at a fixed path.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates the parent directory if needed.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("processed file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create processed dir: %w", err)
	}
	return &Store{path: path}, nil
}

// Processed reads the set; a missing file is an empty set.
func (s *Store) Processed(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return seen, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open processed file %s: %w", s.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if url := strings.TrimSpace(scanner.Text()); url != "" {
			seen[url] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read processed file %s: %w", s.path, err)
	}
	return seen, nil
}

// MarkProcessed appends url. Duplicates are harmless; Processed collapses them.
func (s *Store) MarkProcessed(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open processed file %s: %w", s.path, err)
	}
	if _, err := f.WriteString(url + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append processed url: %w", err)
	}
	return f.Close()
}
