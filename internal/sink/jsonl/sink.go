// Package jsonl appends submission results to a newline-delimited JSON file.
package jsonl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JakeFAU/site-indexer/internal/indexing"
)

// Sink appends one JSON object per line. Existing lines are never rewritten.
type Sink struct {
	mu   sync.Mutex
	path string
}

// New returns a Sink writing to path, creating its directory.
func New(path string) (*Sink, error) {
	if path == "" {
		return nil, fmt.Errorf("jsonl sink: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create results dir for %s: %w", path, err)
	}
	return &Sink{path: path}, nil
}

// Path returns the file being appended to.
func (s *Sink) Path() string {
	return s.path
}

// Append writes result as a single line.
func (s *Sink) Append(ctx context.Context, result indexing.Result) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	line, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open results log %s: %w", s.path, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append results log %s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close results log %s: %w", s.path, err)
	}
	return nil
}
