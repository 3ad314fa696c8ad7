// Package storage defines the blob store seam used to persist run artifacts
// such as the daily summary. Implementations live in local, gcs and memory.
package storage

import (
	"context"
	"io"
)

// BlobStore writes an object, replacing any previous object at path, and
// returns a URI for it.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}
