// Package blob stores uploaded file bytes behind a small interface so the
// portal can run against local disk or an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Open when no object exists under the name.
var ErrNotFound = errors.New("blob: not found")

// Store is the byte-storage backend. Names are the system-generated stored
// filenames; they never contain path separators.
type Store interface {
	// Save streams r into the object named name and returns the number of
	// bytes written and a backend-specific path for the metadata record.
	Save(ctx context.Context, name string, r io.Reader) (size int64, path string, err error)

	// Open returns a reader over the stored bytes. The caller must close it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Remove deletes the stored bytes. Removing a missing object is an error
	// the caller is free to ignore; metadata is the source of truth.
	Remove(ctx context.Context, name string) error
}
