// Package artifact stores encrypted payload bytes keyed by an opaque name.
// The key is derived from the download token, never from the original
// filename, so keys do not collide and do not leak what was uploaded.
package artifact

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no artifact exists under a key.
var ErrNotFound = errors.New("artifact not found")

// Store is the byte-storage abstraction used by the upload and download
// services.
type Store interface {
	// Put persists the full contents of r under key.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open returns a reader for the artifact bytes; ErrNotFound if absent.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether an artifact is present under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the artifact. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
