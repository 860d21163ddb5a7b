// Package storage abstracts the object store holding notification
// attachments.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound marks a missing object. Implementations wrap it so callers
// can test with errors.Is regardless of backend.
var ErrNotFound = errors.New("object not found")

// ObjectInfo is the metadata view of a stored object.
type ObjectInfo struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectStore is the contract the dispatch pipeline needs from object
// storage. Paths are object keys inside the configured container.
type ObjectStore interface {
	// Exists reports whether an object is present at the path.
	Exists(ctx context.Context, path string) (bool, error)
	// Get returns object metadata without downloading content.
	Get(ctx context.Context, path string) (ObjectInfo, error)
	// Download opens the object content for reading.
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	// Upload stores content with user metadata at the path.
	Upload(ctx context.Context, path string, content io.Reader, contentType string, metadata map[string]string) error
	// Copy duplicates an object server-side.
	Copy(ctx context.Context, sourcePath, destPath string) error
	// SignedURL returns a time-boxed read-only access URL for the path.
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}
