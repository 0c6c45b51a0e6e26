package services

import (
	"context"
	"io"
)

// BlobStore is the object storage backend holding file bytes.
// Implementations wrap a missing key as domain.ErrNotFound.
type BlobStore interface {
	// Put stores body under key
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// Get opens the blob for reading; the caller must close it
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
