// Package memory keeps blobs in process memory. It backs the "memory" blob
// driver and lets tests inject failures per operation.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"foldershare/internal/domain"
	"foldershare/internal/domain/services"
)

// BlobStore implements services.BlobStore with a map
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	// Failure injection for tests. A non-nil func is consulted before the
	// operation; its error is returned wrapped as domain.ErrBlob.
	FailPut    func(key string) error
	FailDelete func(key string) error
}

// NewBlobStore creates an empty store
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: map[string][]byte{}}
}

var _ services.BlobStore = (*BlobStore)(nil)

func (s *BlobStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailPut != nil {
		if err := s.FailPut(key); err != nil {
			return fmt.Errorf("put %s: %w: %w", key, domain.ErrBlob, err)
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w: %w", domain.ErrBlob, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *BlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailDelete != nil {
		if err := s.FailDelete(key); err != nil {
			return fmt.Errorf("delete %s: %w: %w", key, domain.ErrBlob, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Has reports whether key is stored
func (s *BlobStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok
}

// Len returns the number of stored blobs
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
