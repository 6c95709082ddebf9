package storage

import (
	"context"
	"sync"

	"github.com/gitcas/gitcas/pkg/errors"
)

// MemoryStore is an in-process BlobStore backed by a map.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

// Put stores a copy of data under key.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte) error {
	if key == "" {
		return errors.New(errors.ErrCodeInvalidInput, "empty blob key").In("storage").During("put")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

// Get returns a copy of the bytes stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeBlobNotFound, "no blob for key %q", key).In("storage").During("get")
	}
	return append([]byte(nil), data...), nil
}

// Delete removes key; deleting a missing key is a no-op.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Exists reports whether key is present.
func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok, nil
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
