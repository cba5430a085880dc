package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemoryStore keeps artifacts in memory. It exists for tests and is safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	content map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{content: make(map[string][]byte)}
}

// Put reads r fully and stores the bytes under key.
func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, fmt.Errorf("artifact key is required")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.content[key] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

// Open returns a reader over a copy of the stored bytes.
func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.content[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Exists reports whether key is present.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	_, ok := s.content[key]
	s.mu.RUnlock()
	return ok, nil
}

// Delete removes key. Missing keys are ignored.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.content, key)
	s.mu.Unlock()
	return nil
}
