package repository

import (
	"context"
	"sync"
)

// MemoryIndexStore keeps the index in process memory. Contents are lost on
// restart; it backs local runs and the fallback when no store is configured.
type MemoryIndexStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryIndexStore() *MemoryIndexStore {
	return &MemoryIndexStore{data: make(map[string][]byte)}
}

func (s *MemoryIndexStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryIndexStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}

// SetAll replaces every entry under one lock so readers never observe a
// partial write.
func (s *MemoryIndexStore) SetAll(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range entries {
		s.data[k] = append([]byte(nil), v...)
	}
	return nil
}
