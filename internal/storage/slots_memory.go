package storage

import (
	"context"
	"slices"
	"sync"

	"chalkboard/internal/domain"
)

// MemorySlotStore is a process-local slot store. Values are copied in and out.
type MemorySlotStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{slots: make(map[string][]byte)}
}

func (s *MemorySlotStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	if !ok {
		return nil, domain.ErrSlotNotFound
	}
	return slices.Clone(v), nil
}

func (s *MemorySlotStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = append([]byte{}, value...)
	return nil
}

func (s *MemorySlotStore) Close() error { return nil }
