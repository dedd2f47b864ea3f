package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the record in process memory. It is intended for tests and hosts
// without durable storage.
type MemoryStore struct {
	mu     sync.RWMutex
	fields Fields
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with a copy of initial.
func NewMemoryStore(initial Fields) *MemoryStore {
	return &MemoryStore{fields: initial.Clone()}
}

// ReadAll returns a copy of the current record.
func (s *MemoryStore) ReadAll(context.Context) (Fields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fields.Clone(), nil
}

// WriteAll replaces the record with a copy of fields.
func (s *MemoryStore) WriteAll(_ context.Context, fields Fields) error {
	next := fields.Clone()
	s.mu.Lock()
	s.fields = next
	s.mu.Unlock()
	return nil
}
