package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]Record
	order   map[string][]string // collection -> IDs in insertion order
	closed  bool
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]map[string]Record),
		order:   make(map[string][]string),
	}
}

// Get retrieves a record.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Record{}, ErrStoreClosed
	}
	rec, ok := s.records[collection][id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

// List returns all records in a collection in insertion order.
func (s *MemoryStore) List(_ context.Context, collection string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	ids := s.order[collection]
	result := make([]Record, 0, len(ids))
	for _, id := range ids {
		result = append(result, cloneRecord(s.records[collection][id]))
	}
	return result, nil
}

// Put inserts or replaces a record.
func (s *MemoryStore) Put(_ context.Context, collection string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	if s.records[collection] == nil {
		s.records[collection] = make(map[string]Record)
	}
	if _, exists := s.records[collection][rec.ID]; !exists {
		s.order[collection] = append(s.order[collection], rec.ID)
	}
	s.records[collection][rec.ID] = cloneRecord(rec)
	return nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.records[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.records[collection], id)

	ids := s.order[collection]
	for i, existing := range ids {
		if existing == id {
			s.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneRecord(rec Record) Record {
	if rec.Data != nil {
		rec.Data = append([]byte(nil), rec.Data...)
	}
	return rec
}
