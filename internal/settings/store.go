package settings

import (
	"context"
	"sync"
)

// Store persists fetched cache entries so configuration survives process
// restarts while the settings source is down. The remote source stays
// authoritative; a store only ever holds what a live fetch once returned.
type Store interface {
	Load(ctx context.Context, tenantID string) (Entry, bool, error)
	Save(ctx context.Context, tenantID string, e Entry) error
	Delete(ctx context.Context, tenantID string) error
}

// MemoryStore is the non-durable fallback used when no database is
// configured (and in tests).
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Load(_ context.Context, tenantID string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[tenantID]
	return e, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, tenantID string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tenantID] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, tenantID)
	return nil
}
