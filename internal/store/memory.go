package store

import (
	"context"
	"sync"
	"time"

	"github.com/candigo/candigo/internal/application"
)

// MemoryStore is an in-memory Store used by tests and dry runs. It is
// safe for concurrent use but durable for nothing.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*application.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*application.Record)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*application.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemoryStore) Upsert(_ context.Context, rec *application.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.DedupKey] = rec.Clone()
	return nil
}

func (s *MemoryStore) List(_ context.Context, states ...application.State) ([]*application.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*application.Record
	for _, rec := range s.records {
		if len(states) == 0 || containsState(states, rec.State) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) FindByURL(_ context.Context, url string) (*application.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		if rec.URL == url {
			return rec.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Prune(_ context.Context, olderThan time.Time, states ...application.State) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, rec := range s.records {
		if containsState(states, rec.State) && rec.StateChangedAt.Before(olderThan) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

func containsState(states []application.State, s application.State) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}
