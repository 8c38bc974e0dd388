package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store for tests and ephemeral runs. FailWith
// forces every operation to fail, for exercising persistence error paths.
type MemStore struct {
	mu       sync.Mutex
	record   map[string]json.RawMessage
	FailWith error
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{record: map[string]json.RawMessage{}}
}

func (s *MemStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	if len(keys) == 0 {
		keys = make([]string, 0, len(s.record))
		for key := range s.record {
			keys = append(keys, key)
		}
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if raw, ok := s.record[key]; ok {
			out[key] = raw
		}
	}
	return out, nil
}

func (s *MemStore) Set(ctx context.Context, items map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for key, value := range items {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		s.record[key] = raw
	}
	return nil
}

func (s *MemStore) Remove(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	for _, key := range keys {
		delete(s.record, key)
	}
	return nil
}

func (s *MemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	s.record = map[string]json.RawMessage{}
	return nil
}
