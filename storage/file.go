package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists one JSON object per namespace under the user config
// directory.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// DefaultPath returns the settings file path for a namespace.
func DefaultPath(namespace string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "searchnav", namespace+".json"), nil
}

// NewFileStore creates a store backed by the given file. The file need not
// exist yet; first Get returns an empty record.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	record := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return record, nil
}

func (s *FileStore) save(record map[string]json.RawMessage) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Get returns the requested fields of the record. With no keys the whole
// record is returned. Absent fields are simply not present in the result.
func (s *FileStore) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return record, nil
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if raw, ok := record[key]; ok {
			out[key] = raw
		}
	}
	return out, nil
}

// Set merges items into the record and writes it back.
func (s *FileStore) Set(ctx context.Context, items map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load()
	if err != nil {
		return err
	}
	for key, value := range items {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		record[key] = raw
	}
	return s.save(record)
}

// Remove deletes the given fields from the record.
func (s *FileStore) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(record, key)
	}
	return s.save(record)
}

// Clear removes the whole record.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
