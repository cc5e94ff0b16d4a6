package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists session values in a single JSON file. It is the durable
// half of the login flow: values written before the browser hand-off must be
// readable by a later process resuming the flow.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the JSON file at path.
// The file and its parent directory are created lazily on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Get returns the value for key, reading through to the backing file.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Set writes key to value, overwriting any prior value.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Delete removes the given keys. Missing keys are not an error.
func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, key := range keys {
		if _, ok := values[key]; ok {
			delete(values, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(values)
}

// Clear removes the session file entirely. Clearing a missing file is a no-op.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: clear failed: %w", err)
	}
	return nil
}

// load reads the session file. A missing or empty file yields an empty map;
// the flow treats that as logged-out rather than an error.
func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("session: read failed: %w", err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}
	values := make(map[string]string)
	if err = json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("session: parse failed: %w", err)
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: create dir failed: %w", err)
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("session: marshal failed: %w", err)
	}
	if err = os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("session: write failed: %w", err)
	}
	return nil
}
