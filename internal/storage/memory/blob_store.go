// Package memory stores objects in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// ObjectStore keeps document bytes in-memory and returns pseudo URIs.
// Puts are idempotent per key, matching the object-store contract.
type ObjectStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	metadata map[string]map[string]string
	puts     int
}

// NewObjectStore creates a new in-memory object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		data:     make(map[string][]byte),
		metadata: make(map[string]map[string]string),
	}
}

// Put persists the content under key and returns a memory:// URI.
func (s *ObjectStore) Put(_ context.Context, key string, _ string, data []byte, metadata map[string]string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.data[key] = append([]byte(nil), data...)
	if metadata != nil {
		md := make(map[string]string, len(metadata))
		for k, v := range metadata {
			md[k] = v
		}
		s.metadata[key] = md
	}
	return fmt.Sprintf("memory://%s", key), nil
}

// Exists reports whether the key holds an object.
func (s *ObjectStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

// Get returns the stored bytes for assertions in tests.
func (s *ObjectStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[key]
	return data, ok
}

// Metadata returns the stored metadata for a key.
func (s *ObjectStore) Metadata(key string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata[key]
}

// PutCount returns the number of Put calls observed.
func (s *ObjectStore) PutCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}
