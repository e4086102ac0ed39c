package cache

import (
	"bytes"
	"context"
	"sync"

	"github.com/armon/go-radix"
)

// MemoryStore is an in-memory store indexed by a radix tree, so namespace
// clears only visit the keys under the namespace prefix.
type MemoryStore struct {
	mu   sync.RWMutex
	tree *radix.Tree
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tree: radix.New()}
}

// Get retrieves a copy of the stored page. Returns (nil, false) on miss.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	v, ok := s.tree.Get(key)
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	return bytes.Clone(v.([]byte)), true
}

// SetForever stores a copy of value under key.
func (s *MemoryStore) SetForever(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	s.tree.Insert(key, bytes.Clone(value))
	s.mu.Unlock()

	return nil
}

// Delete removes a page. Idempotent - no error on miss.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	s.tree.Delete(key)
	s.mu.Unlock()
	return nil
}

// DeleteMatching removes the entries directly inside namespace whose name
// contains substr.
func (s *MemoryStore) DeleteMatching(_ context.Context, namespace, substr string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []string
	s.tree.WalkPrefix(namespacePrefix(namespace), func(key string, _ interface{}) bool {
		if matchesInNamespace(key, namespace, substr) {
			matched = append(matched, key)
		}
		return false
	})

	deleted := 0
	for _, key := range matched {
		if _, ok := s.tree.Delete(key); ok {
			deleted++
		}
	}
	return deleted, nil
}

// Clear removes every entry under namespace.
func (s *MemoryStore) Clear(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := namespacePrefix(namespace)
	if prefix == "" {
		s.tree = radix.New()
		return nil
	}

	var keys []string
	s.tree.WalkPrefix(prefix, func(key string, _ interface{}) bool {
		keys = append(keys, key)
		return false
	})
	for _, key := range keys {
		s.tree.Delete(key)
	}
	return nil
}

// Len returns the number of stored pages.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
