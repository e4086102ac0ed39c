package flatten

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jonwraymond/flatten/cache"
)

var errStoreDown = errors.New("store down")

// brokenStore fails every operation.
type brokenStore struct {
	sets atomic.Int32
}

func (s *brokenStore) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (s *brokenStore) SetForever(context.Context, string, []byte) error {
	s.sets.Add(1)
	return errStoreDown
}

func (s *brokenStore) Delete(context.Context, string) error { return errStoreDown }

func (s *brokenStore) DeleteMatching(context.Context, string, string) (int, error) {
	return 0, errStoreDown
}

func (s *brokenStore) Clear(context.Context, string) error { return errStoreDown }

// partialStore deletes all but one matching entry.
type partialStore struct {
	*cache.MemoryStore
}

func (s partialStore) DeleteMatching(ctx context.Context, ns, substr string) (int, error) {
	n, err := s.MemoryStore.DeleteMatching(ctx, ns, substr)
	if err != nil || n == 0 {
		return n, err
	}
	return n - 1, errStoreDown
}

// countingStore records calls on top of a MemoryStore.
type countingStore struct {
	*cache.MemoryStore
	mu   sync.Mutex
	gets []string
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: cache.NewMemoryStore()}
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	s.gets = append(s.gets, key)
	s.mu.Unlock()
	return s.MemoryStore.Get(ctx, key)
}

func (s *countingStore) lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gets)
}

var (
	_ cache.Store = (*brokenStore)(nil)
	_ cache.Store = partialStore{}
	_ cache.Store = (*countingStore)(nil)
)
