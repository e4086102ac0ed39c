package cache

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TieredStore keeps the most recently served pages in process memory in
// front of a shared store (file or redis). Writes and flushes go to both
// tiers; reads that miss the near tier fall through and refill it.
//
// A flush issued by another process only reaches the shared tier, so this
// process may keep serving its near copy until it is evicted or flushed
// locally.
type TieredStore struct {
	near *lru.Cache[string, []byte]
	far  Store
}

// NewTieredStore puts an LRU of size pages in front of far.
func NewTieredStore(far Store, size int) (*TieredStore, error) {
	if far == nil {
		return nil, ErrNilStore
	}
	near, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("cache: near tier: %w", err)
	}
	return &TieredStore{near: near, far: far}, nil
}

func (s *TieredStore) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := s.near.Get(key); ok {
		return v, true
	}
	v, ok := s.far.Get(ctx, key)
	if ok {
		s.near.Add(key, v)
	}
	return v, ok
}

// SetForever fills the near tier only once the shared tier accepted the page.
func (s *TieredStore) SetForever(ctx context.Context, key string, value []byte) error {
	if err := s.far.SetForever(ctx, key, value); err != nil {
		return err
	}
	s.near.Add(key, value)
	return nil
}

func (s *TieredStore) Delete(ctx context.Context, key string) error {
	s.near.Remove(key)
	return s.far.Delete(ctx, key)
}

// DeleteMatching counts removals in the shared tier only.
func (s *TieredStore) DeleteMatching(ctx context.Context, namespace, substr string) (int, error) {
	s.evict(func(key string) bool { return matchesInNamespace(key, namespace, substr) })
	return s.far.DeleteMatching(ctx, namespace, substr)
}

func (s *TieredStore) Clear(ctx context.Context, namespace string) error {
	if prefix := namespacePrefix(namespace); prefix == "" {
		s.near.Purge()
	} else {
		s.evict(func(key string) bool { return strings.HasPrefix(key, prefix) })
	}
	return s.far.Clear(ctx, namespace)
}

func (s *TieredStore) Ping(ctx context.Context) error {
	if p, ok := s.far.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Len returns the number of pages held in process memory, not in the
// shared tier.
func (s *TieredStore) Len() int { return s.near.Len() }

// Unwrap returns the shared tier.
func (s *TieredStore) Unwrap() Store { return s.far }

func (s *TieredStore) evict(match func(string) bool) {
	for _, key := range s.near.Keys() {
		if match(key) {
			s.near.Remove(key)
		}
	}
}

var _ Store = (*TieredStore)(nil)
