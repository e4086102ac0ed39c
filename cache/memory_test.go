package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	page := []byte("original")
	_ = s.SetForever(ctx, "k", page)
	page[0] = 'X'

	got, _ := s.Get(ctx, "k")
	if string(got) != "original" {
		t.Errorf("stored page was mutated through caller slice: %q", got)
	}

	got[0] = 'Y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("stored page was mutated through returned slice: %q", again)
	}
}

func TestMemoryStore_Len(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = s.SetForever(ctx, fmt.Sprintf("page_%d", i), []byte("x"))
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	_ = s.Clear(ctx, "")
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", s.Len())
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("page_%d", i%5)
			_ = s.SetForever(ctx, key, []byte("body"))
			_, _ = s.Get(ctx, key)
			_, _ = s.DeleteMatching(ctx, "", "page_1")
		}(i)
	}
	wg.Wait()
}
