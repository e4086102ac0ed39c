package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/flatten/resilience"
)

// ResilienceConfig configures a ResilientStore.
type ResilienceConfig struct {
	// Timeout bounds each Get and each SetForever attempt.
	// Default: 250ms
	Timeout time.Duration

	// MaxFailures is the number of consecutive failures that opens the breaker.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing.
	// Default: 30s
	ResetTimeout time.Duration

	// WriteAttempts is the number of SetForever attempts (including the first).
	// Default: 2
	WriteAttempts int

	// OnStateChange is called when the breaker changes state.
	OnStateChange func(from, to resilience.State)
}

// ResilientStore guards a Store so a slow or failing backend degrades to
// cache misses instead of stalling requests.
type ResilientStore struct {
	inner   Store
	breaker *resilience.Breaker
	reads   resilience.Guard
	writes  resilience.Guard
}

// NewResilientStore wraps inner with a breaker, deadlines and write retries.
func NewResilientStore(inner Store, cfg ResilienceConfig) *ResilientStore {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 250 * time.Millisecond
	}
	if cfg.WriteAttempts <= 0 {
		cfg.WriteAttempts = 2
	}

	breaker := resilience.NewBreaker(resilience.BreakerConfig{
		Threshold:    cfg.MaxFailures,
		Cooldown:     cfg.ResetTimeout,
		OnTransition: cfg.OnStateChange,
	})

	return &ResilientStore{
		inner:   inner,
		breaker: breaker,
		reads:   resilience.Guard{Breaker: breaker, Deadline: cfg.Timeout, Passive: true},
		writes: resilience.Guard{
			Breaker: breaker,
			Backoff: &resilience.Backoff{
				Attempts: cfg.WriteAttempts,
				Base:     10 * time.Millisecond,
				Cap:      100 * time.Millisecond,
				Jitter:   true,
			},
			Deadline: cfg.Timeout,
		},
	}
}

type getResult struct {
	value []byte
	ok    bool
}

// Get reads through the breaker. An open breaker, a timeout or a read error
// is a miss. Timeouts and read errors count as breaker failures; a plain miss
// or hit is not recorded, so only writes close the count again.
func (s *ResilientStore) Get(ctx context.Context, key string) ([]byte, bool) {
	done := make(chan getResult, 1)
	err := s.reads.Do(ctx, func(ctx context.Context) error {
		if l, ok := s.inner.(lookuper); ok {
			value, ok, err := l.lookup(ctx, key)
			if err != nil {
				return err
			}
			done <- getResult{value: value, ok: ok}
			return nil
		}
		value, ok := s.inner.Get(ctx, key)
		done <- getResult{value: value, ok: ok}
		return nil
	})
	if err != nil {
		return nil, false
	}

	select {
	case r := <-done:
		return r.value, r.ok
	default:
		return nil, false
	}
}

// SetForever writes through the breaker with retries.
func (s *ResilientStore) SetForever(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.writes.Do(ctx, func(ctx context.Context) error {
		return s.inner.SetForever(ctx, key, value)
	})
}

// Delete passes through to the wrapped store.
func (s *ResilientStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// DeleteMatching passes through to the wrapped store. Flushes are operator
// driven and are not subject to the request-path timeout.
func (s *ResilientStore) DeleteMatching(ctx context.Context, namespace, substr string) (int, error) {
	return s.inner.DeleteMatching(ctx, namespace, substr)
}

// Clear passes through to the wrapped store.
func (s *ResilientStore) Clear(ctx context.Context, namespace string) error {
	return s.inner.Clear(ctx, namespace)
}

// Ping pings the wrapped store when it supports it.
func (s *ResilientStore) Ping(ctx context.Context) error {
	if p, ok := s.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// BreakerState returns the current breaker state.
func (s *ResilientStore) BreakerState() resilience.State {
	return s.breaker.State()
}

// BreakerSnapshot returns the breaker counters.
func (s *ResilientStore) BreakerSnapshot() resilience.Snapshot {
	return s.breaker.Snapshot()
}

// Unwrap returns the wrapped store.
func (s *ResilientStore) Unwrap() Store {
	return s.inner
}

// Ensure ResilientStore implements Store
var _ Store = (*ResilientStore)(nil)
