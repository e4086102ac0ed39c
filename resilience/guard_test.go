package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestGuard_ZeroValueCallsThrough(t *testing.T) {
	var g Guard
	if err := g.Do(context.Background(), fail); !errors.Is(err, errBackend) {
		t.Fatalf("err = %v", err)
	}
}

func TestGuard_Deadline(t *testing.T) {
	g := Guard{Deadline: 10 * time.Millisecond}
	start := time.Now()
	err := g.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return ctx.Err()
	})
	if !errors.Is(err, ErrDeadline) {
		t.Fatalf("err = %v, want ErrDeadline", err)
	}
	if time.Since(start) > 40*time.Millisecond {
		t.Error("guard waited for op after its deadline")
	}
}

func TestGuard_BreakerSeesOneOutcomePerCall(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	b := NewBreaker(BreakerConfig{Threshold: 2, Cooldown: time.Hour})
	g := Guard{
		Breaker:  b,
		Backoff:  &Backoff{Attempts: 3, Base: time.Millisecond},
		Deadline: time.Second,
	}

	var calls atomic.Int32
	op := func(context.Context) error { calls.Add(1); return errBackend }

	_ = g.Do(ctx, op)
	if calls.Load() != 3 {
		t.Fatalf("attempts = %d, want 3", calls.Load())
	}
	if b.State() != StateClosed {
		t.Fatal("breaker opened after one guarded call")
	}

	_ = g.Do(ctx, op)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if err := g.Do(ctx, op); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if calls.Load() != 6 {
		t.Errorf("attempts = %d, want 6", calls.Load())
	}
}

func TestGuard_PassiveKeepsFailureCount(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(BreakerConfig{Threshold: 2, Cooldown: time.Hour})
	reads := Guard{Breaker: b, Passive: true}
	writes := Guard{Breaker: b}

	for i := 0; i < 2; i++ {
		_ = reads.Do(ctx, ok)
		_ = writes.Do(ctx, fail)
	}
	if s := b.Snapshot(); s.State != StateOpen || s.Trips != 1 {
		t.Fatalf("snapshot = %+v, want open after 2 write failures", s)
	}
}
