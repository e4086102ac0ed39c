package resilience

import (
	"context"
	"errors"
	"time"
)

// Guard runs a call as Breaker(Backoff(deadline(op))). Nil or zero fields
// are skipped, so the zero Guard calls op directly.
type Guard struct {
	Breaker  *Breaker
	Backoff  *Backoff
	Deadline time.Duration // per attempt

	// Passive records only failures on the breaker (see Breaker.Observe).
	Passive bool
}

// Do runs op under the guard.
func (g Guard) Do(ctx context.Context, op func(context.Context) error) error {
	call := op
	if g.Deadline > 0 {
		inner := call
		call = func(ctx context.Context) error { return withDeadline(ctx, g.Deadline, inner) }
	}
	if g.Backoff != nil {
		inner := call
		call = func(ctx context.Context) error { return g.Backoff.Do(ctx, inner) }
	}
	if g.Breaker != nil && g.Passive {
		return g.Breaker.Observe(ctx, call)
	}
	if g.Breaker != nil {
		return g.Breaker.Do(ctx, call)
	}
	return call(ctx)
}

// withDeadline returns ErrDeadline as soon as d has passed, without waiting
// for op. op sees its context cancelled.
func withDeadline(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrDeadline
		}
		return ctx.Err()
	}
}
