package resilience

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff repeats a failed call with exponentially growing waits. The zero
// value makes 3 attempts starting at 100ms, capped at 5s.
type Backoff struct {
	Attempts  int           // total attempts including the first
	Base      time.Duration // wait before the second attempt
	Cap       time.Duration // longest wait
	Jitter    bool          // add up to 25% to each wait
	Retryable func(err error) bool
}

// Do runs op until it succeeds, attempts run out, Retryable rejects the
// error or ctx ends. It returns the last error.
func (b *Backoff) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := b.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	var err error
	for n := 1; ; n++ {
		err = op(ctx)
		if err == nil || n >= attempts || (b.Retryable != nil && !b.Retryable(err)) {
			return err
		}
		t := time.NewTimer(b.Wait(n))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Wait returns the pause after failed attempt n (1-based).
func (b *Backoff) Wait(n int) time.Duration {
	base, ceiling := b.Base, b.Cap
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if ceiling <= 0 {
		ceiling = 5 * time.Second
	}
	d := base << (n - 1)
	if d <= 0 || d > ceiling {
		d = ceiling
	}
	if b.Jitter && d >= 4 {
		// #nosec G404 -- timing jitter, not a secret.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}
