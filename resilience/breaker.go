package resilience

import (
	"context"
	"sync"
	"time"
)

// State is the position of a Breaker.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls fail fast with ErrOpen
	StateHalfOpen              // a few probe calls are let through
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerConfig configures a Breaker. Zero fields take the defaults noted.
type BreakerConfig struct {
	// Threshold is the number of consecutive failed calls that opens the
	// breaker. Default: 5
	Threshold int

	// Cooldown is how long the breaker stays open before probing.
	// Default: 30s
	Cooldown time.Duration

	// Probes is the number of calls admitted while half-open. Default: 1
	Probes int

	// OnTransition is called with the breaker lock held; it must not call
	// back into the breaker.
	OnTransition func(from, to State)

	// Counts reports whether err counts as a backend failure.
	// Default: err != nil
	Counts func(err error) bool
}

// Snapshot is a point-in-time view of a Breaker.
type Snapshot struct {
	State    State
	Failures int       // consecutive failures while closed
	Trips    uint64    // times the breaker has opened
	OpenedAt time.Time // zero unless it has opened at least once
}

// Breaker fails fast while a backend is known to be down.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	probes   int
	trips    uint64
	openedAt time.Time
}

// NewBreaker returns a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 1
	}
	if cfg.Counts == nil {
		cfg.Counts = func(err error) bool { return err != nil }
	}
	return &Breaker{cfg: cfg}
}

type outcome int

const (
	succeeded outcome = iota
	failed
	neutral
)

// Do runs op unless the breaker rejects it, and records the outcome.
func (b *Breaker) Do(ctx context.Context, op func(context.Context) error) error {
	return b.run(ctx, op, succeeded)
}

// Observe runs op like Do but only records failures. A call that did not
// fail leaves the failure count as it is, so a caller that cannot tell a
// miss from a backend error never masks the errors reported by other calls.
func (b *Breaker) Observe(ctx context.Context, op func(context.Context) error) error {
	return b.run(ctx, op, neutral)
}

func (b *Breaker) run(ctx context.Context, op func(context.Context) error, onOK outcome) error {
	if !b.admit() {
		return ErrOpen
	}
	err := op(ctx)
	if b.cfg.Counts(err) {
		b.record(failed)
	} else {
		b.record(onOK)
	}
	return err
}

// State returns the current state. An open breaker whose cooldown has passed
// reports half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tick()
	return b.state
}

// Snapshot returns the current counters.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tick()
	return Snapshot{State: b.state, Failures: b.failures, Trips: b.trips, OpenedAt: b.openedAt}
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures, b.probes = 0, 0
	b.move(StateClosed)
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tick()
	switch b.state {
	case StateOpen:
		return false
	case StateHalfOpen:
		if b.probes >= b.cfg.Probes {
			return false
		}
		b.probes++
	}
	return true
}

func (b *Breaker) record(o outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.state == StateHalfOpen && o == neutral:
		// give the probe slot back so a later call can settle the state
		if b.probes > 0 {
			b.probes--
		}
	case b.state == StateHalfOpen && o == failed:
		b.trip()
	case b.state == StateHalfOpen:
		b.failures = 0
		b.move(StateClosed)
	case b.state == StateClosed && o == failed:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.trip()
		}
	case b.state == StateClosed && o == succeeded:
		b.failures = 0
	}
}

func (b *Breaker) trip() {
	b.trips++
	b.openedAt = time.Now()
	b.move(StateOpen)
}

// tick moves an open breaker to half-open once the cooldown has passed.
func (b *Breaker) tick() {
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cfg.Cooldown {
		b.probes = 0
		b.move(StateHalfOpen)
	}
}

func (b *Breaker) move(to State) {
	from := b.state
	b.state = to
	if from != to && b.cfg.OnTransition != nil {
		b.cfg.OnTransition(from, to)
	}
}
