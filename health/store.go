package health

import (
	"context"

	"github.com/jonwraymond/flatten/cache"
	"github.com/jonwraymond/flatten/resilience"
)

// breakerReporter is implemented by cache.ResilientStore.
type breakerReporter interface {
	BreakerSnapshot() resilience.Snapshot
}

// StoreChecker reports the health of a cache store. A store that cannot be
// pinged is unhealthy; a store whose breaker is open or probing is degraded,
// since requests still render fresh pages.
type StoreChecker struct {
	store cache.Store
}

// NewStoreChecker returns a checker for store.
func NewStoreChecker(store cache.Store) *StoreChecker {
	return &StoreChecker{store: store}
}

func (c *StoreChecker) Name() string { return "store" }

func (c *StoreChecker) Check(ctx context.Context) Result {
	details := map[string]any{}

	if br, ok := find[breakerReporter](c.store); ok {
		snap := br.BreakerSnapshot()
		details["breaker"] = snap.State.String()
		details["breaker_trips"] = snap.Trips
		if !snap.OpenedAt.IsZero() {
			details["breaker_opened_at"] = snap.OpenedAt
		}
		switch snap.State {
		case resilience.StateOpen:
			r := Degraded("store circuit open, serving fresh renders")
			r.Error = ErrCircuitOpen
			return r.WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("store circuit probing").WithDetails(details)
		}
	}

	p, ok := c.store.(cache.Pinger)
	if !ok {
		return Healthy("store does not support ping").WithDetails(details)
	}
	if err := p.Ping(ctx); err != nil {
		return Unhealthy("store unreachable", err).WithDetails(details)
	}
	return Healthy("store reachable").WithDetails(details)
}

// find walks the Unwrap chain of store wrappers for the first store that
// implements T.
func find[T any](s cache.Store) (T, bool) {
	for s != nil {
		if t, ok := s.(T); ok {
			return t, true
		}
		u, ok := s.(interface{ Unwrap() cache.Store })
		if !ok {
			break
		}
		s = u.Unwrap()
	}
	var zero T
	return zero, false
}
