package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sourcegraph/conc/iter"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds one check, and one CheckAll run. Default: 5s
	Timeout time.Duration
}

type entry struct {
	name    string
	checker Checker
}

// Aggregator runs the page cache's checkers, in registration order.
type Aggregator struct {
	timeout time.Duration

	mu      sync.RWMutex
	entries []entry
}

// NewAggregator returns an empty Aggregator. Only the first config is used.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	a := &Aggregator{timeout: 5 * time.Second}
	if len(config) > 0 && config[0].Timeout > 0 {
		a.timeout = config[0].Timeout
	}
	return a
}

// Register adds checker as name. Registering a name again replaces its
// checker and keeps its position.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i := a.index(name); i >= 0 {
		a.entries[i].checker = checker
		return
	}
	a.entries = append(a.entries, entry{name: name, checker: checker})
}

func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i := a.index(name); i >= 0 {
		a.entries = slices.Delete(a.entries, i, i+1)
	}
}

// CheckerNames returns the registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

// Check runs one checker. It returns ErrCheckerNotFound for an unknown name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i := a.index(name)
	var c Checker
	if i >= 0 {
		c = a.entries[i].checker
	}
	a.mu.RUnlock()
	if c == nil {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return timed(ctx, c), nil
}

// CheckAll runs every checker concurrently and keys the results by name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	entries := slices.Clone(a.entries)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := iter.Map(entries, func(e *entry) Result { return timed(ctx, e.checker) })

	out := make(map[string]Result, len(entries))
	for i, e := range entries {
		out[e.name] = results[i]
	}
	return out
}

// OverallStatus is the worst status in results; no results is healthy.
func OverallStatus(results map[string]Result) Status {
	s := StatusHealthy
	for _, r := range results {
		s = s.Worse(r.Status)
	}
	return s
}

// index must be called with mu held.
func (a *Aggregator) index(name string) int {
	return slices.IndexFunc(a.entries, func(e entry) bool { return e.name == name })
}

// timed runs c, giving up when ctx ends. A checker that ignores ctx keeps
// running in the background; its late result is dropped.
func timed(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- c.Check(ctx) }()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	r.Duration = time.Since(start)
	return r
}
