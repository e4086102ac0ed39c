package flatten

import (
	"context"

	"github.com/jonwraymond/flatten/observe"
)

// Outcome is the result of the early hook.
type Outcome int

const (
	// OutcomeBypass means caching is not engaged for the cycle.
	OutcomeBypass Outcome = iota
	// OutcomeHit means a stored page was found; rendering is short-circuited.
	OutcomeHit
	// OutcomeMiss means the page must be rendered and captured.
	OutcomeMiss
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBypass:
		return "bypass"
	case OutcomeHit:
		return "hit"
	case OutcomeMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// Result is returned by Lookup. Payload is set only for OutcomeHit.
type Result struct {
	Outcome Outcome
	Payload []byte
}

// Cycle holds the state of one request. It is owned by a single request and
// is not safe for concurrent use.
type Cycle struct {
	ID      string
	Path    string
	Locale  string
	Route   string
	Method  string
	Engaged bool

	folder   string
	localize bool
	key      string
	keySet   bool
}

// Key returns the cache key of the cycle, deriving it on first use.
func (c *Cycle) Key() string {
	if !c.keySet {
		c.key = DeriveKey(c.Path, c.Locale, c.folder, c.localize)
		c.keySet = true
	}
	return c.key
}

// SetKey overrides the derived key.
func (c *Cycle) SetKey(key string) {
	c.key = key
	c.keySet = true
}

// Meta returns the telemetry metadata of the cycle.
func (c *Cycle) Meta() observe.PageMeta {
	m := observe.PageMeta{
		CycleID: c.ID,
		Path:    c.Path,
		Locale:  c.Locale,
		Route:   c.Route,
	}
	if c.Engaged {
		m.Key = c.Key()
	}
	return m
}

type cycleKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *Cycle) context.Context {
	return context.WithValue(ctx, cycleKey{}, c)
}

// CycleFromContext returns the cycle stored in ctx by the early hook.
func CycleFromContext(ctx context.Context) (*Cycle, bool) {
	c, ok := ctx.Value(cycleKey{}).(*Cycle)
	return c, ok && c != nil
}
