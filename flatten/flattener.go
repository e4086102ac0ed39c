package flatten

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/jonwraymond/flatten/cache"
	"github.com/jonwraymond/flatten/observe"
)

// Flattener decides, looks up and captures cached pages.
// It is safe for concurrent use.
type Flattener struct {
	cfg      Config
	rules    *Rules
	store    cache.Store
	disabled bool
	flusher  *Flusher
	settings
}

// New builds a Flattener. Pattern and configuration errors are returned here
// so a misconfigured host fails at startup.
func New(store cache.Store, cfg Config, opts ...Option) (*Flattener, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.HookPoint == "" {
		cfg.HookPoint = HookRequest
	}
	rules, err := NewRules(cfg.RuleMode, cfg.Only, cfg.Ignore)
	if err != nil {
		return nil, err
	}

	s := newSettings(opts)
	f := &Flattener{
		cfg:      cfg,
		rules:    rules,
		store:    store,
		disabled: cfg.Disabled(),
		settings: s,
	}
	f.flusher = &Flusher{store: store, folder: cfg.Folder, settings: s}
	return f, nil
}

// Config returns the configuration the Flattener was built with.
func (f *Flattener) Config() Config { return f.cfg }

// Flusher returns the flusher bound to the same store and folder.
func (f *Flattener) Flusher() *Flusher { return f.flusher }

// Begin opens the cycle of r. The cycle is engaged when the environment is
// not disabled, the method is GET or HEAD and the rules accept the path.
func (f *Flattener) Begin(r *http.Request) *Cycle {
	path := RequestPath(r)
	c := &Cycle{
		ID:       uuid.NewString(),
		Path:     path,
		Locale:   LocaleFromPath(path, f.cfg.DefaultLocale),
		Method:   r.Method,
		folder:   f.cfg.Folder,
		localize: f.cfg.Localize,
	}
	if route := mux.CurrentRoute(r); route != nil {
		c.Route = route.GetName()
	}
	if f.disabled {
		return c
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return c
	}
	c.Engaged = f.rules.ShouldCache(path)
	return c
}

// Lookup is the early hook. Store errors and empty payloads are misses.
func (f *Flattener) Lookup(ctx context.Context, c *Cycle) Result {
	if c == nil || !c.Engaged {
		return Result{Outcome: OutcomeBypass}
	}
	payload, ok := f.store.Get(ctx, c.Key())
	if !ok || len(payload) == 0 {
		return Result{Outcome: OutcomeMiss}
	}
	return Result{Outcome: OutcomeHit, Payload: payload}
}

// Store is the late hook. It writes body under the cycle key without expiry.
// The error is logged and returned for the caller's information only.
func (f *Flattener) Store(ctx context.Context, c *Cycle, body []byte) error {
	if c == nil || !c.Engaged {
		return nil
	}
	meta := c.Meta()
	err := f.store.SetForever(ctx, c.Key(), body)
	f.metrics.RecordStore(ctx, meta, len(body), err)
	if err != nil {
		f.logger.WithPage(meta).Warn(ctx, "page not stored",
			observe.Field{Key: "error", Value: err})
		return fmt.Errorf("flatten: store %q: %w", c.Key(), err)
	}
	f.logger.WithPage(meta).Debug(ctx, "page stored",
		observe.Field{Key: "bytes", Value: len(body)})
	return nil
}

// Flush removes cached pages. See Flusher.Flush.
func (f *Flattener) Flush(ctx context.Context, pattern string) (int, error) {
	return f.flusher.Flush(ctx, pattern)
}
