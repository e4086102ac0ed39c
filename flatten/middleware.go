package flatten

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/flatten/observe"
)

// ContentType is the content type of pages served from the cache.
const ContentType = "text/html; charset=utf-8"

// Middleware wraps next with both hooks.
func (f *Flattener) Middleware(next http.Handler) http.Handler {
	return f.Early(f.Late(next))
}

// Handler mounts the hooks on router according to Config.HookPoint and
// returns the handler to serve.
func (f *Flattener) Handler(router *mux.Router) http.Handler {
	if f.cfg.HookPoint == HookRoute {
		router.Use(f.Middleware)
		return router
	}
	return f.Middleware(router)
}

// Early returns the early hook. It opens the cycle, serves a hit without
// calling next, and otherwise passes the cycle to next through the request
// context.
func (f *Flattener) Early(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CycleFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		c := f.Begin(r)
		ctx, span := f.tracer.StartCycle(r.Context(), c.Meta())

		res := f.Lookup(ctx, c)
		if res.Outcome == OutcomeHit {
			f.serveHit(w, r, res.Payload)
			f.finish(ctx, span, c, res.Outcome, start)
			return
		}

		next.ServeHTTP(w, r.WithContext(NewContext(ctx, c)))
		f.finish(ctx, span, c, res.Outcome, start)
	})
}

// Late returns the late hook. For an engaged GET cycle it buffers the
// response of next, stores a 200 body and then sends the same bytes. Without
// an early hook in front it opens its own cycle.
func (f *Flattener) Late(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CycleFromContext(r.Context())
		if !ok {
			c = f.Begin(r)
		}
		if !c.Engaged || c.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		cw := newCaptureWriter(w)
		next.ServeHTTP(cw, r)

		body := cw.Body()
		if cw.Status() == http.StatusOK && len(body) > 0 {
			_ = f.Store(r.Context(), c, body)
			if f.cfg.ETag {
				w.Header().Set("ETag", ETag(body))
			}
		}
		if err := cw.emit(); err != nil {
			f.logger.WithPage(c.Meta()).Debug(r.Context(), "response write failed",
				observe.Field{Key: "error", Value: err})
		}
	})
}

func (f *Flattener) serveHit(w http.ResponseWriter, r *http.Request, payload []byte) {
	h := w.Header()
	h.Set("Content-Type", ContentType)
	if f.cfg.ETag {
		tag := ETag(payload)
		h.Set("ETag", tag)
		if etagMatch(r.Header.Get("If-None-Match"), tag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	h.Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(payload)
}

func (f *Flattener) finish(ctx context.Context, span trace.Span, c *Cycle, outcome Outcome, start time.Time) {
	meta := c.Meta()
	f.tracer.EndCycle(span, outcome.String(), meta.Key, nil)
	f.metrics.RecordCycle(ctx, meta, outcome.String(), time.Since(start))
	if outcome != OutcomeBypass {
		f.logger.WithPage(meta).Debug(ctx, "page cache "+outcome.String())
	}
}
