package flatten

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/flatten/cache"
)

// renderer counts renders and writes a page derived from the path.
type renderer struct {
	calls  atomic.Int32
	status int
}

func (h *renderer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.calls.Add(1)
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("X-Rendered", "yes")
	if h.status != 0 {
		w.WriteHeader(h.status)
	}
	_, _ = io.WriteString(w, "<h1>"+r.URL.Path+"</h1>")
}

func newTestFlattener(t *testing.T, store cache.Store, mutate func(*Config)) *Flattener {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Ignore = []string{"^admin/"}
	if mutate != nil {
		mutate(&cfg)
	}
	f, err := New(store, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return f
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestMiddleware_MissThenHit(t *testing.T) {
	store := cache.NewMemoryStore()
	f := newTestFlattener(t, store, nil)
	h := &renderer{}
	srv := f.Middleware(h)

	first := do(srv, http.MethodGet, "/en/blog/post-1")
	if first.Code != http.StatusOK || first.Body.String() != "<h1>/en/blog/post-1</h1>" {
		t.Fatalf("miss response = %d %q", first.Code, first.Body.String())
	}
	if first.Header().Get("X-Rendered") != "yes" {
		t.Error("miss response lost handler headers")
	}

	stored, ok := store.Get(context.Background(), "en_blog_post-1")
	if !ok || string(stored) != first.Body.String() {
		t.Fatalf("stored = %q, %v; want the rendered body", stored, ok)
	}

	second := do(srv, http.MethodGet, "/en/blog/post-1")
	if second.Body.String() != first.Body.String() {
		t.Errorf("hit body = %q, want %q", second.Body.String(), first.Body.String())
	}
	if got := second.Header().Get("Content-Type"); got != ContentType {
		t.Errorf("hit Content-Type = %q, want %q", got, ContentType)
	}
	if h.calls.Load() != 1 {
		t.Errorf("renders = %d, want 1", h.calls.Load())
	}
}

func TestMiddleware_HitShortCircuits(t *testing.T) {
	store := cache.NewMemoryStore()
	payload := []byte("<html>cached \x00 bytes</html>")
	if err := store.SetForever(context.Background(), "en_blog", payload); err != nil {
		t.Fatal(err)
	}
	f := newTestFlattener(t, store, nil)

	srv := f.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run on a hit")
	}))

	rec := do(srv, http.MethodGet, "/blog")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != string(payload) {
		t.Errorf("body = %q, want %q", rec.Body.String(), payload)
	}
}

func TestMiddleware_Bypass(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		method string
		target string
	}{
		{"ignored path", nil, http.MethodGet, "/admin/users"},
		{"post", nil, http.MethodPost, "/en/blog"},
		{"disabled environment", func(c *Config) {
			c.Environment = "local"
			c.Environments = []string{"local", "testing"}
		}, http.MethodGet, "/en/blog"},
		{"no rules", func(c *Config) { c.Ignore = nil }, http.MethodGet, "/en/blog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			f := newTestFlattener(t, store, tt.mutate)
			h := &renderer{}
			srv := f.Middleware(h)

			do(srv, tt.method, tt.target)
			do(srv, tt.method, tt.target)

			if h.calls.Load() != 2 {
				t.Errorf("renders = %d, want 2", h.calls.Load())
			}
			if store.Len() != 0 {
				t.Errorf("stored %d entries, want 0", store.Len())
			}
			if store.lookups() != 0 {
				t.Errorf("lookups = %d, want 0", store.lookups())
			}
		})
	}
}

func TestMiddleware_NonOKNotStored(t *testing.T) {
	store := cache.NewMemoryStore()
	f := newTestFlattener(t, store, nil)
	h := &renderer{status: http.StatusNotFound}

	rec := do(f.Middleware(h), http.MethodGet, "/en/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if store.Len() != 0 {
		t.Errorf("stored %d entries, want 0", store.Len())
	}
}

func TestMiddleware_FlushKeepsStatus(t *testing.T) {
	store := cache.NewMemoryStore()
	f := newTestFlattener(t, store, nil)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "gone")
		if err := http.NewResponseController(w).Flush(); err != nil {
			t.Errorf("Flush() error = %v", err)
		}
	})
	srv := httptest.NewServer(f.Middleware(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/en/blog/x")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if string(body) != "gone" {
		t.Errorf("body = %q, want %q", body, "gone")
	}
	if store.Len() != 0 {
		t.Errorf("stored %d entries, want 0", store.Len())
	}
}

func TestMiddleware_StoreFailureStillServes(t *testing.T) {
	store := &brokenStore{}
	f := newTestFlattener(t, store, nil)

	rec := do(f.Middleware(&renderer{}), http.MethodGet, "/en/blog")
	if rec.Code != http.StatusOK || rec.Body.String() != "<h1>/en/blog</h1>" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
	if store.sets.Load() != 1 {
		t.Errorf("store writes = %d, want 1", store.sets.Load())
	}
}

func TestMiddleware_HeadServesHitWithoutBody(t *testing.T) {
	store := cache.NewMemoryStore()
	_ = store.SetForever(context.Background(), "en_blog", []byte("<p>page</p>"))
	f := newTestFlattener(t, store, nil)
	h := &renderer{}

	rec := do(f.Middleware(h), http.MethodHead, "/en/blog")
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Errorf("HEAD hit = %d with %d bytes", rec.Code, rec.Body.Len())
	}
	if rec.Header().Get("Content-Length") != "11" {
		t.Errorf("Content-Length = %q, want 11", rec.Header().Get("Content-Length"))
	}

	do(f.Middleware(h), http.MethodHead, "/en/other")
	if _, ok := store.Get(context.Background(), "en_other"); ok {
		t.Error("HEAD miss must not be stored")
	}
}

func TestMiddleware_ETag(t *testing.T) {
	store := cache.NewMemoryStore()
	f := newTestFlattener(t, store, func(c *Config) { c.ETag = true })
	srv := f.Middleware(&renderer{})

	miss := do(srv, http.MethodGet, "/en/blog")
	tag := miss.Header().Get("ETag")
	if tag != ETag([]byte("<h1>/en/blog</h1>")) {
		t.Fatalf("miss ETag = %q", tag)
	}

	hit := do(srv, http.MethodGet, "/en/blog")
	if hit.Header().Get("ETag") != tag {
		t.Errorf("hit ETag = %q, want %q", hit.Header().Get("ETag"), tag)
	}

	req := httptest.NewRequest(http.MethodGet, "/en/blog", nil)
	req.Header.Set("If-None-Match", tag)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified || rec.Body.Len() != 0 {
		t.Errorf("conditional hit = %d with %d bytes, want 304", rec.Code, rec.Body.Len())
	}
}

func TestLate_StandaloneCapture(t *testing.T) {
	store := cache.NewMemoryStore()
	f := newTestFlattener(t, store, nil)

	rec := do(f.Late(&renderer{}), http.MethodGet, "/shop")
	if rec.Body.String() != "<h1>/shop</h1>" {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if _, ok := store.Get(context.Background(), "en_shop"); !ok {
		t.Error("Late alone should store the page")
	}
}

func TestHandler_HookPoints(t *testing.T) {
	for _, hp := range []HookPoint{HookRequest, HookRoute} {
		t.Run(string(hp), func(t *testing.T) {
			store := cache.NewMemoryStore()
			f := newTestFlattener(t, store, func(c *Config) { c.HookPoint = hp })
			h := &renderer{}

			router := mux.NewRouter()
			router.Handle("/{locale}/blog", h).Name("blog")
			srv := f.Handler(router)

			do(srv, http.MethodGet, "/en/blog")
			do(srv, http.MethodGet, "/en/blog")
			if h.calls.Load() != 1 {
				t.Errorf("renders = %d, want 1", h.calls.Load())
			}

			rec := do(srv, http.MethodGet, "/en/unknown")
			if rec.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rec.Code)
			}
			if store.Len() != 1 {
				t.Errorf("entries = %d, want 1", store.Len())
			}
		})
	}
}

func TestBegin_RouteName(t *testing.T) {
	f := newTestFlattener(t, cache.NewMemoryStore(), nil)

	var got *Cycle
	router := mux.NewRouter()
	router.HandleFunc("/{locale}/blog", func(_ http.ResponseWriter, r *http.Request) {
		got = f.Begin(r)
	}).Name("blog")

	do(router, http.MethodGet, "/de/blog")
	if got == nil {
		t.Fatal("route not matched")
	}
	if got.Route != "blog" || got.Locale != "de" || !got.Engaged {
		t.Errorf("cycle = %+v", got)
	}
	if got.ID == "" {
		t.Error("cycle has no ID")
	}
}
