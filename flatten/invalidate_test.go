package flatten

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jonwraymond/flatten/cache"
)

const testBase = "https://example.com"

type stubResolver struct {
	routes  map[string]string
	actions map[string]string
}

func (s stubResolver) RouteURL(route string, params map[string]string) (string, error) {
	u, ok := s.routes[route]
	if !ok {
		return "", fmt.Errorf("no route %q", route)
	}
	if id, ok := params["id"]; ok {
		u += "/" + id
	}
	return u, nil
}

func (s stubResolver) ActionURL(action string, params map[string]string) (string, error) {
	u, ok := s.actions[action]
	if !ok {
		return "", fmt.Errorf("no action %q", action)
	}
	if id, ok := params["id"]; ok {
		u += "/" + id
	}
	return u, nil
}

func (stubResolver) BaseURL() string { return testBase }

func TestURLToPattern(t *testing.T) {
	tests := []struct {
		url, base, want string
	}{
		{testBase + "/en/blog/post-1", testBase, "blog/post-1"},
		{testBase + "/blog/post-1", testBase, "blog/post-1"},
		{testBase + "/blog/post-1", testBase + "/", "blog/post-1"},
		{testBase + "/fr/shop", testBase, "shop"},
		{testBase + "/blog/en/x", testBase, "blog/en/x"},
		{testBase + "/en/blog?page=2", testBase, "blog"},
		{testBase + "/eng/blog", testBase, "eng/blog"},
		{"https://other.org/en/blog", testBase, "https://other.org/en/blog"},
		{testBase + "/", testBase, ""},
	}
	for _, tt := range tests {
		if got := URLToPattern(tt.url, tt.base); got != tt.want {
			t.Errorf("URLToPattern(%q, %q) = %q, want %q", tt.url, tt.base, got, tt.want)
		}
	}
}

func newTestInvalidator(t *testing.T) (*Invalidator, *cache.MemoryStore) {
	t.Helper()
	store := cache.NewMemoryStore()
	f, err := NewFlusher(store, "")
	if err != nil {
		t.Fatal(err)
	}
	inv, err := NewInvalidator(f, stubResolver{
		routes:  map[string]string{"post": testBase + "/en/blog"},
		actions: map[string]string{"shop@show": testBase + "/fr/shop"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return inv, store
}

func TestInvalidator_FlushRoute(t *testing.T) {
	ctx := context.Background()
	inv, store := newTestInvalidator(t)
	seed(t, store, "en_blog_post-1", "fr_blog_post-1", "en_blog_post-2")

	n, err := inv.FlushRoute(ctx, "post", map[string]string{"id": "post-1"})
	if err != nil || n != 2 {
		t.Fatalf("FlushRoute() = %d, %v; want 2, nil", n, err)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestInvalidator_FlushAction(t *testing.T) {
	ctx := context.Background()
	inv, store := newTestInvalidator(t)
	seed(t, store, "en_shop_42", "en_blog")

	n, err := inv.FlushAction(ctx, "shop@show", map[string]string{"id": "42"})
	if err != nil || n != 1 {
		t.Fatalf("FlushAction() = %d, %v; want 1, nil", n, err)
	}
}

func TestInvalidator_Errors(t *testing.T) {
	ctx := context.Background()
	inv, _ := newTestInvalidator(t)

	if _, err := inv.FlushRoute(ctx, "missing", nil); err == nil {
		t.Error("expected resolve error for unknown route")
	}
	if _, err := inv.FlushAction(ctx, "missing", nil); err == nil {
		t.Error("expected resolve error for unknown action")
	}

	root, _ := NewInvalidator(inv.flusher, stubResolver{routes: map[string]string{"home": testBase + "/en"}})
	if _, err := root.FlushRoute(ctx, "home", map[string]string{"id": ""}); !errors.Is(err, ErrEmptyPattern) {
		t.Errorf("FlushRoute(home) error = %v, want ErrEmptyPattern", err)
	}

	if _, err := NewInvalidator(inv.flusher, nil); !errors.Is(err, ErrNilResolver) {
		t.Errorf("NewInvalidator(nil) error = %v, want ErrNilResolver", err)
	}
}
