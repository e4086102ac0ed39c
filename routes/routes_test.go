package routes

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/flatten/cache"
	"github.com/jonwraymond/flatten/flatten"
)

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	router := mux.NewRouter()
	router.Handle("/{locale}/blog/{slug}", noop).Name("blog.post")
	router.Handle("/about", noop).Name("about")

	r, err := NewResolver(router, "https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	r.HandleAction("/{locale}/shop/{id:[0-9]+}", "ShopController@show", noop)
	return r
}

func TestResolver_RouteURL(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name   string
		route  string
		params map[string]string
		want   string
	}{
		{"with vars", "blog.post", map[string]string{"locale": "en", "slug": "post-1"}, "https://example.com/en/blog/post-1"},
		{"static", "about", nil, "https://example.com/about"},
		{"extra params", "about", map[string]string{"page": "2"}, "https://example.com/about"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.RouteURL(tt.route, tt.params)
			if err != nil {
				t.Fatalf("RouteURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RouteURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_ActionURL(t *testing.T) {
	r := newTestResolver(t)

	got, err := r.ActionURL("ShopController@show", map[string]string{"locale": "fr", "id": "42"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://example.com/fr/shop/42" {
		t.Errorf("ActionURL() = %q", got)
	}
}

func TestResolver_Errors(t *testing.T) {
	r := newTestResolver(t)

	if _, err := r.RouteURL("missing", nil); !errors.Is(err, ErrUnknownRoute) {
		t.Errorf("RouteURL(missing) error = %v, want ErrUnknownRoute", err)
	}
	if _, err := r.RouteURL("blog.post", map[string]string{"locale": "en"}); err == nil {
		t.Error("expected error for missing route variable")
	}
	if _, err := r.ActionURL("ShopController@show", map[string]string{"locale": "fr", "id": "abc"}); err == nil {
		t.Error("expected error for a variable that fails its pattern")
	}
	for _, base := range []string{"", "example.com", "/relative"} {
		if _, err := NewResolver(mux.NewRouter(), base); !errors.Is(err, ErrInvalidBaseURL) {
			t.Errorf("NewResolver(%q) error = %v, want ErrInvalidBaseURL", base, err)
		}
	}
}

func TestResolver_FlushesThroughInvalidator(t *testing.T) {
	ctx := context.Background()
	r := newTestResolver(t)

	store := cache.NewMemoryStore()
	for _, k := range []string{"en_blog_post-1", "de_blog_post-1", "en_blog_post-2", "fr_shop_42"} {
		if err := store.SetForever(ctx, k, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	fl, _ := flatten.NewFlusher(store, "")
	inv, err := flatten.NewInvalidator(fl, r)
	if err != nil {
		t.Fatal(err)
	}

	n, err := inv.FlushRoute(ctx, "blog.post", map[string]string{"locale": "en", "slug": "post-1"})
	if err != nil || n != 2 {
		t.Fatalf("FlushRoute() = %d, %v; want 2, nil", n, err)
	}
	n, err = inv.FlushAction(ctx, "ShopController@show", map[string]string{"locale": "fr", "id": "42"})
	if err != nil || n != 1 {
		t.Fatalf("FlushAction() = %d, %v; want 1, nil", n, err)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}
