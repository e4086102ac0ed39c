// Package routes resolves named gorilla/mux routes and actions to absolute
// URLs so cached pages can be invalidated by route or action name.
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/flatten/flatten"
)

// ActionPrefix prefixes the route name of an action.
const ActionPrefix = "action:"

var (
	// ErrUnknownRoute is returned when no route has the requested name.
	ErrUnknownRoute = errors.New("routes: unknown route")

	// ErrInvalidBaseURL is returned when the base URL is not absolute.
	ErrInvalidBaseURL = errors.New("routes: base url must be absolute")
)

// Resolver implements flatten.URLResolver over a mux.Router.
type Resolver struct {
	router *mux.Router
	base   string
}

// NewResolver returns a Resolver for router. baseURL is the absolute URL the
// site is served from, e.g. "https://example.com".
func NewResolver(router *mux.Router, baseURL string) (*Resolver, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	return &Resolver{router: router, base: strings.TrimRight(baseURL, "/")}, nil
}

// BaseURL returns the base URL without a trailing slash.
func (r *Resolver) BaseURL() string { return r.base }

// Router returns the underlying router.
func (r *Resolver) Router() *mux.Router { return r.router }

// RouteURL builds the absolute URL of the named route. Params fill the route
// variables; extra params are ignored.
func (r *Resolver) RouteURL(name string, params map[string]string) (string, error) {
	route := r.router.Get(name)
	if route == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}
	u, err := route.URL(pairs(params)...)
	if err != nil {
		return "", fmt.Errorf("routes: build %q: %w", name, err)
	}
	if u.Host != "" {
		return u.String(), nil
	}
	out := r.base + u.Path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out, nil
}

// ActionURL builds the absolute URL of the named action.
func (r *Resolver) ActionURL(action string, params map[string]string) (string, error) {
	return r.RouteURL(ActionPrefix+action, params)
}

// HandleAction registers h as the named action at path.
func (r *Resolver) HandleAction(path, action string, h http.Handler) *mux.Route {
	return r.router.Handle(path, h).Name(ActionPrefix + action)
}

func pairs(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, k, params[k])
	}
	return out
}

var _ flatten.URLResolver = (*Resolver)(nil)
