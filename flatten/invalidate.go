package flatten

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var localeSegment = regexp.MustCompile(`^[a-z]{2}/`)

// URLToPattern turns a resolved URL into a locale-agnostic flush pattern. The
// "<baseURL>/" prefix is removed, then a leading two-letter locale segment.
// Query and fragment are dropped since keys never include them.
func URLToPattern(resolvedURL, baseURL string) string {
	u := strings.TrimPrefix(resolvedURL, strings.TrimRight(baseURL, "/")+"/")
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return localeSegment.ReplaceAllString(u, "")
}

// URLResolver resolves symbolic routes and actions to absolute URLs.
type URLResolver interface {
	// RouteURL returns the URL of the named route.
	RouteURL(route string, params map[string]string) (string, error)

	// ActionURL returns the URL of the named action.
	ActionURL(action string, params map[string]string) (string, error)

	// BaseURL returns the absolute base URL of the site.
	BaseURL() string
}

// Invalidator flushes the pages behind routes and actions.
type Invalidator struct {
	flusher  *Flusher
	resolver URLResolver
}

// NewInvalidator returns an Invalidator flushing through f.
func NewInvalidator(f *Flusher, resolver URLResolver) (*Invalidator, error) {
	if f == nil {
		return nil, ErrNilStore
	}
	if resolver == nil {
		return nil, ErrNilResolver
	}
	return &Invalidator{flusher: f, resolver: resolver}, nil
}

// FlushRoute flushes every cached variant of the named route.
func (i *Invalidator) FlushRoute(ctx context.Context, route string, params map[string]string) (int, error) {
	u, err := i.resolver.RouteURL(route, params)
	if err != nil {
		return 0, fmt.Errorf("flatten: resolve route %q: %w", route, err)
	}
	return i.flushURL(ctx, u)
}

// FlushAction flushes every cached variant of the named action.
func (i *Invalidator) FlushAction(ctx context.Context, action string, params map[string]string) (int, error) {
	u, err := i.resolver.ActionURL(action, params)
	if err != nil {
		return 0, fmt.Errorf("flatten: resolve action %q: %w", action, err)
	}
	return i.flushURL(ctx, u)
}

// Pattern returns the flush pattern of a resolved URL.
func (i *Invalidator) Pattern(resolvedURL string) string {
	return URLToPattern(resolvedURL, i.resolver.BaseURL())
}

func (i *Invalidator) flushURL(ctx context.Context, u string) (int, error) {
	pattern := i.Pattern(u)
	if pattern == "" {
		return 0, fmt.Errorf("%w: %q", ErrEmptyPattern, u)
	}
	return i.flusher.Flush(ctx, pattern)
}
