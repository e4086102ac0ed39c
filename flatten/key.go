package flatten

import (
	"net/http"
	"os"
	"regexp"
	"strings"
)

// RootPath is the request path of the site root.
const RootPath = "/"

var localePattern = regexp.MustCompile(`(?i)^([a-z]{2})/.+`)

// DeriveKey turns a request path into a cache key.
//
// When localize is set and path does not start with locale, "<locale>/" is
// prepended. Every "/" is replaced with "_" and a non-empty folder is joined
// in front with the platform path separator.
func DeriveKey(path, locale, folder string, localize bool) string {
	if localize && !strings.HasPrefix(path, locale) {
		path = locale + "/" + path
	}
	key := strings.ReplaceAll(path, "/", "_")
	if folder != "" {
		key = folder + string(os.PathSeparator) + key
	}
	return key
}

// LocaleFromPath returns the two-letter leading segment of path, or fallback
// when the path has none. "en/blog" yields "en"; "en" alone does not.
func LocaleFromPath(path, fallback string) string {
	m := localePattern.FindStringSubmatch(path)
	if m == nil {
		return fallback
	}
	return m[1]
}

// RequestPath returns the URL path of r without surrounding slashes, or
// RootPath for the site root. The query string is not part of the path.
func RequestPath(r *http.Request) string {
	p := strings.Trim(r.URL.Path, "/")
	if p == "" {
		return RootPath
	}
	return p
}
