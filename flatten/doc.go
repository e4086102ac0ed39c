// Package flatten is a selective full-page response cache for net/http hosts.
//
// A Flattener sits between the host router and the handler that renders a
// page. For every request it opens a Cycle: it decides from the configured
// only/ignore patterns whether the page is cacheable, derives a stable cache
// key from the request path and locale, and then either serves the stored
// page or lets the handler render it and captures the result.
//
// # Key derivation
//
// Keys are built from the request path (without surrounding slashes, "/" for
// the root page). With localization enabled, paths that do not already start
// with the locale get "<locale>/" prepended. Every "/" becomes "_" and a
// non-empty folder is joined in front with the platform path separator:
//
//	DeriveKey("blog/post-1", "en", "pages", true) // "pages/en_blog_post-1"
//
// # Rules
//
// The only and ignore pattern sets are regular expression fragments joined
// with "|" and matched anywhere in the path. A page is cached when any of
// these holds:
//
//  1. only is non-empty and matches the path
//  2. ignore is non-empty and does not match the path
//  3. ignore is empty and only is non-empty
//
// The conditions are OR'ed, so a page matching both sets is cached. Under
// the default RuleModeUnion, condition 3 means only=["^blog/"] on its own
// also caches "shop/item". With RuleModeAllowList condition 3 is dropped and
// an only set without an ignore set caches just the pages it matches. When
// both sets are empty nothing is cached in either mode.
//
// # Lifecycle
//
// The early hook looks the key up and, on a hit, writes the stored page with
// Content-Type "text/html; charset=utf-8" without calling the next handler.
// On a miss the late hook buffers the rendered body, stores it without expiry
// and then sends the same bytes to the client. Store failures never break a
// response: a failed read is a miss and a failed write is only logged.
//
// Middleware composes both hooks. Early and Late are exported separately so a
// host can mount them at different points; Handler mounts them according to
// Config.HookPoint.
//
// # Invalidation
//
// Flusher removes every entry of the folder, or the entries whose key
// contains a pattern. Invalidator resolves a named route or action to its URL
// through a URLResolver and flushes the locale-agnostic pattern of that URL.
package flatten
