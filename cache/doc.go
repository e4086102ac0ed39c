// Package cache provides the page stores behind the full-page cache.
//
// A Store keeps rendered pages forever, keyed by the derived page key, and
// supports namespace-scoped bulk and substring deletion for flushing. Memory,
// file and Redis implementations are provided, plus a ResilientStore that
// guards any store with a circuit breaker and timeouts. A TieredStore keeps
// hot pages in process memory in front of a file or Redis store.
package cache
