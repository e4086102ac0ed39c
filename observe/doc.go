// Package observe provides the observability primitives of the page cache.
//
// It wires OpenTelemetry tracing and metrics plus a zerolog-backed structured
// logger. Every cache cycle (one request) gets a span, a cycle counter sample
// tagged with its outcome (hit, miss, bypass) and page-scoped log fields.
// Consumers construct an Observer once and hand its Tracer, Metrics and Logger
// to the flattener and the admin API.
package observe
