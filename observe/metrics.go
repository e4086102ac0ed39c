package observe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricCycles      = "page.cache.cycles"
	MetricDuration    = "page.cache.duration_ms"
	MetricStores      = "page.cache.stores"
	MetricStoreErrors = "page.cache.store_errors"
	MetricStoredBytes = "page.cache.stored_bytes"
	MetricFlushed     = "page.cache.flushed"
	MetricFlushErrors = "page.cache.flush_errors"
)

// Metrics records page cache measurements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: recording is best-effort and must not panic.
type Metrics interface {
	// RecordCycle counts one finished cache cycle with its outcome.
	RecordCycle(ctx context.Context, meta PageMeta, outcome string, d time.Duration)

	// RecordStore counts a write of size bytes, or a failed write.
	RecordStore(ctx context.Context, meta PageMeta, size int, err error)

	// RecordFlush counts the entries removed by a flush.
	RecordFlush(ctx context.Context, pattern string, removed int, err error)
}

type metricsImpl struct {
	cycles      metric.Int64Counter
	duration    metric.Float64Histogram
	stores      metric.Int64Counter
	storeErrors metric.Int64Counter
	storedBytes metric.Int64Histogram
	flushed     metric.Int64Counter
	flushErrors metric.Int64Counter
}

// NewMetrics creates the page cache instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.cycles, err = meter.Int64Counter(MetricCycles,
		metric.WithDescription("Cache cycles by outcome"),
		metric.WithUnit("{cycle}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricCycles, err)
	}

	if m.duration, err = meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Cache cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricDuration, err)
	}

	if m.stores, err = meter.Int64Counter(MetricStores,
		metric.WithDescription("Pages written to the cache"),
		metric.WithUnit("{page}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricStores, err)
	}

	if m.storeErrors, err = meter.Int64Counter(MetricStoreErrors,
		metric.WithDescription("Failed cache writes"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricStoreErrors, err)
	}

	if m.storedBytes, err = meter.Int64Histogram(MetricStoredBytes,
		metric.WithDescription("Size of stored pages"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricStoredBytes, err)
	}

	if m.flushed, err = meter.Int64Counter(MetricFlushed,
		metric.WithDescription("Cache entries removed by flushes"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricFlushed, err)
	}

	if m.flushErrors, err = meter.Int64Counter(MetricFlushErrors,
		metric.WithDescription("Failed flushes"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("create %s: %w", MetricFlushErrors, err)
	}

	return m, nil
}

func (m *metricsImpl) RecordCycle(ctx context.Context, meta PageMeta, outcome string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("page.outcome", outcome),
		attribute.String("page.locale", meta.Locale),
	)
	m.cycles.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(d)/float64(time.Millisecond), attrs)
}

func (m *metricsImpl) RecordStore(ctx context.Context, meta PageMeta, size int, err error) {
	attrs := metric.WithAttributes(attribute.String("page.locale", meta.Locale))
	if err != nil {
		m.storeErrors.Add(ctx, 1, attrs)
		return
	}
	m.stores.Add(ctx, 1, attrs)
	m.storedBytes.Record(ctx, int64(size), attrs)
}

func (m *metricsImpl) RecordFlush(ctx context.Context, pattern string, removed int, err error) {
	scope := "pattern"
	if pattern == "" {
		scope = "all"
	}
	attrs := metric.WithAttributes(attribute.String("flush.scope", scope))
	if err != nil {
		m.flushErrors.Add(ctx, 1, attrs)
	}
	if removed > 0 {
		m.flushed.Add(ctx, int64(removed), attrs)
	}
}

type nopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return nopMetrics{} }

func (nopMetrics) RecordCycle(context.Context, PageMeta, string, time.Duration) {}
func (nopMetrics) RecordStore(context.Context, PageMeta, int, error)            {}
func (nopMetrics) RecordFlush(context.Context, string, int, error)              {}
