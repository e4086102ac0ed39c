package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name string, attr attribute.KeyValue) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		return 0
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if attr.Key == "" {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attr.Key); ok && v == attr.Value {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_RecordCycleByOutcome(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	meta := PageMeta{Path: "/en/a", Locale: "en"}

	m.RecordCycle(ctx, meta, "hit", time.Millisecond)
	m.RecordCycle(ctx, meta, "hit", time.Millisecond)
	m.RecordCycle(ctx, meta, "miss", 3*time.Millisecond)

	rm := collect(t, reader)
	if got := sumFor(t, rm, MetricCycles, attribute.String("page.outcome", "hit")); got != 2 {
		t.Errorf("hit cycles = %d, want 2", got)
	}
	if got := sumFor(t, rm, MetricCycles, attribute.String("page.outcome", "miss")); got != 1 {
		t.Errorf("miss cycles = %d, want 1", got)
	}

	hist := findMetric(rm, MetricDuration)
	if hist == nil {
		t.Fatal("duration histogram not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	var count uint64
	for _, dp := range data.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("duration samples = %d, want 3", count)
	}
}

func TestMetrics_RecordStore(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	meta := PageMeta{Locale: "en"}

	m.RecordStore(ctx, meta, 1024, nil)
	m.RecordStore(ctx, meta, 0, errors.New("disk full"))

	rm := collect(t, reader)
	if got := sumFor(t, rm, MetricStores, attribute.KeyValue{}); got != 1 {
		t.Errorf("stores = %d, want 1", got)
	}
	if got := sumFor(t, rm, MetricStoreErrors, attribute.KeyValue{}); got != 1 {
		t.Errorf("store errors = %d, want 1", got)
	}
}

func TestMetrics_RecordFlush(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFlush(ctx, "blog", 4, nil)
	m.RecordFlush(ctx, "", 0, nil)
	m.RecordFlush(ctx, "", 0, errors.New("permission denied"))

	rm := collect(t, reader)
	if got := sumFor(t, rm, MetricFlushed, attribute.String("flush.scope", "pattern")); got != 4 {
		t.Errorf("flushed = %d, want 4", got)
	}
	if got := sumFor(t, rm, MetricFlushErrors, attribute.String("flush.scope", "all")); got != 1 {
		t.Errorf("flush errors = %d, want 1", got)
	}
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	m.RecordCycle(context.Background(), PageMeta{}, "bypass", 0)
	m.RecordStore(context.Background(), PageMeta{}, 0, nil)
	m.RecordFlush(context.Background(), "", 0, nil)
}
