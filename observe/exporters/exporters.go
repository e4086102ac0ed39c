// Package exporters maps the exporter names accepted in configuration to
// OpenTelemetry span exporters and metric readers.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknown is returned for a name with no registered exporter.
	ErrUnknown = errors.New("exporters: unknown exporter")

	// ErrNoEndpoint is returned for otlp when no collector endpoint is set.
	ErrNoEndpoint = errors.New("exporters: OTLP endpoint not configured")
)

type (
	spanFunc   func(context.Context) (sdktrace.SpanExporter, error)
	readerFunc func(context.Context) (sdkmetric.Reader, error)
)

func discardSpans(context.Context) (sdktrace.SpanExporter, error) {
	return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
}

func manualReader(context.Context) (sdkmetric.Reader, error) {
	return sdkmetric.NewManualReader(), nil
}

var spanExporters = map[string]spanFunc{
	"":     discardSpans,
	"none": discardSpans,
	"stdout": func(context.Context) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint())
	},
	"otlp": func(ctx context.Context) (sdktrace.SpanExporter, error) {
		if err := requireEndpoint("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	},
}

// The prometheus reader registers with the default registerer, which the
// admin server's /metrics handler serves.
var metricReaders = map[string]readerFunc{
	"":     manualReader,
	"none": manualReader,
	"prometheus": func(context.Context) (sdkmetric.Reader, error) {
		return prometheus.New()
	},
	"stdout": func(context.Context) (sdkmetric.Reader, error) {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
	"otlp": func(ctx context.Context) (sdkmetric.Reader, error) {
		if err := requireEndpoint("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
}

// SpanExporter builds the span exporter registered under name.
func SpanExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	build, ok := spanExporters[name]
	if !ok {
		return nil, fmt.Errorf("%w: tracing %q", ErrUnknown, name)
	}
	exp, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter %q: %w", name, err)
	}
	return exp, nil
}

// MetricReader builds the metric reader registered under name.
func MetricReader(ctx context.Context, name string) (sdkmetric.Reader, error) {
	build, ok := metricReaders[name]
	if !ok {
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknown, name)
	}
	r, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics exporter %q: %w", name, err)
	}
	return r, nil
}

// HasSpanExporter reports whether name is a known tracing exporter.
func HasSpanExporter(name string) bool { _, ok := spanExporters[name]; return ok }

// HasMetricReader reports whether name is a known metrics exporter.
func HasMetricReader(name string) bool { _, ok := metricReaders[name]; return ok }

// Names lists the non-empty names of a registry, sorted, for error messages.
func Names(tracing bool) []string {
	var names []string
	if tracing {
		for n := range spanExporters {
			names = append(names, n)
		}
	} else {
		for n := range metricReaders {
			names = append(names, n)
		}
	}
	names = slices.DeleteFunc(names, func(n string) bool { return n == "" })
	slices.Sort(names)
	return names
}

func requireEndpoint(signalVar string) error {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" || os.Getenv(signalVar) != "" {
		return nil
	}
	return fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or %s", ErrNoEndpoint, signalVar)
}
