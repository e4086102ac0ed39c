package observe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/flatten/observe/exporters"
)

// Config selects the telemetry pipelines. A disabled section yields a no-op
// primitive and its other fields are ignored.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig
}

// TracingConfig selects the span exporter and the share of cache cycles
// that are sampled.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // none, stdout or otlp
	SamplePct float64 // 0 to 1
}

type MetricsConfig struct {
	Enabled  bool
	Exporter string // none, stdout, otlp or prometheus
}

type LoggingConfig struct {
	Enabled bool
	Level   string // debug, info, warn or error
}

var logLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate reports every problem at once; each joined error wraps
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if strings.TrimSpace(c.ServiceName) == "" {
		bad("service name is required")
	}
	if t := c.Tracing; t.Enabled {
		if !exporters.HasSpanExporter(t.Exporter) {
			bad("tracing exporter %q (want one of %s)", t.Exporter, strings.Join(exporters.Names(true), ", "))
		}
		if t.SamplePct < 0 || t.SamplePct > 1 {
			bad("tracing sample_pct %g is outside [0, 1]", t.SamplePct)
		}
	}
	if m := c.Metrics; m.Enabled && !exporters.HasMetricReader(m.Exporter) {
		bad("metrics exporter %q (want one of %s)", m.Exporter, strings.Join(exporters.Names(false), ", "))
	}
	if l := c.Logging; l.Enabled && !logLevels[strings.ToLower(l.Level)] {
		bad("log level %q", l.Level)
	}
	return errors.Join(errs...)
}

// Observer hands out the telemetry primitives shared by the flattener, the
// store and the admin API. It is safe for concurrent use.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger

	// Shutdown flushes pending spans and metrics. It honours ctx and returns
	// every provider's error joined.
	Shutdown(ctx context.Context) error
}

type telemetry struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	stops []func(context.Context) error
}

// NewObserver builds the pipelines enabled in cfg and installs them as the
// global otel providers.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tel := &telemetry{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  metricnoop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NopLogger(),
	}
	if cfg.Logging.Enabled {
		tel.logger = NewLogger(cfg.Logging.Level)
	}
	if !cfg.Tracing.Enabled && !cfg.Metrics.Enabled {
		return tel, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.SpanExporter(ctx, cfg.Tracing.Exporter)
		if err != nil {
			return nil, fmt.Errorf("observe: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.Tracing.SamplePct))),
			sdktrace.WithBatcher(exp),
		)
		otel.SetTracerProvider(tp)
		tel.tracer = tp.Tracer(cfg.ServiceName)
		tel.stops = append(tel.stops, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.MetricReader(ctx, cfg.Metrics.Exporter)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, fmt.Errorf("observe: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		otel.SetMeterProvider(mp)
		tel.meter = mp.Meter(cfg.ServiceName)
		tel.stops = append(tel.stops, mp.Shutdown)
	}
	return tel, nil
}

func sampler(pct float64) sdktrace.Sampler {
	if pct >= 1 {
		return sdktrace.AlwaysSample()
	}
	if pct <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(pct)
}

func (t *telemetry) Tracer() trace.Tracer { return t.tracer }
func (t *telemetry) Meter() metric.Meter  { return t.meter }
func (t *telemetry) Logger() Logger       { return t.logger }

// Shutdown stops providers in reverse start order. Calling it again is a
// no-op.
func (t *telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.stops) - 1; i >= 0; i-- {
		if err := t.stops[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.stops = nil
	if len(errs) > 0 {
		return fmt.Errorf("observe: shutdown: %w", errors.Join(errs...))
	}
	return nil
}
