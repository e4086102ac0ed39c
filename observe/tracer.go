package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SpanName is the name of the span covering one cache cycle.
const SpanName = "page.cache.cycle"

// PageMeta describes the page handled by one cache cycle.
type PageMeta struct {
	CycleID string // per-request cycle identifier
	Path    string // request path
	Locale  string // resolved locale
	Key     string // cache key (empty until derived)
	Route   string // matched route name, when known
}

func (m PageMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("page.path", m.Path),
	}
	if m.CycleID != "" {
		attrs = append(attrs, attribute.String("cycle.id", m.CycleID))
	}
	if m.Locale != "" {
		attrs = append(attrs, attribute.String("page.locale", m.Locale))
	}
	if m.Key != "" {
		attrs = append(attrs, attribute.String("page.key", m.Key))
	}
	if m.Route != "" {
		attrs = append(attrs, attribute.String("page.route", m.Route))
	}
	return attrs
}

// Tracer manages the span of a cache cycle.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndCycle is best-effort and must not panic.
type Tracer interface {
	// StartCycle starts the span for a cache cycle.
	StartCycle(ctx context.Context, meta PageMeta) (context.Context, trace.Span)

	// EndCycle records the outcome and key, then ends the span.
	EndCycle(span trace.Span, outcome, key string, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartCycle(ctx context.Context, meta PageMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanName,
		trace.WithAttributes(meta.attributes()...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndCycle(span trace.Span, outcome, key string, err error) {
	span.SetAttributes(attribute.String("page.outcome", outcome))
	if key != "" {
		span.SetAttributes(attribute.String("page.key", key))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	tracer trace.Tracer
}

// NopTracer returns a tracer producing non-recording spans.
func NopTracer() Tracer {
	return &noopTracer{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartCycle(ctx context.Context, _ PageMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanName)
}

func (t *noopTracer) EndCycle(span trace.Span, _, _ string, _ error) {
	span.End()
}
