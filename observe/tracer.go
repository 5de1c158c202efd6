package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Subject describes the checked unit a span, metric or log entry refers to.
type Subject struct {
	ID      string // Dependency id (required)
	Type    string // Dependency type, e.g. "mysql" (optional)
	Urgency string // Urgency name (optional)
	Pool    string // Service pool (optional)
}

// SpanName returns the deterministic span name: health.check.<id>.
func (s Subject) SpanName() string {
	return "health.check." + s.ID
}

func (s Subject) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("dependency.id", s.ID),
	}
	if s.Type != "" {
		attrs = append(attrs, attribute.String("dependency.type", s.Type))
	}
	if s.Urgency != "" {
		attrs = append(attrs, attribute.String("dependency.urgency", s.Urgency))
	}
	if s.Pool != "" {
		attrs = append(attrs, attribute.String("dependency.pool", s.Pool))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with per-check span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for one dependency evaluation.
	StartSpan(ctx context.Context, subject Subject) (context.Context, trace.Span)

	// EndSpan ends the span, recording the reported status and any error.
	EndSpan(span trace.Span, status string, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, subject Subject) (context.Context, trace.Span) {
	attrs := append(subject.attributes(), attribute.Bool("check.error", false))
	return t.tracer.Start(ctx, subject.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, status string, err error) {
	if status != "" {
		span.SetAttributes(attribute.String("check.status", status))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("check.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a Tracer that records nothing.
func NopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, subject Subject) (context.Context, trace.Span) {
	return t.noop.Start(ctx, subject.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, status string, err error) {
	span.End()
}
