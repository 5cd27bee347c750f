package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the bridge tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("gangway")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRequestSpan starts a span for one dispatched request.
	StartRequestSpan(ctx context.Context, method, path string) (context.Context, trace.Span)

	// StartCommandSpan starts a span for one command execution.
	StartCommandSpan(ctx context.Context, name, resource string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartRequestSpan starts a span for one dispatched request.
func (m *otelSpanManager) StartRequestSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "gangway.request",
		trace.WithAttributes(
			attribute.String("request.method", method),
			attribute.String("request.path", path),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartCommandSpan starts a span for one command execution.
func (m *otelSpanManager) StartCommandSpan(ctx context.Context, name, resource string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "gangway.command."+name,
		trace.WithAttributes(
			attribute.String("command.name", name),
			attribute.String("command.resource", resource),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
