package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records bridge metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordRequest records one dispatched request with its status and
	// duration. Pattern is the matched route pattern, or "" for unmatched
	// requests.
	RecordRequest(ctx context.Context, method, pattern string, status int, duration time.Duration)

	// RecordInvalidation records one bus tick for a resource.
	RecordInvalidation(ctx context.Context, resource string)

	// RecordRefetch records one cache refetch with its duration and error
	// status.
	RecordRefetch(ctx context.Context, resource string, duration time.Duration, err error)

	// RecordEventDelivery records fan-out of one push event to n callbacks.
	RecordEventDelivery(ctx context.Context, event string, callbacks int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	requests        metric.Int64Counter
	requestLatency  metric.Float64Histogram
	requestErrors   metric.Int64Counter
	invalidations   metric.Int64Counter
	refetches       metric.Int64Counter
	refetchLatency  metric.Float64Histogram
	eventDeliveries metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("gangway")

	requests, err := meter.Int64Counter("gangway.request.count",
		metric.WithDescription("Number of dispatched requests"),
	)
	if err != nil {
		return nil, err
	}

	requestLatency, err := meter.Float64Histogram("gangway.request.latency_ms",
		metric.WithDescription("Request dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	requestErrors, err := meter.Int64Counter("gangway.request.errors",
		metric.WithDescription("Number of requests answered with status >= 500"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter("gangway.bus.invalidations",
		metric.WithDescription("Number of invalidation bus ticks"),
	)
	if err != nil {
		return nil, err
	}

	refetches, err := meter.Int64Counter("gangway.cache.refetches",
		metric.WithDescription("Number of cache refetches"),
	)
	if err != nil {
		return nil, err
	}

	refetchLatency, err := meter.Float64Histogram("gangway.cache.refetch_latency_ms",
		metric.WithDescription("Cache refetch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	eventDeliveries, err := meter.Int64Counter("gangway.events.deliveries",
		metric.WithDescription("Number of push events fanned out to callbacks"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		requests:        requests,
		requestLatency:  requestLatency,
		requestErrors:   requestErrors,
		invalidations:   invalidations,
		refetches:       refetches,
		refetchLatency:  refetchLatency,
		eventDeliveries: eventDeliveries,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordRequest records one dispatched request.
func (m *otelMetrics) RecordRequest(ctx context.Context, method, pattern string, status int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("pattern", pattern),
		attribute.Int("status", status),
	}

	m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if status >= 500 {
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordInvalidation records one bus tick.
func (m *otelMetrics) RecordInvalidation(ctx context.Context, resource string) {
	m.invalidations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
	))
}

// RecordRefetch records one cache refetch.
func (m *otelMetrics) RecordRefetch(ctx context.Context, resource string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("resource", resource),
		attribute.Bool("success", err == nil),
	}
	m.refetches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.refetchLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordEventDelivery records fan-out of one push event.
func (m *otelMetrics) RecordEventDelivery(ctx context.Context, event string, callbacks int) {
	m.eventDeliveries.Add(ctx, int64(callbacks), metric.WithAttributes(
		attribute.String("event", event),
	))
}
