package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns a reader to
// collect from.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
}

func TestRecordRequest(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records count and latency", func(t *testing.T) {
		m.RecordRequest(ctx, "GET", "/users/:id", 200, 15*time.Millisecond)

		rm := collectMetrics(t, reader)
		count := findMetric(rm, "gangway.request.count")
		require.NotNil(t, count)

		sum, ok := count.Data.(metricdata.Sum[int64])
		require.True(t, ok, "Expected Sum type")
		require.NotEmpty(t, sum.DataPoints)

		found := false
		for _, dp := range sum.DataPoints {
			for _, attr := range dp.Attributes.ToSlice() {
				if attr.Key == "pattern" && attr.Value.AsString() == "/users/:id" {
					found = true
					assert.GreaterOrEqual(t, dp.Value, int64(1))
				}
			}
		}
		assert.True(t, found, "Expected datapoint for pattern=/users/:id")

		latency := findMetric(rm, "gangway.request.latency_ms")
		require.NotNil(t, latency)
		hist, ok := latency.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})

	t.Run("records errors for status >= 500", func(t *testing.T) {
		m.RecordRequest(ctx, "GET", "/boom", 500, 5*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "gangway.request.errors")
		require.NotNil(t, metric)

		sum, ok := metric.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.NotEmpty(t, sum.DataPoints)
	})

	t.Run("no error datapoint for 4xx", func(t *testing.T) {
		m.RecordRequest(ctx, "GET", "/missing", 404, 2*time.Millisecond)

		rm := collectMetrics(t, reader)
		metric := findMetric(rm, "gangway.request.errors")
		if metric != nil {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if ok {
				for _, dp := range sum.DataPoints {
					for _, attr := range dp.Attributes.ToSlice() {
						if attr.Key == "pattern" && attr.Value.AsString() == "/missing" {
							t.Errorf("404 must not count as an error, got %d", dp.Value)
						}
					}
				}
			}
		}
	})
}

func TestRecordInvalidation(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordInvalidation(context.Background(), "users")

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "gangway.bus.invalidations")
	require.NotNil(t, metric)

	sum, ok := metric.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.NotEmpty(t, sum.DataPoints)
}

func TestRecordRefetch(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRefetch(ctx, "users", 30*time.Millisecond, nil)
	m.RecordRefetch(ctx, "users", 10*time.Millisecond, errors.New("storage offline"))

	rm := collectMetrics(t, reader)
	assert.NotNil(t, findMetric(rm, "gangway.cache.refetches"))
	assert.NotNil(t, findMetric(rm, "gangway.cache.refetch_latency_ms"))
}

func TestOtelMetrics_AllMethods(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()
	m.RecordRequest(ctx, "POST", "/users", 201, 20*time.Millisecond)
	m.RecordInvalidation(ctx, "users")
	m.RecordRefetch(ctx, "users", 10*time.Millisecond, nil)
	m.RecordEventDelivery(ctx, "invalidated:users", 3)

	rm := collectMetrics(t, reader)
	assert.NotNil(t, findMetric(rm, "gangway.request.count"))
	assert.NotNil(t, findMetric(rm, "gangway.request.latency_ms"))
	assert.NotNil(t, findMetric(rm, "gangway.bus.invalidations"))
	assert.NotNil(t, findMetric(rm, "gangway.cache.refetches"))
	assert.NotNil(t, findMetric(rm, "gangway.events.deliveries"))
}

func TestNoopMetrics(t *testing.T) {
	// No provider configured, no panic.
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()
	m.RecordRequest(ctx, "GET", "/x", 200, time.Millisecond)
	m.RecordInvalidation(ctx, "users")
	m.RecordRefetch(ctx, "users", time.Millisecond, nil)
	m.RecordEventDelivery(ctx, "e", 0)
}
