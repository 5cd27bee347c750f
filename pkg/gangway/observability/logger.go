// Package observability provides structured logging, metrics, and tracing
// for the bridge.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// RequestLogger adds per-request context to a logger.
// Returns a new logger with request_id, method, and path fields.
func RequestLogger(logger *slog.Logger, requestID, method, path string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("request_id", requestID),
		slog.String("method", method),
		slog.String("path", path),
	)
}

// LogRequestStart logs the start of request dispatch.
func LogRequestStart(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("request dispatching")
}

// LogRequestDone logs the completed dispatch of a request.
func LogRequestDone(logger *slog.Logger, status int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("request completed",
		slog.Int("status", status),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRequestPanic logs a recovered handler panic with full detail.
// Only a generic message crosses the boundary; this is the backend record.
func LogRequestPanic(logger *slog.Logger, recovered any, stack string) {
	if logger == nil {
		return
	}
	logger.Error("handler panicked",
		slog.Any("panic", recovered),
		slog.String("stack", stack),
	)
}

// LogCommand logs the outcome of a command execution.
func LogCommand(logger *slog.Logger, name, resource string, ok bool, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("command executed",
		slog.String("command", name),
		slog.String("resource", resource),
		slog.Bool("ok", ok),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogInvalidation logs a bus tick for a resource.
func LogInvalidation(logger *slog.Logger, resource string, seq uint64) {
	if logger == nil {
		return
	}
	logger.Debug("resource invalidated",
		slog.String("resource", resource),
		slog.Uint64("seq", seq),
	)
}

// LogRefetch logs a cache refetch triggered by invalidation.
func LogRefetch(logger *slog.Logger, resource string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("refetch failed, keeping last value",
			slog.String("resource", resource),
			slog.String("error", err.Error()),
			slog.Float64("duration_ms", durationMs),
		)
		return
	}
	logger.Debug("refetch completed",
		slog.String("resource", resource),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSubscriberPanic logs a panicking event callback. Delivery to the
// remaining callbacks continues.
func LogSubscriberPanic(logger *slog.Logger, event string, recovered any) {
	if logger == nil {
		return
	}
	logger.Error("event callback panicked",
		slog.String("event", event),
		slog.Any("panic", recovered),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
