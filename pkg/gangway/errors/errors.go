// Package errors defines the error taxonomy shared by both sides of the
// bridge and maps each kind onto a response status.
//
// The taxonomy separates failures by where they originate and who may act
// on them:
//   - TransportError: the channel itself is unavailable or crashed
//   - RoutingError: no route matches the request
//   - ValidationError: malformed input, rejected before the handler runs
//   - HandlerError: a service-level failure returned as a value
//   - TimeoutError: a round trip exceeded its bound
//   - UnknownError: an uncaught handler failure, reduced to a generic
//     message before it crosses the boundary
package errors

import (
	"fmt"
	"strings"
	"time"
)

// TransportError indicates the underlying channel failed. It never wraps a
// malformed response: transport failures and decode failures of the
// envelope both land here so callers see one kind of "the channel broke".
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport failure during %s", e.Op)
}

// Unwrap returns the underlying channel error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates a round trip exceeded its configured bound.
// It is distinct from TransportError so callers can retry on timeout only.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Timeout, e.Op)
}

// RoutingError indicates no registered route matched the request.
type RoutingError struct {
	Method string
	Path   string
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("no route for %s %s", e.Method, e.Path)
}

// FieldError is a single field-level validation diagnostic.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError indicates the request carried malformed input. The router
// resolves it before the handler runs; handlers never observe invalid input.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HandlerError is a service-level failure returned as a Result value.
// It never crosses the service boundary as a panic; handlers translate it
// into a response status.
type HandlerError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UnknownError wraps an uncaught failure inside a handler. The full detail
// is logged on the backend; only a generic message crosses the boundary.
type UnknownError struct {
	Err error
}

// Error implements the error interface.
func (e *UnknownError) Error() string {
	return fmt.Sprintf("internal error: %v", e.Err)
}

// Unwrap returns the underlying failure.
func (e *UnknownError) Unwrap() error {
	return e.Err
}
