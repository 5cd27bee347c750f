package errors

import (
	"context"
	"errors"

	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

// Category classifies an error for handling decisions.
type Category int

const (
	// CategoryTransport covers channel failures.
	CategoryTransport Category = iota

	// CategoryTimeout covers exceeded round-trip bounds. This is the only
	// category the bridge considers retryable.
	CategoryTimeout

	// CategoryRouting covers unmatched requests.
	CategoryRouting

	// CategoryValidation covers malformed input.
	CategoryValidation

	// CategoryHandler covers explicit service-level failures.
	CategoryHandler

	// CategoryUnknown covers everything else.
	CategoryUnknown
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransport:
		return "transport"
	case CategoryTimeout:
		return "timeout"
	case CategoryRouting:
		return "routing"
	case CategoryValidation:
		return "validation"
	case CategoryHandler:
		return "handler"
	default:
		return "unknown"
	}
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return CategoryTransport
	}

	var routingErr *RoutingError
	if errors.As(err, &routingErr) {
		return CategoryRouting
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return CategoryValidation
	}

	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) {
		return CategoryHandler
	}

	return CategoryUnknown
}

// IsRetryable reports whether a caller should retry the operation.
// Only timeouts qualify: a transport failure means the channel is gone and
// everything else is deterministic.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTimeout
}

// StatusFor maps an error onto the response status the router sends for it.
func StatusFor(err error) int {
	switch Categorize(err) {
	case CategoryValidation:
		return wire.StatusBadRequest
	case CategoryRouting:
		return wire.StatusNotFound
	case CategoryHandler:
		var handlerErr *HandlerError
		if errors.As(err, &handlerErr) && handlerErr.Status != 0 {
			return handlerErr.Status
		}
		return wire.StatusUnprocessableEntity
	case CategoryTimeout:
		return wire.StatusGatewayTimeout
	case CategoryTransport:
		return wire.StatusBadGateway
	default:
		return wire.StatusInternalServerError
	}
}
