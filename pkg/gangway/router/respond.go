package router

import (
	"errors"

	gwerr "github.com/randalmurphal/gangway/pkg/gangway/errors"
	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

// errorBody is the JSON shape of every error response the router sends.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Fields  []gwerr.FieldError `json:"fields,omitempty"`
}

// JSON builds a JSON response, falling back to a 500 if the value cannot
// be marshaled.
func JSON(status int, v any) wire.Response {
	resp, err := wire.JSON(status, v)
	if err != nil {
		return ErrorResponse(wire.StatusInternalServerError, "internal", "internal error")
	}
	return resp
}

// NoContent builds an empty response.
func NoContent(status int) wire.Response {
	return wire.NoContent(status)
}

// ErrorResponse builds the standard error body.
func ErrorResponse(status int, code, message string) wire.Response {
	return JSON(status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// responseFor maps a handler/dispatch error onto its wire response.
// Unknown errors are reduced to a generic, detail-free body: internal
// detail never crosses the process boundary.
func responseFor(err error) wire.Response {
	status := gwerr.StatusFor(err)

	var validationErr *gwerr.ValidationError
	if errors.As(err, &validationErr) {
		return JSON(status, errorBody{Error: errorDetail{
			Code:    "validation_failed",
			Message: "invalid input",
			Fields:  validationErr.Fields,
		}})
	}

	var routingErr *gwerr.RoutingError
	if errors.As(err, &routingErr) {
		return ErrorResponse(status, "not_found", routingErr.Error())
	}

	var handlerErr *gwerr.HandlerError
	if errors.As(err, &handlerErr) {
		return ErrorResponse(status, handlerErr.Code, handlerErr.Message)
	}

	var timeoutErr *gwerr.TimeoutError
	if errors.As(err, &timeoutErr) {
		return ErrorResponse(status, "timeout", timeoutErr.Error())
	}

	var transportErr *gwerr.TransportError
	if errors.As(err, &transportErr) {
		return ErrorResponse(status, "transport", "upstream channel failure")
	}

	return ErrorResponse(status, "internal", "internal error")
}
