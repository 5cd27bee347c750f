// Package wire defines the request/response shapes that cross the process
// boundary between the backend and the sandboxed frontend, and the JSON
// envelope used to carry them over the low-level message channel.
//
// Headers are kept as ordered (key, value) pairs rather than a map: opaque
// header objects do not survive the channel, and callers on both sides rely
// on the original ordering being preserved.
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Common request methods. The router matches on these the way an HTTP
// server would, but nothing here depends on net/http.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

// Status codes used across the bridge. Only the subset the bridge itself
// produces is named; handlers may use any integer status.
const (
	StatusOK                  = 200
	StatusCreated             = 201
	StatusNoContent           = 204
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusUnprocessableEntity = 422
	StatusInternalServerError = 500
	StatusBadGateway          = 502
	StatusGatewayTimeout      = 504
)

// Header is a single ordered header pair.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Request describes one operation crossing the channel.
type Request struct {
	// Path is the operation path, e.g. "/users/usr_1". It may carry a
	// query string ("/users?limit=10"); the router splits it off.
	Path string `json:"path"`

	// Method is the operation method (GET, POST, ...).
	Method string `json:"method"`

	// Headers are ordered pairs. Duplicate keys are allowed.
	Headers []Header `json:"headers,omitempty"`

	// Body is the raw request body, if any.
	Body []byte `json:"body,omitempty"`
}

// Response describes the result of one operation.
type Response struct {
	// Status is an HTTP-like status code.
	Status int `json:"status"`

	// Headers are ordered pairs.
	Headers []Header `json:"headers,omitempty"`

	// Body is the raw response body, if any.
	Body []byte `json:"body,omitempty"`
}

// NewRequest creates a request with the given method and path.
func NewRequest(method, path string) Request {
	return Request{Method: method, Path: path}
}

// WithHeader appends a header pair, preserving insertion order.
func (r Request) WithHeader(key, value string) Request {
	r.Headers = append(r.Headers, Header{Key: key, Value: value})
	return r
}

// WithJSONBody marshals v into the request body and sets the content type.
func (r Request) WithJSONBody(v any) (Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return r, fmt.Errorf("marshal request body: %w", err)
	}
	r.Body = body
	return r.WithHeader("content-type", "application/json"), nil
}

// Header returns the first value for key (case-insensitive) and whether
// the key was present.
func (r Request) Header(key string) (string, bool) {
	return headerValue(r.Headers, key)
}

// Header returns the first value for key (case-insensitive) and whether
// the key was present.
func (r Response) Header(key string) (string, bool) {
	return headerValue(r.Headers, key)
}

// OK reports whether the status code is in the 2xx range.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// DecodeJSON unmarshals the response body into v.
func (r Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func headerValue(headers []Header, key string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

// JSON builds a response with the given status and a JSON body.
// Marshal failures are reported as an error rather than silently producing
// an empty body.
func JSON(status int, v any) (Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("marshal response body: %w", err)
	}
	return Response{
		Status:  status,
		Headers: []Header{{Key: "content-type", Value: "application/json"}},
		Body:    body,
	}, nil
}

// NoContent builds an empty response with the given status.
func NoContent(status int) Response {
	return Response{Status: status}
}

// Text builds a plain-text response.
func Text(status int, body string) Response {
	return Response{
		Status:  status,
		Headers: []Header{{Key: "content-type", Value: "text/plain"}},
		Body:    []byte(body),
	}
}
