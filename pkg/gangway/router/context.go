package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	gwerr "github.com/randalmurphal/gangway/pkg/gangway/errors"
	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

// Ctx is the per-request context handed to handlers. It exposes validated
// path, query, and body data, the frozen capability lookup, and the
// request itself.
type Ctx struct {
	ctx      context.Context
	req      wire.Request
	params   map[string]string
	query    url.Values
	caps     *Capabilities
	logger   *slog.Logger
	validate *validator.Validate
}

// Context returns the dispatch context. It carries cancellation from the
// calling side of the channel.
func (c *Ctx) Context() context.Context {
	return c.ctx
}

// Request returns the raw request.
func (c *Ctx) Request() wire.Request {
	return c.req
}

// Param returns a captured path parameter, or "" if absent.
func (c *Ctx) Param(name string) string {
	return c.params[name]
}

// Query returns the first value of a query parameter, or "" if absent.
func (c *Ctx) Query(name string) string {
	return c.query.Get(name)
}

// Capabilities returns the frozen dependency lookup.
func (c *Ctx) Capabilities() *Capabilities {
	return c.caps
}

// Logger returns the request-scoped logger.
func (c *Ctx) Logger() *slog.Logger {
	return c.logger
}

// Bind decodes the JSON request body into v and validates it with the
// struct's validate tags. Failures come back as *errors.ValidationError
// with per-field diagnostics; the router turns that into a 400 response.
func (c *Ctx) Bind(v any) error {
	if len(c.req.Body) == 0 {
		return &gwerr.ValidationError{Fields: []gwerr.FieldError{
			{Field: "body", Message: "is required"},
		}}
	}
	if err := json.Unmarshal(c.req.Body, v); err != nil {
		return &gwerr.ValidationError{Fields: []gwerr.FieldError{
			{Field: "body", Message: "invalid JSON: " + err.Error()},
		}}
	}
	if err := c.validate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return fieldDiagnostics(verrs)
		}
		return &gwerr.ValidationError{Fields: []gwerr.FieldError{
			{Field: "body", Message: err.Error()},
		}}
	}
	return nil
}

// TypedHandler wraps a handler taking a validated input struct. Decoding
// and validation run before the wrapped handler: it never observes invalid
// input, and validation failures short-circuit to a 400 response.
func TypedHandler[A any](h func(c *Ctx, in A) (wire.Response, error)) HandlerFunc {
	return func(c *Ctx) (wire.Response, error) {
		var in A
		if err := c.Bind(&in); err != nil {
			return wire.Response{}, err
		}
		return h(c, in)
	}
}

// fieldDiagnostics converts validator errors into the wire-facing
// per-field form.
func fieldDiagnostics(verrs validator.ValidationErrors) *gwerr.ValidationError {
	fields := make([]gwerr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, gwerr.FieldError{
			Field:   toSnakeCase(fe.Field()),
			Message: validationMessage(fe),
		})
	}
	return &gwerr.ValidationError{Fields: fields}
}

// validationMessage renders one rule failure as a human-readable message.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed validation rule: " + fe.Tag()
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
