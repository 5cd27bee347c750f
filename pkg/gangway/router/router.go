// Package router matches requests crossing the channel to registered
// handlers and contains every failure mode inside the dispatch boundary.
//
// Routes are organized hierarchically: sub-routers mount at a path prefix,
// and the most specific route wins. A static segment beats a ":param"
// capture at the same position. Matching is synchronous; handlers run on
// the dispatching goroutine, and concurrent dispatches are fully
// independent, with no ordering guarantee between requests targeting
// different resources.
//
// Nothing escapes Dispatch: validation and routing failures resolve to
// 400/404 responses before the handler runs, and a panicking handler is
// logged with full context on the backend while the frontend only ever
// sees a generic 500. Letting an exception propagate past the router
// would crash the hosting process.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	gwerr "github.com/randalmurphal/gangway/pkg/gangway/errors"
	"github.com/randalmurphal/gangway/pkg/gangway/observability"
	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

// HandlerFunc answers one matched request.
type HandlerFunc func(c *Ctx) (wire.Response, error)

// segment is one compiled pattern element: a literal, or a ":name" capture.
type segment struct {
	literal string
	param   string
}

// route is one registered method + pattern + handler.
type route struct {
	method   string
	pattern  string
	segments []segment
	handler  HandlerFunc
	caps     *Capabilities
}

// Router dispatches requests to registered handlers.
type Router struct {
	caps     *Capabilities
	routes   []route
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	validate *validator.Validate
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder for dispatched requests.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(r *Router) {
		r.metrics = metrics
	}
}

// WithSpans sets the span manager for request traces.
func WithSpans(spans observability.SpanManager) Option {
	return func(r *Router) {
		r.spans = spans
	}
}

// New creates a router with the given frozen capability set. Pass nil when
// handlers resolve no capabilities (e.g. a sub-router mounted into a root
// that carries them).
func New(caps *Capabilities, opts ...Option) *Router {
	r := &Router{
		caps:     caps,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle registers a handler for method + pattern. Patterns use "/"
// separated segments with ":name" captures, e.g. "/users/:id".
func (r *Router) Handle(method, pattern string, h HandlerFunc) {
	r.routes = append(r.routes, route{
		method:   method,
		pattern:  pattern,
		segments: compilePattern(pattern),
		handler:  h,
		caps:     r.caps,
	})
}

// Get registers a GET handler.
func (r *Router) Get(pattern string, h HandlerFunc) {
	r.Handle(wire.MethodGet, pattern, h)
}

// Post registers a POST handler.
func (r *Router) Post(pattern string, h HandlerFunc) {
	r.Handle(wire.MethodPost, pattern, h)
}

// Put registers a PUT handler.
func (r *Router) Put(pattern string, h HandlerFunc) {
	r.Handle(wire.MethodPut, pattern, h)
}

// Delete registers a DELETE handler.
func (r *Router) Delete(pattern string, h HandlerFunc) {
	r.Handle(wire.MethodDelete, pattern, h)
}

// Mount grafts all of sub's routes under prefix. A sub-router built with
// its own capabilities keeps them; one built with nil inherits the
// mounting router's.
func (r *Router) Mount(prefix string, sub *Router) {
	prefix = strings.TrimSuffix(prefix, "/")
	for _, rt := range sub.routes {
		mounted := rt
		mounted.pattern = prefix + rt.pattern
		mounted.segments = compilePattern(mounted.pattern)
		if mounted.caps == nil {
			mounted.caps = r.caps
		}
		r.routes = append(r.routes, mounted)
	}
}

// Dispatch routes one request and always produces a response. It never
// panics and never returns an error: every failure mode maps onto a
// status code.
func (r *Router) Dispatch(ctx context.Context, req wire.Request) wire.Response {
	requestID := "req-" + uuid.New().String()[:8]
	path, rawQuery := splitTarget(req.Path)

	logger := observability.RequestLogger(r.logger, requestID, req.Method, path)
	observability.LogRequestStart(logger)
	done := observability.TimedOperation()

	ctx, span := r.spans.StartRequestSpan(ctx, req.Method, path)

	rt, params := r.match(req.Method, path)

	var resp wire.Response
	switch {
	case rt == nil:
		resp = responseFor(&gwerr.RoutingError{Method: req.Method, Path: path})
	default:
		query, err := url.ParseQuery(rawQuery)
		if err != nil {
			resp = responseFor(&gwerr.ValidationError{Fields: []gwerr.FieldError{
				{Field: "query", Message: "malformed query string"},
			}})
			break
		}
		c := &Ctx{
			ctx:      ctx,
			req:      req,
			params:   params,
			query:    query,
			caps:     rt.caps,
			logger:   logger,
			validate: r.validate,
		}
		resp = r.invoke(rt, c, logger)
	}

	durationMs := done()
	pattern := ""
	var spanErr error
	if rt != nil {
		pattern = rt.pattern
	}
	if resp.Status >= 500 {
		spanErr = fmt.Errorf("request failed with status %d", resp.Status)
	}
	r.spans.EndSpanWithError(span, spanErr)
	r.metrics.RecordRequest(ctx, req.Method, pattern, resp.Status, time.Duration(durationMs)*time.Millisecond)
	observability.LogRequestDone(logger, resp.Status, durationMs)
	return resp
}

// invoke runs the handler with panic containment.
func (r *Router) invoke(rt *route, c *Ctx, logger *slog.Logger) (resp wire.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			observability.LogRequestPanic(logger, rec, string(debug.Stack()))
			resp = responseFor(&gwerr.UnknownError{Err: fmt.Errorf("panic in %s: %v", rt.pattern, rec)})
		}
	}()

	result, err := rt.handler(c)
	if err != nil {
		if logger != nil && gwerr.Categorize(err) == gwerr.CategoryUnknown {
			logger.Error("handler failed", slog.String("error", err.Error()))
		}
		return responseFor(err)
	}
	return result
}

// match finds the most specific route for method + path: among routes
// whose pattern matches, the one with the most literal segments wins.
func (r *Router) match(method, path string) (*route, map[string]string) {
	reqSegments := splitPath(path)

	var best *route
	var bestParams map[string]string
	bestLiterals := -1

	for i := range r.routes {
		rt := &r.routes[i]
		if rt.method != method {
			continue
		}
		params, literals, ok := matchSegments(rt.segments, reqSegments)
		if !ok {
			continue
		}
		if literals > bestLiterals {
			best = rt
			bestParams = params
			bestLiterals = literals
		}
	}
	return best, bestParams
}

// compilePattern splits a pattern into matchable segments.
func compilePattern(pattern string) []segment {
	parts := splitPath(pattern)
	segments := make([]segment, len(parts))
	for i, part := range parts {
		if strings.HasPrefix(part, ":") {
			segments[i] = segment{param: part[1:]}
		} else {
			segments[i] = segment{literal: part}
		}
	}
	return segments
}

// matchSegments matches request segments against a compiled pattern,
// returning captured params and the number of literal matches.
func matchSegments(pattern []segment, reqSegments []string) (map[string]string, int, bool) {
	if len(pattern) != len(reqSegments) {
		return nil, 0, false
	}
	var params map[string]string
	literals := 0
	for i, seg := range pattern {
		if seg.param != "" {
			if params == nil {
				params = make(map[string]string)
			}
			params[seg.param] = reqSegments[i]
			continue
		}
		if seg.literal != reqSegments[i] {
			return nil, 0, false
		}
		literals++
	}
	return params, literals, true
}

// splitTarget separates the path from an optional query string.
func splitTarget(target string) (path, rawQuery string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// splitPath splits a path into its non-empty segments. "/" yields an
// empty slice, so "/" matches a pattern of "/".
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
