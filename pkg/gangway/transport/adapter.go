// Package transport adapts a host-specific single-call message primitive
// into a structured invoke(request) -> response function, and provides an
// in-process channel pair for embedding and testing.
//
// The physical channel is opaque: anything satisfying ChannelFunc works,
// whether a webview bridge, a pipe to another process, or the in-process
// Pipe in this package. Channel failures surface as *errors.TransportError or
// *errors.TimeoutError, never as a malformed response. Retries are the
// caller's decision.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gwerr "github.com/randalmurphal/gangway/pkg/gangway/errors"
	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

// ChannelFunc is the host's single-call primitive: one opaque payload in,
// one opaque payload out. Implementations may be called concurrently.
type ChannelFunc func(ctx context.Context, payload []byte) ([]byte, error)

// DefaultInvokeTimeout bounds a round trip when no explicit timeout is
// configured. Every invoke carries some bound; an unbounded wait would
// stall the whole reactive chain on the frontend.
const DefaultInvokeTimeout = 5 * time.Second

// Adapter turns a ChannelFunc into a structured request/response call.
type Adapter struct {
	channel ChannelFunc
	timeout time.Duration
	logger  *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithInvokeTimeout sets the per-invoke round-trip bound.
func WithInvokeTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter creates an Adapter over the given channel primitive.
func NewAdapter(channel ChannelFunc, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		channel: channel,
		timeout: DefaultInvokeTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Invoke sends one request across the channel and waits for its response.
//
// The call is bounded by the configured timeout even if the underlying
// primitive ignores context cancellation. On expiry the caller receives a
// *errors.TimeoutError; on any other channel failure, a
// *errors.TransportError.
func (a *Adapter) Invoke(ctx context.Context, req wire.Request) (wire.Response, error) {
	payload, err := wire.EncodeRequest(req)
	if err != nil {
		return wire.Response{}, &gwerr.TransportError{Op: "encode", Err: err}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		data, callErr := a.channel(callCtx, payload)
		done <- outcome{data: data, err: callErr}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return wire.Response{}, &gwerr.TimeoutError{
				Op:      req.Method + " " + req.Path,
				Timeout: a.timeout,
			}
		}
		return wire.Response{}, &gwerr.TransportError{Op: "invoke", Err: callCtx.Err()}
	}

	if out.err != nil {
		if errors.Is(out.err, context.DeadlineExceeded) {
			return wire.Response{}, &gwerr.TimeoutError{
				Op:      req.Method + " " + req.Path,
				Timeout: a.timeout,
			}
		}
		return wire.Response{}, &gwerr.TransportError{Op: "invoke", Err: out.err}
	}

	resp, err := wire.DecodeResponse(out.data)
	if err != nil {
		// A garbled envelope is a channel failure from the caller's view.
		return wire.Response{}, &gwerr.TransportError{Op: "decode", Err: err}
	}

	if a.logger != nil {
		a.logger.Debug("invoke completed",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.Int("status", resp.Status),
		)
	}
	return resp, nil
}
