package transport

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

// ErrPipeClosed is returned by the pipe's channel after Close.
// The Adapter surfaces it to callers wrapped in a TransportError.
var ErrPipeClosed = errors.New("transport: pipe closed")

// DispatchFunc answers one decoded request. The backend router's Dispatch
// method satisfies this signature.
type DispatchFunc func(ctx context.Context, req wire.Request) wire.Response

// Pipe is an in-process channel pair: the server end is a DispatchFunc,
// the client end a ChannelFunc. It stands in for the host primitive when
// both sides share a process, and in tests.
type Pipe struct {
	dispatch DispatchFunc
	closed   atomic.Bool
}

// NewPipe creates a pipe served by dispatch.
func NewPipe(dispatch DispatchFunc) *Pipe {
	return &Pipe{dispatch: dispatch}
}

// Channel returns the client end of the pipe.
//
// Dispatch runs on a separate goroutine so a stalled handler cannot outlive
// the caller's context: cancellation returns immediately with ctx.Err().
func (p *Pipe) Channel() ChannelFunc {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		if p.closed.Load() {
			return nil, ErrPipeClosed
		}

		req, err := wire.DecodeRequest(payload)
		if err != nil {
			return nil, err
		}

		done := make(chan []byte, 1)
		errCh := make(chan error, 1)
		go func() {
			resp := p.dispatch(ctx, req)
			data, encErr := wire.EncodeResponse(resp)
			if encErr != nil {
				errCh <- encErr
				return
			}
			done <- data
		}()

		select {
		case data := <-done:
			return data, nil
		case encErr := <-errCh:
			return nil, encErr
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close marks the pipe closed. Subsequent calls through the channel fail
// with ErrPipeClosed.
func (p *Pipe) Close() {
	p.closed.Store(true)
}
