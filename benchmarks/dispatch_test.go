package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/randalmurphal/gangway/pkg/gangway/router"
	"github.com/randalmurphal/gangway/pkg/gangway/transport"
	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

func benchRouter(routes int) *router.Router {
	r := router.New(nil)
	for i := 0; i < routes; i++ {
		prefix := fmt.Sprintf("/resource%d", i)
		r.Get(prefix, func(c *router.Ctx) (wire.Response, error) {
			return wire.NoContent(wire.StatusNoContent), nil
		})
		r.Get(prefix+"/:id", func(c *router.Ctx) (wire.Response, error) {
			return wire.Text(wire.StatusOK, c.Param("id")), nil
		})
	}
	return r
}

// BenchmarkDispatch_Static measures dispatch to a static route.
func BenchmarkDispatch_Static(b *testing.B) {
	r := benchRouter(20)
	ctx := context.Background()
	req := wire.NewRequest(wire.MethodGet, "/resource10")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Dispatch(ctx, req)
	}
}

// BenchmarkDispatch_Param measures dispatch with a path parameter capture.
func BenchmarkDispatch_Param(b *testing.B) {
	r := benchRouter(20)
	ctx := context.Background()
	req := wire.NewRequest(wire.MethodGet, "/resource10/usr_42")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Dispatch(ctx, req)
	}
}

// BenchmarkDispatch_NotFound measures the unmatched-request path.
func BenchmarkDispatch_NotFound(b *testing.B) {
	r := benchRouter(20)
	ctx := context.Background()
	req := wire.NewRequest(wire.MethodGet, "/nothing/here")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Dispatch(ctx, req)
	}
}

// BenchmarkRoundTrip measures a full invoke through the in-process pipe,
// including both envelope codecs.
func BenchmarkRoundTrip(b *testing.B) {
	r := benchRouter(5)
	pipe := transport.NewPipe(r.Dispatch)
	adapter := transport.NewAdapter(pipe.Channel())
	ctx := context.Background()
	req := wire.NewRequest(wire.MethodGet, "/resource1/usr_1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = adapter.Invoke(ctx, req)
	}
}

// BenchmarkEncodeRequest measures envelope encoding alone.
func BenchmarkEncodeRequest(b *testing.B) {
	req := wire.NewRequest(wire.MethodPost, "/users").
		WithHeader("content-type", "application/json")
	req.Body = []byte(`{"name":"Ann","email":"ann@example.com"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = wire.EncodeRequest(req)
	}
}
