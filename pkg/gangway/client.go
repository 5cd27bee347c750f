package gangway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gwerr "github.com/randalmurphal/gangway/pkg/gangway/errors"
	"github.com/randalmurphal/gangway/pkg/gangway/multiplex"
	"github.com/randalmurphal/gangway/pkg/gangway/transport"
	"github.com/randalmurphal/gangway/pkg/gangway/wire"
)

// Client is the frontend half of the connection: a channel adapter for
// request/response calls and a multiplexer for push events.
type Client struct {
	adapter *transport.Adapter
	mux     *multiplex.Multiplexer
}

// clientConfig collects options before the adapter and multiplexer are
// built.
type clientConfig struct {
	logger  *slog.Logger
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithClientLogger sets the logger shared by the adapter and multiplexer.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithClientTimeout sets the per-invoke round-trip bound.
func WithClientTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// NewClient assembles the frontend half over the host's channel and
// push-event primitives.
func NewClient(channel transport.ChannelFunc, source multiplex.EventSource, opts ...ClientOption) *Client {
	var cfg clientConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	adapterOpts := []transport.AdapterOption{transport.WithLogger(cfg.logger)}
	if cfg.timeout > 0 {
		adapterOpts = append(adapterOpts, transport.WithInvokeTimeout(cfg.timeout))
	}

	return &Client{
		adapter: transport.NewAdapter(channel, adapterOpts...),
		mux:     multiplex.New(source, multiplex.WithLogger(cfg.logger)),
	}
}

// Invoke sends one raw request across the channel.
func (c *Client) Invoke(ctx context.Context, req wire.Request) (wire.Response, error) {
	return c.adapter.Invoke(ctx, req)
}

// Events returns the push-event multiplexer. Subscribe through it rather
// than the host primitive directly, so each event name holds at most one
// underlying listener.
func (c *Client) Events() *multiplex.Multiplexer {
	return c.mux
}

// GetJSON performs a GET and decodes the JSON response into out. A nil
// out discards the body. Non-2xx responses come back as the typed error
// the backend encoded.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.roundTrip(ctx, wire.NewRequest(wire.MethodGet, path), out)
}

// PostJSON performs a POST with a JSON body and decodes the response into
// out. A nil out discards the body.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	req, err := wire.NewRequest(wire.MethodPost, path).WithJSONBody(in)
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, req, out)
}

// PutJSON performs a PUT with a JSON body and decodes the response into
// out. A nil out discards the body.
func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	req, err := wire.NewRequest(wire.MethodPut, path).WithJSONBody(in)
	if err != nil {
		return err
	}
	return c.roundTrip(ctx, req, out)
}

// Delete performs a DELETE, discarding any response body.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.roundTrip(ctx, wire.NewRequest(wire.MethodDelete, path), nil)
}

// ResponseError reconstructs the typed error a non-2xx response encodes.
// Calling it on a 2xx response returns nil.
func (c *Client) ResponseError(resp wire.Response) error {
	return responseError(wire.Request{}, resp)
}

func (c *Client) roundTrip(ctx context.Context, req wire.Request, out any) error {
	resp, err := c.adapter.Invoke(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return responseError(req, resp)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.DecodeJSON(out)
}

// errorBody mirrors the router's error response shape.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Fields  []gwerr.FieldError `json:"fields,omitempty"`
}

// responseError maps an error response back onto the typed error taxonomy,
// so callers on the frontend handle failures the same way handlers raised
// them.
func responseError(req wire.Request, resp wire.Response) error {
	if resp.OK() {
		return nil
	}

	var body errorBody
	if err := resp.DecodeJSON(&body); err != nil {
		return &gwerr.UnknownError{Err: errors.New("undecodable error response")}
	}

	switch body.Error.Code {
	case "validation_failed":
		return &gwerr.ValidationError{Fields: body.Error.Fields}
	case "not_found":
		return &gwerr.RoutingError{Method: req.Method, Path: req.Path}
	case "timeout":
		return &gwerr.TimeoutError{Op: body.Error.Message}
	case "transport":
		return &gwerr.TransportError{Op: "channel", Err: errors.New(body.Error.Message)}
	case "internal":
		return &gwerr.UnknownError{Err: errors.New(body.Error.Message)}
	default:
		return &gwerr.HandlerError{
			Code:    body.Error.Code,
			Message: body.Error.Message,
			Status:  resp.Status,
		}
	}
}
