/*
Package gangway bridges a privileged backend and a sandboxed frontend over
a single asynchronous message channel.

# Overview

gangway is a Go library for host environments where UI code runs in a
sandbox with no direct access to backend services, and the only link
between the two sides is one opaque invoke(payload) -> payload channel
plus a named push-event primitive. It layers a structured request/response
protocol, a validating router with dependency injection, a per-resource
invalidation bus, a client-side event multiplexer, and a hybrid push/pull
cache on top of those two primitives.

The library has two halves:

  - Bridge: the backend side. Owns a router, an invalidation bus, and the
    event emitter. Handlers registered on the router answer requests;
    commands executed through the service layer tick the bus, and the
    bridge forwards each tick as a push event.
  - Client: the frontend side. Owns the channel adapter and the event
    multiplexer. Resources built on the client cache one value each,
    kept warm by invalidation events and refreshed after a quiet window.

# Backend

Build a router, register handlers, and serve it through a bridge:

	caps := router.NewCapabilities(map[string]any{
	    "users": userService,
	})

	r := router.New(caps)
	r.Get("/users/:id", func(c *router.Ctx) (wire.Response, error) {
	    users := router.MustCapability[*UserService](c.Capabilities(), "users")
	    u, err := users.Find(c.Context(), c.Param("id"))
	    if err != nil {
	        return wire.Response{}, err
	    }
	    return router.JSON(wire.StatusOK, u), nil
	})

	bus := service.NewBus()
	events := transport.NewLocalEvents()
	bridge := gangway.NewBridge(r, bus, events)
	defer bridge.Close()

	bridge.Announce("users")

A handler panic never crosses the channel: the router logs it with a
stack trace and answers a generic 500.

# Frontend

Build a client over the channel and read through a resource:

	client := gangway.NewClient(bridge.Channel(), events)

	users := gangway.NewResource[[]User](client, "/users", "users")
	defer users.Close()

	list, err := users.Get(ctx) // cold read pulls, warm reads are sync

When a command on the backend ticks the "users" resource, the resource
invalidates, waits out the quiet window (300ms by default), and refetches
once, no matter how many ticks arrived in the burst.

# Optimistic Writes

Mutate shows a tentative value immediately and rolls it back if the
command fails:

	err := users.Mutate(ctx, optimisticList, func(ctx context.Context) error {
	    resp, err := client.Invoke(ctx, createReq)
	    if err != nil {
	        return err
	    }
	    if !resp.OK() {
	        return client.ResponseError(resp)
	    }
	    return nil
	})

On success the confirmed value arriving via invalidation supersedes the
tentative one; stale confirmations never overwrite a newer optimistic
write.

# Error Handling

Every failure is a typed error in pkg/gangway/errors:

	_, err := users.Get(ctx)
	var timeoutErr *errors.TimeoutError
	if errors.As(err, &timeoutErr) {
	    // channel round trip exceeded its bound; retryable
	}

Timeouts are the only retryable category. Validation failures carry
per-field diagnostics; unknown failures are reduced to a generic message
before crossing the boundary.

# Thread Safety

  - Router registration is NOT safe for concurrent use; Dispatch IS.
  - Bus, Multiplexer, and Atom are safe for concurrent use.
  - Capabilities is immutable after construction.

# Subpackages

  - wire: request/response shapes and the channel envelope
  - transport: channel adapter, in-process pipe, local event primitive
  - router: matching, validation, capability injection, containment
  - service: query/command contract and the invalidation bus
  - multiplex: shared underlying listeners for push events
  - cache: the hybrid push/pull cache atom
  - store: embedded record storage (memory, SQLite)
  - config: settings and file loading
  - errors: typed error taxonomy
  - observability: logging, metrics, and tracing helpers
*/
package gangway
