package gangway

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/randalmurphal/gangway/pkg/gangway/router"
	"github.com/randalmurphal/gangway/pkg/gangway/service"
	"github.com/randalmurphal/gangway/pkg/gangway/transport"
)

// EventSink is the backend's side of the host push-event primitive.
// *transport.LocalEvents satisfies it; so does a webview's emit function.
type EventSink interface {
	Emit(name string, payload []byte)
}

// InvalidationEvent returns the push-event name carrying invalidation
// ticks for a resource. Both sides of the channel derive the name the
// same way, so it is the only coupling between them.
func InvalidationEvent(resource string) string {
	return "invalidated:" + resource
}

// Bridge is the backend half of the connection: a router serving the
// request channel, an invalidation bus, and the event emitter that carries
// bus ticks to the frontend as push events.
type Bridge struct {
	router *router.Router
	bus    *service.Bus
	events EventSink
	pipe   *transport.Pipe
	logger *slog.Logger

	mu    sync.Mutex
	stops map[string]func()
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeLogger sets the bridge logger.
func WithBridgeLogger(logger *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// NewBridge assembles the backend half over the given router, bus, and
// event sink.
func NewBridge(r *router.Router, bus *service.Bus, events EventSink, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		router: r,
		bus:    bus,
		events: events,
		stops:  make(map[string]func()),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.pipe = transport.NewPipe(r.Dispatch)
	return b
}

// Channel returns the client end of the bridge's request channel. Hand it
// to NewClient, or to an Adapter directly.
func (b *Bridge) Channel() transport.ChannelFunc {
	return b.pipe.Channel()
}

// Bus returns the invalidation bus. Commands built with the service layer
// tick it on every successful mutation.
func (b *Bridge) Bus() *service.Bus {
	return b.bus
}

// Announce starts forwarding the resource's bus ticks to the frontend as
// push events named InvalidationEvent(resource). Announcing a resource
// twice is harmless. Each tick's token is the event payload, so
// subscribers that want the change snapshot can decode it.
func (b *Bridge) Announce(resource string) {
	b.mu.Lock()
	if _, ok := b.stops[resource]; ok {
		b.mu.Unlock()
		return
	}
	ticks, stopWatch := b.bus.Watch(resource)
	done := make(chan struct{})
	b.stops[resource] = func() {
		stopWatch()
		close(done)
	}
	b.mu.Unlock()

	go func() {
		event := InvalidationEvent(resource)
		for {
			select {
			case token := <-ticks:
				payload, err := json.Marshal(token)
				if err != nil {
					payload = nil
				}
				b.events.Emit(event, payload)
			case <-done:
				return
			}
		}
	}()
}

// Close stops all announcement pumps and closes the request channel.
// In-flight dispatches finish; new calls through the channel fail.
func (b *Bridge) Close() {
	b.mu.Lock()
	stops := make([]func(), 0, len(b.stops))
	for _, stop := range b.stops {
		stops = append(stops, stop)
	}
	b.stops = make(map[string]func())
	b.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	b.pipe.Close()
}
