// Package multiplex gives many logical subscribers exactly one underlying
// listener per named push-event channel.
//
// The host's push-event primitive is an external collaborator: anything
// with Register(name, fn) -> unregister satisfies EventSource. The first
// logical subscriber for a name registers the underlying listener; later
// subscribers share it; the last unsubscribe releases it. At any moment the
// underlying listener count per name is 0 or 1, and it is 1 exactly when at
// least one logical subscriber is attached.
package multiplex

import (
	"context"
	"log/slog"
	"sync"

	"github.com/randalmurphal/gangway/pkg/gangway/observability"
)

// EventSource is the host push-event primitive.
type EventSource interface {
	// Register attaches fn to the named event and returns a function that
	// detaches it. Delivery fans out to all current registrants.
	Register(name string, fn func(payload []byte)) (unregister func())
}

// Callback receives one event payload.
type Callback func(payload []byte)

// Multiplexer shares one underlying listener per event name across any
// number of logical subscribers.
type Multiplexer struct {
	source  EventSource
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	mu      sync.Mutex
	entries map[string]*entry
	nextID  uint64
}

// entry tracks the shared listener and ordered subscribers for one name.
type entry struct {
	unregister func()
	order      []uint64
	callbacks  map[uint64]Callback
}

// Option configures a Multiplexer.
type Option func(*Multiplexer)

// WithLogger sets the logger used to report isolated callback panics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Multiplexer) {
		m.logger = logger
	}
}

// WithMetrics sets the metrics recorder for event deliveries.
func WithMetrics(metrics observability.MetricsRecorder) Option {
	return func(m *Multiplexer) {
		m.metrics = metrics
	}
}

// New creates a Multiplexer over the given event source.
func New(source EventSource, opts ...Option) *Multiplexer {
	m := &Multiplexer{
		source:  source,
		metrics: observability.NoopMetrics{},
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe attaches cb to the named event and returns its unsubscribe
// function. The returned function is idempotent: invoking it more than once
// has no additional effect and never panics.
//
// Callbacks run in subscription order. A panicking callback is isolated and
// logged; delivery to the remaining callbacks continues.
func (m *Multiplexer) Subscribe(name string, cb Callback) (unsubscribe func()) {
	m.mu.Lock()

	for {
		e, ok := m.entries[name]
		if !ok {
			e = &entry{callbacks: make(map[uint64]Callback)}
			m.entries[name] = e
			// Release the lock before touching the source: Register may call
			// back into the multiplexer synchronously on some hosts.
			m.mu.Unlock()
			unregister := m.source.Register(name, func(payload []byte) {
				m.dispatch(name, payload)
			})
			m.mu.Lock()
			if m.entries[name] != e {
				// Every subscriber that joined this entry left while the
				// listener registration was in flight, so remove already
				// discarded the entry. Release the fresh listener and start
				// over against whatever the map holds now.
				m.mu.Unlock()
				unregister()
				m.mu.Lock()
				continue
			}
			e.unregister = unregister
		}

		m.nextID++
		id := m.nextID
		e.order = append(e.order, id)
		e.callbacks[id] = cb
		m.mu.Unlock()

		var once sync.Once
		return func() {
			once.Do(func() {
				m.remove(name, id)
			})
		}
	}
}

// Subscribers returns the number of logical subscribers for the named event.
func (m *Multiplexer) Subscribers(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[name]; ok {
		return len(e.callbacks)
	}
	return 0
}

// Listening reports whether an underlying listener is registered for the
// named event.
func (m *Multiplexer) Listening(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[name]
	return ok
}

// dispatch fans one payload out to the current subscribers in order.
func (m *Multiplexer) dispatch(name string, payload []byte) {
	m.mu.Lock()
	e, ok := m.entries[name]
	if !ok {
		m.mu.Unlock()
		return
	}
	cbs := make([]Callback, 0, len(e.order))
	for _, id := range e.order {
		if cb, ok := e.callbacks[id]; ok {
			cbs = append(cbs, cb)
		}
	}
	m.mu.Unlock()

	for _, cb := range cbs {
		m.invoke(name, cb, payload)
	}
	m.metrics.RecordEventDelivery(context.Background(), name, len(cbs))
}

// invoke runs one callback, containing any panic so the remaining
// callbacks still receive the event.
func (m *Multiplexer) invoke(name string, cb Callback, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.LogSubscriberPanic(m.logger, name, r)
		}
	}()
	cb(payload)
}

// remove detaches one subscriber, releasing the underlying listener when it
// was the last one.
func (m *Multiplexer) remove(name string, id uint64) {
	m.mu.Lock()
	e, ok := m.entries[name]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(e.callbacks, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}

	var unregister func()
	if len(e.callbacks) == 0 {
		unregister = e.unregister
		delete(m.entries, name)
	}
	m.mu.Unlock()

	if unregister != nil {
		unregister()
	}
}
