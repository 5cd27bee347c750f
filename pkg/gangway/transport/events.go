package transport

import "sync"

// LocalEvents is an in-process push-event primitive: named channels with
// fan-out delivery to all current registrants. It stands in for the host's
// event emitter when both sides share a process, and in tests.
//
// The frontend multiplexer only requires Register; Emit is the backend's
// side of the contract.
type LocalEvents struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[string]map[uint64]func(payload []byte)
}

// NewLocalEvents creates an empty event primitive.
func NewLocalEvents() *LocalEvents {
	return &LocalEvents{
		listeners: make(map[string]map[uint64]func(payload []byte)),
	}
}

// Register attaches fn to the named event and returns its unregister
// function. Unregistering twice is harmless.
func (e *LocalEvents) Register(name string, fn func(payload []byte)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	if e.listeners[name] == nil {
		e.listeners[name] = make(map[uint64]func(payload []byte))
	}
	e.listeners[name][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if fns, ok := e.listeners[name]; ok {
			delete(fns, id)
			if len(fns) == 0 {
				delete(e.listeners, name)
			}
		}
	}
}

// Emit delivers payload to every registrant of the named event.
func (e *LocalEvents) Emit(name string, payload []byte) {
	e.mu.Lock()
	fns := make([]func(payload []byte), 0, len(e.listeners[name]))
	for _, fn := range e.listeners[name] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

// ListenerCount returns the number of registrants for the named event.
func (e *LocalEvents) ListenerCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[name])
}
