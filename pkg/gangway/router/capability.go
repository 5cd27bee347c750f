package router

import "fmt"

// Capabilities is the frozen dependency-injection lookup handed to
// handlers. It is assembled once at router construction and never mutated
// afterward: handlers resolve services from it instead of any ambient or
// global lookup, so independent routers (e.g. under test) never share
// state.
type Capabilities struct {
	entries map[string]any
}

// NewCapabilities builds a frozen capability set from entries. The map is
// copied; later changes to the argument do not leak in.
func NewCapabilities(entries map[string]any) *Capabilities {
	copied := make(map[string]any, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Capabilities{entries: copied}
}

// Has reports whether a capability is registered under name.
func (c *Capabilities) Has(name string) bool {
	_, ok := c.entries[name]
	return ok
}

// Names returns the registered capability names.
func (c *Capabilities) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	return names
}

// Capability resolves the capability registered under name as a T.
func Capability[T any](c *Capabilities, name string) (T, error) {
	var zero T
	if c == nil {
		return zero, fmt.Errorf("no capabilities attached")
	}
	v, ok := c.entries[name]
	if !ok {
		return zero, fmt.Errorf("capability %q not registered", name)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("capability %q has type %T, not %T", name, v, zero)
	}
	return typed, nil
}

// MustCapability resolves a capability, panicking if it is missing or has
// the wrong type. The router contains the panic as an internal error, so a
// miswired handler answers 500 instead of crashing the hosting process.
func MustCapability[T any](c *Capabilities, name string) T {
	v, err := Capability[T](c, name)
	if err != nil {
		panic(err)
	}
	return v
}
