package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/gangway/pkg/gangway/observability"
)

// Command is a single-shot write operation on one resource.
//
// Execute never panics across the boundary: the mutation's outcome is
// always a Result. On success the command advances the bus token for its
// resource, optionally publishing a typed snapshot of the new value; on
// failure the bus is untouched, so no query refetches.
type Command[A, T any] struct {
	name     string
	resource string
	op       Op
	bus      *Bus
	run      func(ctx context.Context, args A) (T, error)

	snapshot bool
	logger   *slog.Logger
	spans    observability.SpanManager
}

// CommandOption configures a Command.
type CommandOption[A, T any] func(*Command[A, T])

// WithSnapshot publishes the marshaled success value with each tick, for
// fine-grained reconciliation on the frontend. Values that fail to marshal
// tick without a snapshot.
func WithSnapshot[A, T any]() CommandOption[A, T] {
	return func(c *Command[A, T]) {
		c.snapshot = true
	}
}

// WithCommandLogger sets the command logger.
func WithCommandLogger[A, T any](logger *slog.Logger) CommandOption[A, T] {
	return func(c *Command[A, T]) {
		c.logger = logger
	}
}

// WithCommandSpans sets the span manager for command traces.
func WithCommandSpans[A, T any](spans observability.SpanManager) CommandOption[A, T] {
	return func(c *Command[A, T]) {
		c.spans = spans
	}
}

// NewCommand creates a command named name that mutates resource with the
// given operation kind. The bus must be the one the resource's queries
// watch.
func NewCommand[A, T any](
	name, resource string,
	op Op,
	bus *Bus,
	run func(ctx context.Context, args A) (T, error),
	opts ...CommandOption[A, T],
) *Command[A, T] {
	c := &Command[A, T]{
		name:     name,
		resource: resource,
		op:       op,
		bus:      bus,
		run:      run,
		spans:    observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the command name.
func (c *Command[A, T]) Name() string { return c.name }

// Resource returns the resource the command invalidates.
func (c *Command[A, T]) Resource() string { return c.resource }

// Execute runs the mutation. A successful run advances the invalidation
// bus after the mutation has fully completed, so a query issued strictly
// afterward observes the new state.
func (c *Command[A, T]) Execute(ctx context.Context, args A) (result Result[T]) {
	done := observability.TimedOperation()
	ctx, span := c.spans.StartCommandSpan(ctx, c.name, c.resource)

	defer func() {
		if r := recover(); r != nil {
			result = Fail[T]("internal", fmt.Sprintf("command %s panicked: %v", c.name, r))
		}
		var spanErr error
		if !result.OK() {
			spanErr = result.Failure().Err()
		}
		c.spans.EndSpanWithError(span, spanErr)
		observability.LogCommand(c.logger, c.name, c.resource, result.OK(), done())
	}()

	value, err := c.run(ctx, args)
	if err != nil {
		return FailErr[T](err)
	}

	c.bus.Advance(c.resource, c.change(value))
	return Ok(value)
}

// change builds the tick snapshot for a success value.
func (c *Command[A, T]) change(value T) *Change {
	if !c.snapshot {
		return &Change{Op: c.op}
	}
	data, err := json.Marshal(value)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("snapshot marshal failed, ticking without value",
				slog.String("command", c.name),
				slog.String("error", err.Error()),
			)
		}
		return &Change{Op: c.op}
	}
	return &Change{Op: c.op, Value: data}
}
