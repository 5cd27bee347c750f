package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	gwerr "github.com/randalmurphal/gangway/pkg/gangway/errors"
)

// DefaultFetchTimeout bounds each fetch feeding a query when no explicit
// timeout is configured.
const DefaultFetchTimeout = 5 * time.Second

// Query is a reactive read of one resource: a lazy, restartable, infinite
// sequence of values. Subscribing emits current state immediately, then
// re-emits after each invalidation of the resource.
type Query[T any] struct {
	name     string
	resource string
	bus      *Bus
	fetch    func(ctx context.Context) (T, error)

	timeout time.Duration
	logger  *slog.Logger
}

// QueryOption configures a Query.
type QueryOption[T any] func(*Query[T])

// WithFetchTimeout bounds each fetch. On expiry the caller receives a
// *errors.TimeoutError instead of hanging.
func WithFetchTimeout[T any](d time.Duration) QueryOption[T] {
	return func(q *Query[T]) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithQueryLogger sets the query logger.
func WithQueryLogger[T any](logger *slog.Logger) QueryOption[T] {
	return func(q *Query[T]) {
		q.logger = logger
	}
}

// NewQuery creates a query named name over resource. The bus must be the
// one the resource's commands advance.
func NewQuery[T any](
	name, resource string,
	bus *Bus,
	fetch func(ctx context.Context) (T, error),
	opts ...QueryOption[T],
) *Query[T] {
	q := &Query[T]{
		name:     name,
		resource: resource,
		bus:      bus,
		fetch:    fetch,
		timeout:  DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Name returns the query name.
func (q *Query[T]) Name() string { return q.name }

// Resource returns the resource the query watches.
func (q *Query[T]) Resource() string { return q.resource }

// Get performs one bounded fetch of current state.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	value, err := q.fetch(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			var zero T
			return zero, &gwerr.TimeoutError{Op: "query " + q.name, Timeout: q.timeout}
		}
		return value, err
	}
	return value, nil
}

// Subscribe emits current state immediately, then refetches after each bus
// tick for the query's resource. Consecutive ticks that produce no
// observable change are coalesced: the channel only carries values that
// differ from the last one emitted.
//
// A failed refetch is logged and skipped, leaving the last emitted value in
// place. The stop function detaches from the bus and ends the sequence;
// calling it more than once is harmless.
func (q *Query[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	out := make(chan T, 1)
	ticks, stopWatch := q.bus.Watch(q.resource)

	subCtx, cancel := context.WithCancel(ctx)
	stop := func() {
		stopWatch()
		cancel()
	}

	go func() {
		defer close(out)

		var lastEmitted []byte
		emit := func() {
			value, err := q.Get(subCtx)
			if err != nil {
				if q.logger != nil && !errors.Is(err, context.Canceled) {
					q.logger.Warn("query fetch failed, keeping last value",
						slog.String("query", q.name),
						slog.String("error", err.Error()),
					)
				}
				return
			}
			encoded, err := json.Marshal(value)
			if err == nil && lastEmitted != nil && bytes.Equal(encoded, lastEmitted) {
				return
			}
			lastEmitted = encoded

			// Latest-value delivery: displace an unconsumed stale value.
			select {
			case out <- value:
			default:
				select {
				case <-out:
				default:
				}
				select {
				case out <- value:
				default:
				}
			}
		}

		// Initial emission of current state, then one refetch per tick.
		emit()
		for {
			select {
			case <-ticks:
				emit()
			case <-subCtx.Done():
				return
			}
		}
	}()

	return out, stop
}
