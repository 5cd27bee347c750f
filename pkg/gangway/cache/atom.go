// Package cache provides the hybrid cache atom: a cell exposing a
// synchronous current value for one resource, kept warm by push
// invalidation signals and falling back to a direct pull when cold.
//
// State machine:
//
//	Cold -(first read)-> PullPending -(pull done)-> Warm
//	Warm -(push signal)-> Invalidated -(more signals)-> Invalidated
//	Invalidated -(quiet window elapses)-> RefetchPending -(fetch done)-> Warm
//	any state -(manual refresh)-> PullPending
//
// There is no terminal state. Once warm, reads never suspend: a concurrent
// refetch replaces the value atomically and readers keep seeing the last
// warm value until it lands. The quiet window is the backpressure
// mechanism: N rapid invalidation signals collapse into exactly one
// refetch reflecting only the last signal.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/gangway/pkg/gangway/multiplex"
	"github.com/randalmurphal/gangway/pkg/gangway/observability"
)

// DefaultQuietWindow is the debounce window between an invalidation signal
// and the refetch it triggers.
const DefaultQuietWindow = 300 * time.Millisecond

// DefaultRefetchTimeout bounds each background refetch.
const DefaultRefetchTimeout = 5 * time.Second

// ErrClosed is returned by reads on a closed atom.
var ErrClosed = errors.New("cache: atom closed")

// State is the atom's lifecycle state.
type State int

// Atom states.
const (
	Cold State = iota
	PullPending
	Warm
	Invalidated
	RefetchPending
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Cold:
		return "cold"
	case PullPending:
		return "pull_pending"
	case Warm:
		return "warm"
	case Invalidated:
		return "invalidated"
	case RefetchPending:
		return "refetch_pending"
	default:
		return "unknown"
	}
}

// FetchFunc loads current state for the atom, typically an RPC through the
// router.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Atom is a hybrid push/pull cache cell for values of type T.
type Atom[T any] struct {
	fetch          FetchFunc[T]
	quiet          time.Duration
	refetchTimeout time.Duration
	resource       string
	logger         *slog.Logger
	metrics        observability.MetricsRecorder

	mu                sync.Mutex
	state             State
	confirmed         T
	confirmedVersion  uint64
	optimistic        T
	optimisticVersion uint64
	versions          uint64
	timer             *time.Timer
	pull              chan struct{}
	detach            func()
	closed            bool
}

// Option configures an Atom.
type Option[T any] func(*Atom[T])

// WithQuietWindow sets the debounce window.
func WithQuietWindow[T any](d time.Duration) Option[T] {
	return func(a *Atom[T]) {
		if d > 0 {
			a.quiet = d
		}
	}
}

// WithRefetchTimeout bounds each background refetch.
func WithRefetchTimeout[T any](d time.Duration) Option[T] {
	return func(a *Atom[T]) {
		if d > 0 {
			a.refetchTimeout = d
		}
	}
}

// WithResource names the resource for logs and metrics.
func WithResource[T any](resource string) Option[T] {
	return func(a *Atom[T]) {
		a.resource = resource
	}
}

// WithLogger sets the atom logger.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(a *Atom[T]) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics recorder for refetches.
func WithMetrics[T any](metrics observability.MetricsRecorder) Option[T] {
	return func(a *Atom[T]) {
		a.metrics = metrics
	}
}

// New creates a cold atom backed by fetch.
func New[T any](fetch FetchFunc[T], opts ...Option[T]) *Atom[T] {
	a := &Atom[T]{
		fetch:          fetch,
		quiet:          DefaultQuietWindow,
		refetchTimeout: DefaultRefetchTimeout,
		metrics:        observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Bind subscribes the atom to the named invalidation event, establishing
// the push-maintained path. Binding twice is harmless.
func (a *Atom[T]) Bind(mux *multiplex.Multiplexer, event string) {
	unsubscribe := mux.Subscribe(event, func([]byte) {
		a.Invalidate()
	})

	a.mu.Lock()
	if a.detach != nil || a.closed {
		a.mu.Unlock()
		unsubscribe()
		return
	}
	a.detach = unsubscribe
	a.mu.Unlock()
}

// State returns the current lifecycle state.
func (a *Atom[T]) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Get returns the current value. Warm reads return synchronously without
// suspending; only a cold read runs the pull path, which may suspend the
// caller until the fetch resolves. Concurrent cold readers share one pull.
func (a *Atom[T]) Get(ctx context.Context) (T, error) {
	var zero T
	a.mu.Lock()
	for {
		if a.closed {
			a.mu.Unlock()
			return zero, ErrClosed
		}

		switch a.state {
		case Warm, Invalidated, RefetchPending:
			value := a.displayedLocked()
			a.mu.Unlock()
			return value, nil

		case PullPending:
			wait := a.pull
			a.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			a.mu.Lock()

		case Cold:
			a.state = PullPending
			a.pull = make(chan struct{})
			wait := a.pull
			a.mu.Unlock()

			value, err := a.fetch(ctx)

			a.mu.Lock()
			close(wait)
			a.pull = nil
			if err != nil {
				if a.state == PullPending {
					a.state = Cold
				}
				a.mu.Unlock()
				return zero, err
			}
			a.storeConfirmedLocked(value)
			if a.state == PullPending {
				a.state = Warm
			}
			displayed := a.displayedLocked()
			a.mu.Unlock()
			return displayed, nil
		}
	}
}

// Invalidate feeds one push signal into the atom. Each signal starts or
// extends the quiet window; when the window elapses a single refetch runs
// reflecting only the last signal. Signals before the first read are
// ignored: there is no cached value to refresh yet.
func (a *Atom[T]) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	switch a.state {
	case Warm, Invalidated, RefetchPending:
		a.state = Invalidated
		if a.timer == nil {
			a.timer = time.AfterFunc(a.quiet, a.refetch)
		} else {
			a.timer.Reset(a.quiet)
		}
	case Cold, PullPending:
		// Nothing cached; the next read pulls fresh state anyway.
	}
}

// refetch runs once the quiet window elapses with no further signals.
func (a *Atom[T]) refetch() {
	a.mu.Lock()
	if a.closed || a.state != Invalidated {
		a.mu.Unlock()
		return
	}
	a.state = RefetchPending
	a.timer = nil
	a.mu.Unlock()

	done := observability.TimedOperation()
	ctx, cancel := context.WithTimeout(context.Background(), a.refetchTimeout)
	defer cancel()

	value, err := a.fetch(ctx)
	durationMs := done()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	if err == nil {
		a.storeConfirmedLocked(value)
	}
	// A failed refetch keeps the last warm value: stale but available.
	if a.state == RefetchPending {
		a.state = Warm
	}
	a.mu.Unlock()

	observability.LogRefetch(a.logger, a.resource, err, durationMs)
	a.metrics.RecordRefetch(context.Background(), a.resource, time.Duration(durationMs)*time.Millisecond, err)
}

// Refresh resets the push state and forces a fresh pull, e.g. after an
// optimistic rollback. Pending debounce windows are cancelled and any
// optimistic value is dropped.
func (a *Atom[T]) Refresh(ctx context.Context) (T, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		var zero T
		return zero, ErrClosed
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.dropOptimisticLocked()
	if a.state != PullPending {
		a.state = Cold
	}
	a.mu.Unlock()

	return a.Get(ctx)
}

// SetOptimistic applies a tentative value stamped with a fresh logical
// version and returns that version. The displayed value is always the
// greater-versioned of confirmed and optimistic, so the tentative value
// shows until a later confirmed value supersedes it.
func (a *Atom[T]) SetOptimistic(value T) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.versions++
	a.optimisticVersion = a.versions
	a.optimistic = value
	return a.optimisticVersion
}

// DropOptimistic discards the tentative value stamped with version, letting
// the confirmed value win again. Writers call this when their command
// fails; a version superseded by a newer optimistic write is left alone.
func (a *Atom[T]) DropOptimistic(version uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.optimisticVersion == version {
		a.dropOptimisticLocked()
	}
}

// Close releases the push listener and cancels any pending debounce timer.
// No refetch fires after Close; reads return ErrClosed.
func (a *Atom[T]) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	detach := a.detach
	a.detach = nil
	a.mu.Unlock()

	if detach != nil {
		detach()
	}
}

// storeConfirmedLocked replaces the confirmed value atomically.
// Callers must hold a.mu.
func (a *Atom[T]) storeConfirmedLocked(value T) {
	a.versions++
	a.confirmedVersion = a.versions
	a.confirmed = value
}

// displayedLocked returns the max-by-version of confirmed and optimistic.
// Callers must hold a.mu.
func (a *Atom[T]) displayedLocked() T {
	if a.optimisticVersion > a.confirmedVersion {
		return a.optimistic
	}
	return a.confirmed
}

// dropOptimisticLocked clears the tentative value.
// Callers must hold a.mu.
func (a *Atom[T]) dropOptimisticLocked() {
	var zero T
	a.optimistic = zero
	a.optimisticVersion = 0
}
