package gangway

import (
	"context"

	"github.com/randalmurphal/gangway/pkg/gangway/cache"
)

// Resource is a cached view of one backend resource: a cache atom wired to
// the resource's GET path and its invalidation event. Reads are warm after
// the first pull; backend mutations invalidate it through the push channel
// and a single refetch follows the quiet window.
type Resource[T any] struct {
	client *Client
	atom   *cache.Atom[T]
}

// NewResource builds a resource reading from path and invalidated by the
// named backend resource. Extra cache options tune the quiet window,
// refetch timeout, and observability.
func NewResource[T any](client *Client, path, resource string, opts ...cache.Option[T]) *Resource[T] {
	fetch := func(ctx context.Context) (T, error) {
		var v T
		err := client.GetJSON(ctx, path, &v)
		return v, err
	}

	atomOpts := append([]cache.Option[T]{cache.WithResource[T](resource)}, opts...)
	atom := cache.New(fetch, atomOpts...)
	atom.Bind(client.Events(), InvalidationEvent(resource))

	return &Resource[T]{client: client, atom: atom}
}

// Get returns the current value. Only the first read pulls; warm reads
// return synchronously.
func (r *Resource[T]) Get(ctx context.Context) (T, error) {
	return r.atom.Get(ctx)
}

// Refresh drops cached and optimistic state and pulls fresh.
func (r *Resource[T]) Refresh(ctx context.Context) (T, error) {
	return r.atom.Refresh(ctx)
}

// State returns the cache atom's lifecycle state.
func (r *Resource[T]) State() cache.State {
	return r.atom.State()
}

// Mutate shows optimistic as the resource's value immediately, then runs
// the command. On failure the tentative value is rolled back and the error
// returned; on success it stays displayed until the confirmed value
// arriving through invalidation supersedes it.
func (r *Resource[T]) Mutate(ctx context.Context, optimistic T, command func(ctx context.Context) error) error {
	version := r.atom.SetOptimistic(optimistic)
	if err := command(ctx); err != nil {
		r.atom.DropOptimistic(version)
		return err
	}
	return nil
}

// Close releases the invalidation listener and any pending refetch timer.
func (r *Resource[T]) Close() {
	r.atom.Close()
}
