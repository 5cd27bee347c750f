// Package store defines the backing store consumed by service
// implementations, with an in-memory implementation for tests and a SQLite
// implementation for single-process production use.
//
// The bridge mandates no schema: records are opaque blobs grouped into
// collections. Listing preserves insertion order so readers see stable
// sequences across refetches.
package store

import (
	"context"
	"errors"
	"time"
)

// Record is one stored entry.
type Record struct {
	ID        string
	Data      []byte
	UpdatedAt time.Time
}

// Store persists records grouped by collection.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a record. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, collection, id string) (Record, error)

	// List returns all records in a collection in insertion order.
	// Returns an empty slice (not an error) for an unknown collection.
	List(ctx context.Context, collection string) ([]Record, error)

	// Put inserts or replaces a record. Replacing keeps the record's
	// original position in the collection order.
	Put(ctx context.Context, collection string, rec Record) error

	// Delete removes a record. Returns ErrNotFound if it doesn't exist.
	Delete(ctx context.Context, collection, id string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store closed")
)
