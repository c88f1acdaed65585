// Package storage
package storage

import (
	"context"
)

// Collection names the logical buckets a driver persists. Drivers treat
// collection names as opaque; these constants exist so callers agree on them.
const (
	CollectionSaves    = "saves"
	CollectionSettings = "settings"
	CollectionVectors  = "vectors"
)

// Record is a single persisted entry: an opaque JSON value under a key
// within a collection.
type Record struct {
	Collection string
	Key        string
	Value      []byte
}

// Driver defines the interface for persisting and retrieving records in a
// storage backend. Values are opaque byte slices (JSON in practice); the
// driver never inspects them.
type Driver interface {
	// Put stores a record, replacing any existing value under the same
	// collection and key.
	Put(ctx context.Context, collection, key string, value []byte) error

	// Get retrieves a record's value by collection and key. Returns
	// NotFoundError when no record exists.
	Get(ctx context.Context, collection, key string) ([]byte, error)

	// Has checks whether a record exists.
	Has(ctx context.Context, collection, key string) (bool, error)

	// List returns all records in a collection.
	List(ctx context.Context, collection string) ([]Record, error)

	// Delete removes a record. Deleting a missing record is a no-op.
	Delete(ctx context.Context, collection, key string) error

	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close closes the store and releases any resources.
	Close() error
}
