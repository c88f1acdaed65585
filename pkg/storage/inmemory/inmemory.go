package inmemory

import (
	"context"
	"sync"

	"github.com/mythos-rpg/mythos/pkg/storage"
)

// Driver implements storage.Driver using nested in-memory maps.
type Driver struct {
	// mu is a read write sync mutex for locking the collections map
	mu sync.RWMutex

	// collections maps collection name -> key -> value
	collections map[string]map[string][]byte
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		collections: make(map[string]map[string][]byte),
	}
}

// Put stores a record, replacing any existing value under the same key.
func (d *Driver) Put(_ context.Context, collection, key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	coll, ok := d.collections[collection]
	if !ok {
		coll = make(map[string][]byte)
		d.collections[collection] = coll
	}

	// Copy so later mutation of the caller's slice can't reach the store
	coll[key] = append([]byte(nil), value...)
	return nil
}

// Get retrieves a record's value.
func (d *Driver) Get(_ context.Context, collection, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	value, ok := d.collections[collection][key]
	if !ok {
		return nil, storage.NotFoundError{Collection: collection, Key: key}
	}

	return append([]byte(nil), value...), nil
}

// Has checks whether a record exists.
func (d *Driver) Has(_ context.Context, collection, key string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.collections[collection][key]
	return ok, nil
}

// List returns all records in a collection.
func (d *Driver) List(_ context.Context, collection string) ([]storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	coll := d.collections[collection]
	records := make([]storage.Record, 0, len(coll))
	for key, value := range coll {
		records = append(records, storage.Record{
			Collection: collection,
			Key:        key,
			Value:      append([]byte(nil), value...),
		})
	}

	return records, nil
}

// Delete removes a record. Missing records are a no-op.
func (d *Driver) Delete(_ context.Context, collection, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.collections[collection], key)
	return nil
}

// Count returns the number of records in a collection.
func (d *Driver) Count(_ context.Context, collection string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.collections[collection]), nil
}

// Close is a no-op for the in-memory store.
func (d *Driver) Close() error {
	return nil
}
