// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mythos-rpg/mythos/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch()),
	PRIMARY KEY (collection, key)
);
`

// Driver implements storage.Driver on a single SQLite records table.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	// The github.com/mattn/go-sqlite3 driver registers as "sqlite3"
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

// Put stores a record, replacing any existing value under the same key.
func (d *Driver) Put(ctx context.Context, collection, key string, value []byte) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO records (collection, key, value, updated_at)
		VALUES (?, ?, ?, unixepoch())
		ON CONFLICT (collection, key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, collection, key, value)
	if err != nil {
		return fmt.Errorf("failed to put record %s/%s: %w", collection, key, err)
	}

	return nil
}

// Get retrieves a record's value.
func (d *Driver) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var value []byte
	err := d.db.QueryRowContext(ctx,
		"SELECT value FROM records WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Collection: collection, Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s/%s: %w", collection, key, err)
	}

	return value, nil
}

// Has checks whether a record exists.
func (d *Driver) Has(ctx context.Context, collection, key string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx,
		"SELECT 1 FROM records WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check record %s/%s: %w", collection, key, err)
	}

	return true, nil
}

// List returns all records in a collection ordered by key.
func (d *Driver) List(ctx context.Context, collection string) ([]storage.Record, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT key, value FROM records WHERE collection = ? ORDER BY key",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection %s: %w", collection, err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		rec := storage.Record{Collection: collection}
		if err := rows.Scan(&rec.Key, &rec.Value); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collection %s: %w", collection, err)
	}

	return records, nil
}

// Delete removes a record. Missing records are a no-op.
func (d *Driver) Delete(ctx context.Context, collection, key string) error {
	_, err := d.db.ExecContext(ctx,
		"DELETE FROM records WHERE collection = ? AND key = ?",
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete record %s/%s: %w", collection, key, err)
	}

	return nil
}

// Count returns the number of records in a collection.
func (d *Driver) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE collection = ?",
		collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}

	return n, nil
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}
