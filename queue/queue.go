// Package queue holds the pebble-backed record stores: a small JSON
// key/value wrapper and the pending-job queue built on it.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// DB is a small wrapper around a Pebble DB instance storing JSON values.
type DB struct {
	db       *pebble.DB
	DataFile string
}

// Open opens (or creates) a pebble DB at dataFile.
func Open(dataFile string) (*DB, error) {
	db, err := pebble.Open(dataFile, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", dataFile, err)
	}
	return &DB{db: db, DataFile: dataFile}, nil
}

// Put marshals v and stores it under key.
func (q *DB) Put(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return q.db.Set([]byte(key), data, pebble.Sync)
}

// Get unmarshals the value for key into v. A missing key reports false
// with a nil error.
func (q *DB) Get(key string, v interface{}) (bool, error) {
	data, closer, err := q.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer closer.Close()

	// data is only valid until closer.Close
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (q *DB) Delete(key string) error {
	return q.db.Delete([]byte(key), pebble.Sync)
}

// Each calls fn for every key in order. The value slice is only valid for
// the duration of the call.
func (q *DB) Each(fn func(key string, value []byte) error) error {
	iter, err := q.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(string(iter.Key()), iter.Value()); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("iteration error: %w", err)
	}
	return nil
}

// Ping verifies the database answers reads.
func (q *DB) Ping() error {
	_, closer, err := q.db.Get([]byte("__health_check__"))
	if err != nil && !errors.Is(err, pebble.ErrNotFound) {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if closer != nil {
		closer.Close()
	}
	return nil
}

// Close closes the underlying DB.
func (q *DB) Close() error {
	return q.db.Close()
}
