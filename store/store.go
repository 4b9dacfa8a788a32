// Package store implements the key-value stores used to persist the ledger and the
// user preferences.
//
// Values are opaque bytes; a whole value is always written at once.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has never been set.
var ErrNotFound = errors.New("store: key not found")

// ErrInvalidKey is returned for keys a store cannot hold.
var ErrInvalidKey = errors.New("store: invalid key")

// Store is a device-local key-value store.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
