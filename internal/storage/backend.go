package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Backend when a key has no value
var ErrNotFound = errors.New("key not found")

// Backend is a raw key-value store behind one scope
type Backend interface {
	// Name returns the backend identifier
	Name() string

	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}
