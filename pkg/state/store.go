// Package state keeps short-lived server-side data such as wizard drafts.
package state

import (
	"context"
	"errors"
	"time"
)

// Common store errors.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrStoreClosed = errors.New("store is closed")
	ErrInvalidData = errors.New("invalid data format")
)

// Store is a byte-oriented key/value backend with optional expiry.
type Store interface {
	// Get retrieves a value by key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns the live keys matching a glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Close closes the store.
	Close() error
}

// Serializer converts values of one type to and from bytes.
type Serializer[T any] interface {
	Serialize(value T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}

// TypedStore provides type-safe access to a Store.
type TypedStore[T any] struct {
	store      Store
	serializer Serializer[T]
}

// NewTypedStore wraps store. A nil serializer selects MessagePack.
func NewTypedStore[T any](store Store, serializer Serializer[T]) *TypedStore[T] {
	if serializer == nil {
		serializer = NewGenericSerializer[T]()
	}
	return &TypedStore[T]{store: store, serializer: serializer}
}

// Get retrieves and deserializes a value.
func (ts *TypedStore[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	data, err := ts.store.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	return ts.serializer.Deserialize(data)
}

// Set serializes and stores a value.
func (ts *TypedStore[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := ts.serializer.Serialize(value)
	if err != nil {
		return err
	}
	return ts.store.Set(ctx, key, data, ttl)
}

// Delete removes a key.
func (ts *TypedStore[T]) Delete(ctx context.Context, key string) error {
	return ts.store.Delete(ctx, key)
}
