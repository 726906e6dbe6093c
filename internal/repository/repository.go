package repository

import (
	"context"
)

// Store is the key-value port the preference cache persists through. Values
// are opaque JSON documents.
type Store interface {
	// Get returns the value stored under key, or an error matching
	// apperrors.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// MultiGet returns the values for the keys that exist. Absent keys are
	// left out of the result rather than reported as errors.
	MultiGet(ctx context.Context, keys ...string) (map[string][]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// MultiSet stores every entry as one atomic write.
	MultiSet(ctx context.Context, entries map[string][]byte) error

	// MultiRemove deletes the keys. Absent keys are ignored.
	MultiRemove(ctx context.Context, keys ...string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
