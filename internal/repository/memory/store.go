// Package memory is a process-local Store for development and tests. State is
// lost on restart.
package memory

import (
	"context"
	"slices"
	"sync"

	apperrors "github.com/DhruvK0/fynspo-mobile-sub000/pkg/errors"
)

// Store keeps values in a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the value under key, or a NotFound error.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, apperrors.NotFound("key", key)
	}
	return slices.Clone(v), nil
}

// MultiGet returns copies of the values that exist; missing keys are absent
// from the map.
func (s *Store) MultiGet(_ context.Context, keys ...string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := s.data[k]; ok {
			out[k] = slices.Clone(v)
		}
	}
	return out, nil
}

// Set stores a copy of value under key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = slices.Clone(value)
	return nil
}

// MultiSet writes every entry under one lock, so readers never see a partial
// update.
func (s *Store) MultiSet(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range entries {
		s.data[k] = slices.Clone(v)
	}
	return nil
}

// MultiRemove deletes the keys. Missing keys are ignored.
func (s *Store) MultiRemove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Len reports how many keys are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
