package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/DhruvK0/fynspo-mobile-sub000/pkg/errors"
)

// DefaultKeyPrefix namespaces preference keys when no prefix is configured.
const DefaultKeyPrefix = "prefs:"

// Store implements repository.Store on Redis strings. Keys carry no TTL:
// preferences live until they are explicitly cleared.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// NewStore creates a Redis-backed store. Every key is stored as prefix+key.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) keys(ks []string) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = s.key(k)
	}
	return out
}

// Get retrieves one value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("key", key)
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

// MultiGet reads all keys with a single MGET, which Redis serves atomically.
func (s *Store) MultiGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	vals, err := s.client.MGet(ctx, s.keys(keys)...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	for i, v := range vals {
		switch val := v.(type) {
		case nil:
		case string:
			out[keys[i]] = []byte(val)
		default:
			return nil, fmt.Errorf("redis mget %s: unexpected value type %T", keys[i], v)
		}
	}
	return out, nil
}

// Set stores one value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// MultiSet writes all entries inside MULTI/EXEC.
func (s *Store) MultiSet(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis multi set: %w", err)
	}
	return nil
}

// MultiRemove deletes the keys with a single DEL.
func (s *Store) MultiRemove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, s.keys(keys)...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
