// Package storetest holds a behaviour suite every repository.Store
// implementation must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/repository"
	apperrors "github.com/DhruvK0/fynspo-mobile-sub000/pkg/errors"
)

// Run exercises store semantics against a fresh store from newStore for each
// subtest.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissingIsNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "favorites")
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("SetThenGet", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "filters", []byte(`{"sort":"new"}`)))

		got, err := s.Get(ctx, "filters")
		require.NoError(t, err)
		assert.Equal(t, `{"sort":"new"}`, string(got))
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "cart", []byte(`["a"]`)))
		require.NoError(t, s.Set(ctx, "cart", []byte(`["b"]`)))

		got, err := s.Get(ctx, "cart")
		require.NoError(t, err)
		assert.Equal(t, `["b"]`, string(got))
	})

	t.Run("MultiSetThenMultiGet", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MultiSet(ctx, map[string][]byte{
			"favorites": []byte(`["p1"]`),
			"cart":      []byte(`[]`),
		}))

		got, err := s.MultiGet(ctx, "favorites", "cart", "categories")
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{
			"favorites": []byte(`["p1"]`),
			"cart":      []byte(`[]`),
		}, got)
	})

	t.Run("MultiGetNoKeys", func(t *testing.T) {
		s := newStore(t)
		got, err := s.MultiGet(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("MultiSetEmptyIsNoop", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MultiSet(ctx, nil))
	})

	t.Run("MultiRemove", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MultiSet(ctx, map[string][]byte{
			"cart":       []byte(`["p1"]`),
			"cartObject": []byte(`{}`),
			"favorites":  []byte(`["p2"]`),
		}))

		require.NoError(t, s.MultiRemove(ctx, "cart", "cartObject", "never-written"))

		got, err := s.MultiGet(ctx, "cart", "cartObject", "favorites")
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{"favorites": []byte(`["p2"]`)}, got)
	})

	t.Run("MultiRemoveNoKeys", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.MultiRemove(ctx))
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(ctx))
	})
}
