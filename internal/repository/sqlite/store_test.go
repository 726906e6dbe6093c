package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/repository"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/repository/storetest"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), database.SQLiteConfig{Path: database.MemoryDSN})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T, prefix string) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), openTestDB(t), prefix)
	require.NoError(t, err)
	return s
}

func TestStore_Behaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return newTestStore(t, "prefs:test:")
	})
}

func TestNewStore_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first, err := NewStore(ctx, db, "p:")
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "cart", []byte(`["p1"]`)))

	second, err := NewStore(ctx, db, "p:")
	require.NoError(t, err)

	got, err := second.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `["p1"]`, string(got))
}

func TestStore_KeysArePrefixed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s, err := NewStore(ctx, db, "prefs:device-1:")
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "filters", []byte(`{}`)))

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kv_store WHERE key = 'prefs:device-1:filters'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestStore_RecordsUpdateTime(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s, err := NewStore(ctx, db, "p:")
	require.NoError(t, err)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.MultiSet(ctx, map[string][]byte{"cart": []byte(`[]`)}))

	var ts int64
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT updated_at FROM kv_store WHERE key = 'p:cart'`).Scan(&ts))
	assert.Equal(t, fixed.UnixMilli(), ts)
}

func TestStore_ClosedDatabase(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	s, err := NewStore(ctx, db, "p:")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = s.Get(ctx, "cart")
	assert.Error(t, err)
	assert.Error(t, s.MultiSet(ctx, map[string][]byte{"cart": []byte(`[]`)}))
	assert.Error(t, s.MultiRemove(ctx, "cart"))
	assert.Error(t, s.Ping(ctx))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}
