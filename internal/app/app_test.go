package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/config"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/domain"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/logger"
)

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func testConfig(backend string) *config.Config {
	return &config.Config{
		Environment:       "test",
		LogLevel:          "error",
		HTTPPort:          8090,
		RequestTimeout:    5 * time.Second,
		StorageBackend:    backend,
		DeviceID:          "device-1",
		KeyPrefix:         "prefs:",
		SlowOpThreshold:   time.Second,
		SQLiteBusyTimeout: time.Second,
		RelayQueueSize:    16,
		OTelSampleRate:    1,
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)
	return a
}

func shirt() domain.Item {
	return domain.NewItem("p1", "shirt").With(domain.AttrBrand, "Acme")
}

// ----------------------------------------------------------------------------
// Backends
// ----------------------------------------------------------------------------

func TestNewApp_MemoryBackend_ServesAPI(t *testing.T) {
	a := newTestApp(t, testConfig(config.BackendMemory))
	defer func() { require.NoError(t, a.Shutdown()) }()

	body := `{"item":{"id":"p1","category":"shirt"},"is_favorite":true,"is_in_cart":true}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/prefs/items/p1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	state, err := a.Service().GetItemState(context.Background(), domain.NewItem("p1", ""))
	require.NoError(t, err)
	assert.True(t, state.IsFavorite)
	assert.True(t, state.IsInCart)

	rec = httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApp_SQLiteBackend_SurvivesRestart(t *testing.T) {
	cfg := testConfig(config.BackendSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	first := newTestApp(t, cfg)
	require.NoError(t, first.Service().SetItemState(ctx, shirt(), true, false))
	require.NoError(t, first.Shutdown())

	second := newTestApp(t, cfg)
	defer func() { require.NoError(t, second.Shutdown()) }()

	snap, err := second.Service().GetAllItemStates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, snap.Favorites)
	assert.Equal(t, "shirt", snap.Categories["p1"])
	brand, ok := snap.FavoritesObject["p1"].Attr(domain.AttrBrand)
	require.True(t, ok)
	assert.Equal(t, "Acme", brand)
}

func TestNewApp_SQLiteBackend_DefaultsBusyTimeoutAndCreatesDir(t *testing.T) {
	cfg := testConfig(config.BackendSQLite)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nested", "device.sqlite")
	cfg.SQLiteBusyTimeout = 0

	a := newTestApp(t, cfg)
	defer func() { require.NoError(t, a.Shutdown()) }()

	require.NoError(t, a.Service().SetItemState(context.Background(), shirt(), true, false))
	_, err := os.Stat(cfg.SQLitePath)
	assert.NoError(t, err)
}

func TestNewApp_RedisBackend_UsesDeviceNamespace(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(config.BackendRedis)
	cfg.RedisAddr = mr.Addr()

	a := newTestApp(t, cfg)
	defer func() { require.NoError(t, a.Shutdown()) }()

	require.NoError(t, a.Service().SetItemState(context.Background(), shirt(), false, true))
	assert.True(t, mr.Exists("prefs:device-1:cart"))
	assert.True(t, mr.Exists("prefs:device-1:cartObject"))
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	cfg := testConfig(config.BackendRedis)
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := NewApp(cfg, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestNewApp_UnsupportedBackend(t *testing.T) {
	_, err := NewApp(testConfig("etcd"), logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage backend")
}

// ----------------------------------------------------------------------------
// Relay wiring
// ----------------------------------------------------------------------------

func TestNewApp_RelaySubscribesAndDetachesOnShutdown(t *testing.T) {
	cfg := testConfig(config.BackendMemory)
	cfg.KafkaBrokers = []string{"127.0.0.1:1"}

	a := newTestApp(t, cfg)
	assert.Equal(t, 2, a.Service().Subscribers())

	require.NoError(t, a.Shutdown())
	assert.Equal(t, 0, a.Service().Subscribers())
}

func TestNewApp_NoBrokersNoRelay(t *testing.T) {
	a := newTestApp(t, testConfig(config.BackendMemory))
	defer func() { require.NoError(t, a.Shutdown()) }()

	assert.Equal(t, 0, a.Service().Subscribers())
	assert.Nil(t, a.relay)
}
