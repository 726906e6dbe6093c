package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/logger"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestIPAllowlist(t *testing.T) {
	mw := IPAllowlist([]string{"127.0.0.0/8", "10.1.0.0/16", "not-a-cidr"}, logger.Discard())
	h := mw(http.HandlerFunc(okHandler))

	tests := []struct {
		name       string
		remoteAddr string
		want       int
	}{
		{"loopback", "127.0.0.1:5000", http.StatusOK},
		{"inside second prefix", "10.1.4.2:80", http.StatusOK},
		{"ipv4-mapped ipv6", "[::ffff:127.0.0.1]:5000", http.StatusOK},
		{"outside", "192.168.1.10:5000", http.StatusForbidden},
		{"no port", "10.1.0.9", http.StatusOK},
		{"garbage", "nonsense", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestIPAllowlist_ForbiddenBody(t *testing.T) {
	h := IPAllowlist(nil, logger.Discard())(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:1"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FORBIDDEN", body["error"]["code"])
}

func TestRegisterPprof_DisabledWithoutPrefixes(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, nil, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:1"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterPprof_ServesIndex(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.0/8"}, logger.Discard())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "127.0.0.1:1"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCacheControl(t *testing.T) {
	h := CacheControl(NoStore)(http.HandlerFunc(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}
