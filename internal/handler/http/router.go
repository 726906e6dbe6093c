package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/service"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/health"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/middleware"
)

// ServiceName names the tracer for this service.
const ServiceName = "prefs"

// RouterConfig holds the optional parts of the router.
type RouterConfig struct {
	RequestTimeout time.Duration
	PprofCIDRs     []string
	Feed           FeedConfig
	// WriteLimit throttles mutating routes per device. A zero RPS disables it.
	WriteLimit middleware.RateLimitConfig
}

// NewRouter creates a chi router with all preference routes registered.
func NewRouter(
	prefService *service.PreferenceService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	prefHandler := NewPreferenceHandler(prefService, logger)
	feedHandler := NewFeedHandler(prefService, cfg.Feed, logger)

	r.Route("/api/v1/prefs", func(r chi.Router) {
		// The feed is a long-lived upgraded connection; compression and
		// the request timeout would break it.
		r.Get("/feed", feedHandler.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Compress(5))
			r.Use(chimw.Timeout(cfg.RequestTimeout))
			r.Use(middleware.CacheControl(middleware.NoStore))
			r.Use(ContentTypeJSON)

			r.Get("/items", prefHandler.GetAllItemStates)
			r.Get("/items/{itemId}", prefHandler.GetItemState)
			r.Get("/filters", prefHandler.GetFilterState)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(cfg.WriteLimit, logger))

				r.Delete("/", prefHandler.ClearAllData)
				r.Put("/items/{itemId}", prefHandler.SetItemState)
				r.Delete("/cart", prefHandler.ClearCart)
				r.Put("/filters", prefHandler.SaveFilterState)
			})
		})
	})

	return r
}
