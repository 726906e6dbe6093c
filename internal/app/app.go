package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/config"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/event"
	handler "github.com/DhruvK0/fynspo-mobile-sub000/internal/handler/http"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/repository"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/repository/memory"
	redisrepo "github.com/DhruvK0/fynspo-mobile-sub000/internal/repository/redis"
	sqliterepo "github.com/DhruvK0/fynspo-mobile-sub000/internal/repository/sqlite"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/service"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/database"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/health"
	pkgkafka "github.com/DhruvK0/fynspo-mobile-sub000/pkg/kafka"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/middleware"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/tracing"
)

// ServiceName identifies this service in logs and traces.
const ServiceName = "prefs-service"

// App wires together all dependencies and runs the preference service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	service    *service.PreferenceService
	httpServer *http.Server

	closers        []func() error
	tracerShutdown func(context.Context) error

	producer    *pkgkafka.Producer
	relay       *event.Relay
	relayDetach []func()
	relayCancel context.CancelFunc
	relayDone   sync.WaitGroup
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	tcfg := tracing.DefaultConfig(ServiceName)
	tcfg.Environment = cfg.Environment
	tcfg.OTLPEndpoint = cfg.OTelEndpoint
	tcfg.SampleRate = cfg.OTelSampleRate
	tcfg.Enabled = cfg.OTelEnabled
	tcfg.Attributes = map[string]string{
		"device.id":             cfg.DeviceID,
		"prefs.storage_backend": cfg.StorageBackend,
	}
	tracerShutdown, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	database.SetSlowOpLogging(cfg.SlowOpThreshold, logger)

	store, err := a.openStore(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// Build the dependency graph.
	items, filters := service.NewRegistries(logger)
	a.service = service.NewPreferenceService(repository.Instrument(store, cfg.StorageBackend), items, filters, logger)

	if cfg.RelayEnabled() {
		a.startRelay(ctx)
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("storage", a.service.Ping)

	// HTTP router.
	feedCfg := handler.DefaultFeedConfig()
	feedCfg.AllowedOrigins = cfg.FeedAllowedOrigins
	router := handler.NewRouter(a.service, healthHandler, logger, handler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		PprofCIDRs:     cfg.PprofCIDRs,
		Feed:           feedCfg,
		WriteLimit: middleware.RateLimitConfig{
			RPS:   cfg.WriteRateLimit,
			Burst: cfg.WriteBurst,
		},
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	namespace := a.cfg.Namespace()

	switch a.cfg.StorageBackend {
	case config.BackendSQLite:
		dbCfg := database.DefaultSQLiteConfig(filepath.Dir(a.cfg.SQLitePath))
		dbCfg.Path = a.cfg.SQLitePath
		if a.cfg.SQLiteBusyTimeout > 0 {
			dbCfg.BusyTimeout = a.cfg.SQLiteBusyTimeout
		}

		db, err := database.OpenSQLite(ctx, dbCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		store, err := sqliterepo.NewStore(ctx, db, namespace)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		a.logger.Info("opened SQLite store",
			slog.String("path", a.cfg.SQLitePath),
			slog.String("namespace", namespace),
		)
		return store, nil

	case config.BackendRedis:
		rcfg := database.DefaultRedisConfig()
		rcfg.Addr = a.cfg.RedisAddr
		rcfg.Password = a.cfg.RedisPass
		rcfg.DB = a.cfg.RedisDB

		rdb, err := database.NewRedisClient(ctx, rcfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)

		a.logger.Info("connected to Redis",
			slog.String("addr", a.cfg.RedisAddr),
			slog.Int("db", a.cfg.RedisDB),
			slog.String("namespace", namespace),
		)
		return redisrepo.NewStore(rdb, namespace), nil

	case config.BackendMemory:
		a.logger.Warn("using in-memory store, preferences will not survive a restart")
		return memory.NewStore(), nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", a.cfg.StorageBackend)
	}
}

// startRelay mirrors change notifications to Kafka. Broker trouble is logged
// and never blocks startup.
func (a *App) startRelay(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pkgkafka.PingBrokers(pingCtx, a.cfg.KafkaBrokers); err != nil {
		a.logger.Warn("kafka brokers unreachable at startup",
			slog.Any("brokers", a.cfg.KafkaBrokers),
			slog.String("error", err.Error()),
		)
	}

	a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	a.relay = event.NewRelay(a.producer, event.RelayConfig{
		DeviceID:  a.cfg.DeviceID,
		QueueSize: a.cfg.RelayQueueSize,
	}, a.logger)

	a.relayDetach = append(a.relayDetach,
		a.service.SubscribeToChanges(a.relay.ItemsChanged),
		a.service.SubscribeToFilterChanges(a.relay.FiltersChanged),
	)

	relayCtx, cancel := context.WithCancel(context.Background())
	a.relayCancel = cancel
	a.relayDone.Add(1)
	go func() {
		defer a.relayDone.Done()
		a.relay.Run(relayCtx)
	}()

	a.logger.Info("kafka change relay started", slog.Any("brokers", a.cfg.KafkaBrokers))
}

// Service returns the preference service.
func (a *App) Service() *service.PreferenceService {
	return a.service
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	// Stop feeding the relay, then let it flush before closing the producer.
	for _, detach := range a.relayDetach {
		detach()
	}
	if a.relayCancel != nil {
		a.relayCancel()
		a.relayDone.Wait()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	a.closeAll()

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("store close error", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
