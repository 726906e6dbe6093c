package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	pkgconfig "github.com/DhruvK0/fynspo-mobile-sub000/pkg/config"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all configuration for the preference service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"PREFS_HTTP_PORT" envDefault:"8090"`
	RequestTimeout time.Duration `env:"PREFS_REQUEST_TIMEOUT" envDefault:"30s"`

	// Per-device throttle on mutating routes; 0 disables it.
	WriteRateLimit float64 `env:"PREFS_WRITE_RATE_LIMIT" envDefault:"20"`
	WriteBurst     int     `env:"PREFS_WRITE_BURST" envDefault:"40"`

	// Storage
	StorageBackend  string        `env:"STORAGE_BACKEND" envDefault:"sqlite"`
	DeviceID        string        `env:"PREFS_DEVICE_ID" envDefault:"local"`
	KeyPrefix       string        `env:"PREFS_KEY_PREFIX" envDefault:"prefs:"`
	SlowOpThreshold time.Duration `env:"STORAGE_SLOW_OP_THRESHOLD" envDefault:"100ms"`

	// SQLite
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"./data/prefs.db"`
	SQLiteBusyTimeout time.Duration `env:"SQLITE_BUSY_TIMEOUT" envDefault:"5s"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka change relay; disabled when no brokers are set.
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	RelayQueueSize int      `env:"PREFS_RELAY_QUEUE_SIZE" envDefault:"256"`

	// Change feed
	FeedAllowedOrigins []string `env:"FEED_ALLOWED_ORIGINS" envSeparator:","`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Debug
	PprofCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load prefs config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Namespace is the key prefix for this device's preferences, such as
// "prefs:local:".
func (c *Config) Namespace() string {
	return c.KeyPrefix + c.DeviceID + ":"
}

// RelayEnabled reports whether change events are mirrored to Kafka.
func (c *Config) RelayEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	backends := []string{BackendSQLite, BackendRedis, BackendMemory}
	if !slices.Contains(backends, c.StorageBackend) {
		return fmt.Errorf("invalid storage backend %q: must be one of %s", c.StorageBackend, strings.Join(backends, ", "))
	}
	if c.StorageBackend == BackendSQLite && c.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
	}
	if c.StorageBackend == BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis backend")
	}

	if strings.TrimSpace(c.DeviceID) == "" || strings.Contains(c.DeviceID, ":") {
		return fmt.Errorf("invalid device id %q: must be non-empty and contain no ':'", c.DeviceID)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE %v: must be between 0 and 1", c.OTelSampleRate)
	}
	if c.WriteRateLimit < 0 {
		return fmt.Errorf("invalid PREFS_WRITE_RATE_LIMIT %v: must not be negative", c.WriteRateLimit)
	}
	if c.WriteRateLimit > 0 && c.WriteBurst < 1 {
		return fmt.Errorf("invalid PREFS_WRITE_BURST %d: must be at least 1", c.WriteBurst)
	}
	if c.RelayQueueSize < 1 {
		return fmt.Errorf("invalid relay queue size: %d", c.RelayQueueSize)
	}
	return nil
}
