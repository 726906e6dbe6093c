package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into cfg, a pointer to a struct tagged
// with `env` and `envDefault`. Every failing variable is reported, not just
// the first.
//
// Example:
//
//	type Config struct {
//	    Port     int    `env:"PREFS_HTTP_PORT" envDefault:"8090"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	err := env.Parse(cfg)
	if err == nil {
		return nil
	}

	var agg env.AggregateError
	if errors.As(err, &agg) && len(agg.Errors) > 1 {
		return fmt.Errorf("parse config: %d invalid variables: %w", len(agg.Errors), errors.Join(agg.Errors...))
	}
	return fmt.Errorf("parse config: %w", err)
}
