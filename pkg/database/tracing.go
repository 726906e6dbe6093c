package database

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/DhruvK0/fynspo-mobile-sub000/pkg/database"

var slowOpCfg struct {
	mu        sync.RWMutex
	threshold time.Duration
	logger    *slog.Logger
}

// SetSlowOpLogging configures slow storage operation detection. Operations
// exceeding the threshold are logged as warnings. A zero threshold disables it.
func SetSlowOpLogging(threshold time.Duration, logger *slog.Logger) {
	slowOpCfg.mu.Lock()
	defer slowOpCfg.mu.Unlock()
	slowOpCfg.threshold = threshold
	slowOpCfg.logger = logger
}

func getSlowOpConfig() (time.Duration, *slog.Logger) {
	slowOpCfg.mu.RLock()
	defer slowOpCfg.mu.RUnlock()
	return slowOpCfg.threshold, slowOpCfg.logger
}

// TraceOp starts a span for a key-value storage operation and returns a
// function that must be called with the operation's error when it completes:
//
//	ctx, end := database.TraceOp(ctx, "redis", "MultiSet", keys)
//	defer func() { end(err) }()
//
// The end function also records Prometheus metrics and slow-op warnings.
func TraceOp(ctx context.Context, system, operation string, keys []string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "kv."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", operation),
			attribute.StringSlice("kv.keys", keys),
		),
	)

	return ctx, func(err error) {
		elapsed := time.Since(start)
		observeOp(system, operation, elapsed, err)

		if resultOf(err) == ResultError {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if threshold, logger := getSlowOpConfig(); threshold > 0 && logger != nil && elapsed >= threshold {
			attrs := []any{
				slog.String("system", system),
				slog.String("operation", operation),
				slog.String("keys", strings.Join(keys, ",")),
				slog.Duration("duration", elapsed),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			logger.WarnContext(ctx, "slow storage operation", attrs...)
		}
	}
}
