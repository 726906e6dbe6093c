package database

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/DhruvK0/fynspo-mobile-sub000/pkg/errors"
)

var (
	storageOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefs_storage_operations_total",
			Help: "Total number of key-value storage operations by result",
		},
		[]string{"system", "operation", "result"},
	)

	storageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prefs_storage_operation_duration_seconds",
			Help:    "Duration of key-value storage operations in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"system", "operation"},
	)
)

// Operation results reported in prefs_storage_operations_total.
const (
	ResultOK    = "ok"
	ResultMiss  = "miss"
	ResultError = "error"
)

func observeOp(system, operation string, elapsed time.Duration, err error) {
	storageOpDuration.WithLabelValues(system, operation).Observe(elapsed.Seconds())
	storageOpsTotal.WithLabelValues(system, operation, resultOf(err)).Inc()
}

// A missing key is a normal outcome for the cache, not a failure.
func resultOf(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, apperrors.ErrNotFound):
		return ResultMiss
	default:
		return ResultError
	}
}
