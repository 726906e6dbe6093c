package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Publish results.
const (
	resultOK    = "ok"
	resultError = "error"
)

var (
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefs_kafka_publish_total",
			Help: "Kafka publish attempts by topic and result",
		},
		[]string{"topic", "result"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prefs_kafka_publish_duration_seconds",
			Help:    "Time spent writing one event to Kafka",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"topic"},
	)
)

func observePublish(topic string, seconds float64, err error) {
	publishDuration.WithLabelValues(topic).Observe(seconds)
	if err != nil {
		publishTotal.WithLabelValues(topic, resultError).Inc()
		return
	}
	publishTotal.WithLabelValues(topic, resultOK).Inc()
}
