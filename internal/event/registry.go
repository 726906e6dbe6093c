package event

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subscribersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prefs_subscribers",
			Help: "Number of registered change subscribers",
		},
		[]string{"channel"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefs_notifications_total",
			Help: "Total number of change notifications delivered to subscribers",
		},
		[]string{"channel"},
	)

	subscriberPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prefs_subscriber_panics_total",
			Help: "Total number of subscriber callbacks that panicked",
		},
		[]string{"channel"},
	)
)

// Channel names.
const (
	ChannelItems   = "items"
	ChannelFilters = "filters"
)

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// Registry is a list of callbacks notified synchronously, in registration
// order, on every Publish. Late subscribers see only later publishes.
type Registry[T any] struct {
	channel string
	copy    func(T) T
	logger  *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   []subscription[T]
}

// RegistryOption configures a Registry.
type RegistryOption[T any] func(*Registry[T])

// WithCopy gives every subscriber its own copy of the published value.
func WithCopy[T any](fn func(T) T) RegistryOption[T] {
	return func(r *Registry[T]) { r.copy = fn }
}

// NewRegistry creates an empty registry. The channel name labels metrics and
// log lines.
func NewRegistry[T any](channel string, logger *slog.Logger, opts ...RegistryOption[T]) *Registry[T] {
	r := &Registry[T]{channel: channel, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers fn and returns a function that removes exactly this
// registration. Calling the returned function more than once is a no-op.
func (r *Registry[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs = append(r.subs, subscription[T]{id: id, fn: fn})
	r.mu.Unlock()

	subscribersActive.WithLabelValues(r.channel).Inc()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *Registry[T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.subs)
	r.subs = slices.DeleteFunc(r.subs, func(s subscription[T]) bool { return s.id == id })
	if len(r.subs) < before {
		subscribersActive.WithLabelValues(r.channel).Dec()
	}
}

// Publish delivers v to every current subscriber and returns how many were
// called. The subscriber list is captured first, so callbacks may subscribe
// or unsubscribe without deadlocking. A panicking callback is logged and does
// not stop delivery to the rest.
func (r *Registry[T]) Publish(v T) int {
	r.mu.RLock()
	subs := slices.Clone(r.subs)
	r.mu.RUnlock()

	for _, s := range subs {
		value := v
		if r.copy != nil {
			value = r.copy(v)
		}
		r.deliver(s, value)
	}

	notificationsTotal.WithLabelValues(r.channel).Add(float64(len(subs)))
	return len(subs)
}

func (r *Registry[T]) deliver(s subscription[T], v T) {
	defer func() {
		if rec := recover(); rec != nil {
			subscriberPanicsTotal.WithLabelValues(r.channel).Inc()
			if r.logger != nil {
				r.logger.Error("subscriber panicked",
					slog.String("channel", r.channel),
					slog.Uint64("subscription", s.id),
					slog.String("panic", fmt.Sprint(rec)),
				)
			}
		}
	}()
	s.fn(v)
}

// Len returns the number of registered subscribers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
