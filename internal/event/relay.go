package event

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/domain"
	pkgkafka "github.com/DhruvK0/fynspo-mobile-sub000/pkg/kafka"
)

// Kafka topics for preference change events.
var (
	TopicItemsChanged   = pkgkafka.Topic("prefs", "items_changed")
	TopicFiltersChanged = pkgkafka.Topic("prefs", "filters_changed")
)

// Source identifier for events originating from the preference cache.
const SourcePrefsService = "prefs-service"

var relayDropped = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "prefs_relay_dropped_total",
		Help: "Total number of change events dropped because the relay queue was full",
	},
	[]string{"topic"},
)

// ItemsChangedData is the payload for an items_changed event.
type ItemsChangedData struct {
	DeviceID      string   `json:"device_id"`
	Favorites     []string `json:"favorites"`
	Cart          []string `json:"cart"`
	FavoriteCount int      `json:"favorite_count"`
	CartCount     int      `json:"cart_count"`
}

// FiltersChangedData is the payload for a filters_changed event.
type FiltersChangedData struct {
	DeviceID string   `json:"device_id"`
	Sort     string   `json:"sort"`
	Filters  []string `json:"filters"`
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
}

// Publisher sends an event envelope to a topic. *pkgkafka.Producer satisfies
// it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

type outbound struct {
	topic string
	event *pkgkafka.Event
}

// Relay mirrors change notifications to Kafka. Its callbacks only enqueue, so
// a slow broker never holds up a cache write; Run does the publishing.
// Events carry a per-relay sequence number, so a consumer sees a gap
// wherever an event was dropped.
type Relay struct {
	publisher      Publisher
	deviceID       string
	publishTimeout time.Duration
	logger         *slog.Logger
	queue          chan outbound
	seq            atomic.Uint64
}

// RelayConfig holds relay tuning.
type RelayConfig struct {
	DeviceID       string
	QueueSize      int
	PublishTimeout time.Duration
}

// NewRelay creates a relay. Call Run to start publishing.
func NewRelay(publisher Publisher, cfg RelayConfig, logger *slog.Logger) *Relay {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Relay{
		publisher:      publisher,
		deviceID:       cfg.DeviceID,
		publishTimeout: cfg.PublishTimeout,
		logger:         logger,
		queue:          make(chan outbound, cfg.QueueSize),
	}
}

// ItemsChanged is a change subscriber.
func (r *Relay) ItemsChanged(s domain.Snapshot) {
	data := ItemsChangedData{
		DeviceID:      r.deviceID,
		Favorites:     s.Favorites,
		Cart:          s.Cart,
		FavoriteCount: len(s.Favorites),
		CartCount:     len(s.Cart),
	}
	r.enqueue(TopicItemsChanged, data)
}

// FiltersChanged is a filter subscriber.
func (r *Relay) FiltersChanged(f domain.FilterState) {
	data := FiltersChangedData{
		DeviceID: r.deviceID,
		Sort:     f.Sort,
		Filters:  f.Filters.Keys(),
	}
	if p := f.Filters.Price; p != nil {
		data.PriceMin, data.PriceMax = &p.Min, &p.Max
	}
	r.enqueue(TopicFiltersChanged, data)
}

func (r *Relay) enqueue(topic string, data any) {
	event, err := pkgkafka.NewEvent(topic, r.deviceID, SourcePrefsService, data)
	if err != nil {
		r.logger.Error("failed to build change event",
			slog.String("topic", topic),
			slog.String("error", err.Error()),
		)
		return
	}
	event.WithSequence(r.seq.Add(1))

	select {
	case r.queue <- outbound{topic: topic, event: event}:
	default:
		relayDropped.WithLabelValues(topic).Inc()
		r.logger.Warn("relay queue full, dropping change event",
			slog.String("topic", topic),
			slog.String("event_id", event.ID),
			slog.Uint64("sequence", event.Sequence),
		)
	}
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// left in the queue.
func (r *Relay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case msg := <-r.queue:
			r.publish(ctx, msg)
		}
	}
}

func (r *Relay) flush() {
	for {
		select {
		case msg := <-r.queue:
			r.publish(context.Background(), msg)
		default:
			return
		}
	}
}

func (r *Relay) publish(ctx context.Context, msg outbound) {
	ctx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()

	if err := r.publisher.Publish(ctx, msg.topic, msg.event); err != nil {
		r.logger.ErrorContext(ctx, "failed to relay change event",
			slog.String("topic", msg.topic),
			slog.String("event_id", msg.event.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	r.logger.DebugContext(ctx, "relayed change event",
		slog.String("topic", msg.topic),
		slog.String("device_id", r.deviceID),
	)
}

// Pending reports how many events are waiting to be published.
func (r *Relay) Pending() int {
	return len(r.queue)
}
