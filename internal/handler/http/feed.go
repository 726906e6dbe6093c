package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DhruvK0/fynspo-mobile-sub000/internal/domain"
	"github.com/DhruvK0/fynspo-mobile-sub000/internal/service"
	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/logger"
)

// Feed message types.
const (
	MessageItemsChanged   = "items.changed"
	MessageFiltersChanged = "filters.changed"
)

var feedConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "prefs_feed_connections",
	Help: "Number of open change feed connections",
})

// FeedMessage wraps every change pushed over the feed.
type FeedMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// FeedConfig tunes the change feed.
type FeedConfig struct {
	// SendBuffer is how many messages may queue per connection before the
	// connection is dropped as too slow.
	SendBuffer   int
	PingInterval time.Duration
	PongWait     time.Duration
	WriteTimeout time.Duration
	// AllowedOrigins lists browser origins allowed to connect. Requests
	// without an Origin header, as sent by native clients, are always
	// accepted. "*" accepts every origin.
	AllowedOrigins []string
}

// DefaultFeedConfig returns defaults suitable for on-device use.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		SendBuffer:   64,
		PingInterval: 30 * time.Second,
		PongWait:     60 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// FeedHandler streams item and filter changes over a WebSocket. Each
// connection subscribes on open and unsubscribes when it closes.
type FeedHandler struct {
	service  *service.PreferenceService
	cfg      FeedConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewFeedHandler creates a change feed handler.
func NewFeedHandler(svc *service.PreferenceService, cfg FeedConfig, logger *slog.Logger) *FeedHandler {
	def := DefaultFeedConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongWait <= cfg.PingInterval {
		cfg.PongWait = 2 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	h := &FeedHandler{service: svc, cfg: cfg, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *FeedHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, "*") || slices.Contains(h.cfg.AllowedOrigins, origin)
}

// ServeHTTP handles GET /api/v1/prefs/feed
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		return
	}

	c := &feedConn{
		id:     uuid.NewString(),
		conn:   conn,
		cfg:    h.cfg,
		send:   make(chan []byte, h.cfg.SendBuffer),
		done:   make(chan struct{}),
		logger: logger.FromContext(r.Context()),
	}
	if c.logger == slog.Default() {
		c.logger = h.logger
	}

	feedConnections.Inc()
	defer feedConnections.Dec()

	c.logger.Info("feed client connected", slog.String("connection_id", c.id))

	unsubItems := h.service.SubscribeToChanges(func(s domain.Snapshot) {
		c.enqueue(MessageItemsChanged, s)
	})
	unsubFilters := h.service.SubscribeToFilterChanges(func(f domain.FilterState) {
		c.enqueue(MessageFiltersChanged, f)
	})

	go c.writePump()
	c.readPump()

	unsubItems()
	unsubFilters()
	c.close()

	c.logger.Info("feed client disconnected", slog.String("connection_id", c.id))
}

type feedConn struct {
	id     string
	conn   *websocket.Conn
	cfg    FeedConfig
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func (c *feedConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// enqueue runs inside the service's subscriber call and must not block.
func (c *feedConn) enqueue(msgType string, data any) {
	payload, err := json.Marshal(FeedMessage{Type: msgType, Data: data, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		c.logger.Error("failed to encode feed message",
			slog.String("connection_id", c.id),
			slog.String("error", err.Error()),
		)
		return
	}

	select {
	case <-c.done:
	case c.send <- payload:
	default:
		c.logger.Warn("feed client too slow, closing connection", slog.String("connection_id", c.id))
		c.close()
	}
}

// readPump discards client messages and returns once the connection fails
// or the client goes quiet past the pong deadline.
func (c *feedConn) readPump() {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedConn) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
