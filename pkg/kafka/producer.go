package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Message header names.
const (
	HeaderEventType     = "event_type"
	HeaderSource        = "source"
	HeaderSequence      = "sequence"
	HeaderCorrelationID = "correlation_id"
)

// ProducerConfig holds Kafka producer configuration.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks kafka.RequiredAcks
}

// DefaultProducerConfig returns defaults tuned for a low, bursty event rate:
// small batches flushed quickly, acknowledged by the partition leader.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    16,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
}

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes event envelopes.
type Producer struct {
	writer MessageWriter
	logger *slog.Logger
}

// NewProducer creates a synchronous producer writing to cfg.Brokers.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           cfg.RequiredAcks,
		AllowAutoTopicCreation: true,
	}
	return NewProducerWithWriter(w, logger)
}

// NewProducerWithWriter builds a producer around an existing writer.
func NewProducerWithWriter(w MessageWriter, logger *slog.Logger) *Producer {
	return &Producer{writer: w, logger: logger}
}

// Publish writes event to topic, keyed by event.Key. The caller's trace
// context is injected into the message headers.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) (err error) {
	start := time.Now()
	defer func() { observePublish(topic, time.Since(start).Seconds(), err) }()

	if event == nil {
		return errors.New("publish: nil event")
	}

	value, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.Key),
		Value: value,
		Time:  event.OccurredAt,
	}
	headers := HeaderCarrier{Headers: &msg.Headers}
	headers.Set(HeaderEventType, event.Type)
	headers.Set(HeaderSource, event.Source)
	headers.Set(HeaderSequence, strconv.FormatUint(event.Sequence, 10))
	if event.CorrelationID != "" {
		headers.Set(HeaderCorrelationID, event.CorrelationID)
	}
	otel.GetTextMapPropagator().Inject(ctx, headers)

	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to %s: %w", event.Type, topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_id", event.ID),
		slog.Uint64("sequence", event.Sequence),
	)
	return nil
}

// PingBrokers dials the given brokers and returns nil if at least one answers
// a metadata request.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}

	var errs []error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("kafka: no broker reachable: %w", errors.Join(errs...))
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
