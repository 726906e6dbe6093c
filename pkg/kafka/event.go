package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TopicPrefix namespaces every topic this module publishes to.
const TopicPrefix = "fynspo"

// Topic builds a topic name such as "fynspo.prefs.items_changed".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

// Event is the envelope written to Kafka. Key selects the partition, so every
// event sharing a key is delivered in Sequence order.
type Event struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Key           string            `json:"key"`
	Sequence      uint64            `json:"sequence"`
	Source        string            `json:"source"`
	OccurredAt    time.Time         `json:"occurred_at"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// NewEvent encodes payload into a fresh envelope.
func NewEvent(eventType, key, source string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		Source:     source,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// WithSequence stamps the position of the event in its key's stream.
func (e *Event) WithSequence(seq uint64) *Event {
	e.Sequence = seq
	return e
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithAttribute adds a free-form string attribute.
func (e *Event) WithAttribute(key, value string) *Event {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// Encode returns the wire form of the event.
func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses an envelope previously produced by Encode.
func DecodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// DecodePayload unmarshals the payload into target.
func (e *Event) DecodePayload(target any) error {
	return json.Unmarshal(e.Payload, target)
}
