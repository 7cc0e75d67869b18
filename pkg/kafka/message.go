package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
	HeaderSource    = "source"
	HeaderTimestamp = "timestamp"
)

// Message is the envelope every event travels in. Key controls partition
// assignment so events for the same entity stay ordered.
type Message struct {
	Topic     string
	Key       string
	EventID   string
	EventType string
	Source    string
	Timestamp time.Time
	Payload   []byte
}

// NewMessage builds an envelope around a JSON-encodable payload.
func NewMessage(topic, key, eventType, source string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, NewPermanentError(topic, "failed to marshal payload", err)
	}

	return &Message{
		Topic:     topic,
		Key:       key,
		EventID:   uuid.NewString(),
		EventType: eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

func (m *Message) toKafkaMessage() kafkago.Message {
	return kafkago.Message{
		Topic: m.Topic,
		Key:   []byte(m.Key),
		Value: m.Payload,
		Headers: []kafkago.Header{
			{Key: HeaderEventID, Value: []byte(m.EventID)},
			{Key: HeaderEventType, Value: []byte(m.EventType)},
			{Key: HeaderSource, Value: []byte(m.Source)},
			{Key: HeaderTimestamp, Value: []byte(m.Timestamp.Format(time.RFC3339Nano))},
		},
	}
}

func fromKafkaMessage(km kafkago.Message) *Message {
	msg := &Message{
		Topic:   km.Topic,
		Key:     string(km.Key),
		Payload: km.Value,
	}

	for _, header := range km.Headers {
		switch header.Key {
		case HeaderEventID:
			msg.EventID = string(header.Value)
		case HeaderEventType:
			msg.EventType = string(header.Value)
		case HeaderSource:
			msg.Source = string(header.Value)
		case HeaderTimestamp:
			if ts, err := time.Parse(time.RFC3339Nano, string(header.Value)); err == nil {
				msg.Timestamp = ts
			}
		}
	}

	return msg
}

// UnmarshalPayload decodes the message payload into v.
func (m *Message) UnmarshalPayload(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return NewPermanentError(m.Topic, "failed to unmarshal payload", err)
	}
	return nil
}
