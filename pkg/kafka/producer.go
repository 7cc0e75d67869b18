package kafka

import (
	"context"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	kafka_config "slotly/pkg/kafka/config"
	"slotly/pkg/logger"
)

// Producer is a thin wrapper over kafka-go's Writer with envelope
// construction and structured logging.
type Producer struct {
	writer *kafkago.Writer
	source string
	log    *logger.Logger

	mu     sync.RWMutex
	closed bool
}

func NewProducer(cfg *kafka_config.Config, source string, log *logger.Logger) *Producer {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		MaxAttempts:  cfg.ProducerMaxAttempts,
		BatchTimeout: cfg.ProducerBatchTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.ProducerRequireAcks),
		Compression:  compressionCodec(cfg.ProducerCompression),
		Async:        cfg.ProducerAsync,
	}

	return &Producer{
		writer: writer,
		source: source,
		log:    log,
	}
}

func compressionCodec(name string) kafkago.Compression {
	switch name {
	case "gzip":
		return kafkago.Gzip
	case "snappy":
		return kafkago.Snappy
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	default:
		return 0
	}
}

// Publish wraps the payload in an envelope and writes it to the topic.
// The key keeps events for the same entity on one partition.
func (p *Producer) Publish(ctx context.Context, topic, key, eventType string, payload any) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrProducerClosed
	}
	p.mu.RUnlock()

	msg, err := NewMessage(topic, key, eventType, p.source, payload)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg.toKafkaMessage()); err != nil {
		p.log.Error("Failed to publish event",
			"topic", topic,
			"event_type", eventType,
			"event_id", msg.EventID,
			"error", err,
		)
		return NewTransientError(topic, "failed to write message", err)
	}

	p.log.Debug("Event published",
		"topic", topic,
		"event_type", eventType,
		"event_id", msg.EventID,
		"key", key,
	)

	return nil
}

func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.writer.Close()
}
