package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	kafka_config "slotly/pkg/kafka/config"
	"slotly/pkg/logger"
)

// HandlerFunc processes one consumed message. Returning an error marks
// the attempt failed; transient errors are retried up to the configured
// maximum before the message is dropped.
type HandlerFunc func(ctx context.Context, msg *Message) error

// Consumer reads a topic inside a consumer group and dispatches each
// message to a handler, committing offsets only after processing.
type Consumer struct {
	reader     *kafkago.Reader
	handler    HandlerFunc
	maxRetries int
	log        *logger.Logger

	mu     sync.Mutex
	closed bool
}

func NewConsumer(cfg *kafka_config.Config, topic, groupID string, handler HandlerFunc, log *logger.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		StartOffset:    cfg.ConsumerStartOffset,
		MinBytes:       cfg.ConsumerMinBytes,
		MaxBytes:       cfg.ConsumerMaxBytes,
		MaxWait:        cfg.ConsumerMaxWait,
		CommitInterval: cfg.ConsumerCommitInterval,
	})

	return &Consumer{
		reader:     reader,
		handler:    handler,
		maxRetries: cfg.ConsumerMaxRetries,
		log:        log,
	}
}

// Run consumes until ctx is cancelled or the consumer is closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("Consumer started",
		"topic", c.reader.Config().Topic,
		"group_id", c.reader.Config().GroupID,
	)

	for {
		km, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				c.log.Info("Consumer stopping", "topic", c.reader.Config().Topic)
				return nil
			}
			c.log.Error("Failed to fetch message", "topic", c.reader.Config().Topic, "error", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(1 * time.Second):
				continue
			}
		}

		c.processMessage(ctx, km)

		if err := c.reader.CommitMessages(ctx, km); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error("Failed to commit offset",
				"topic", km.Topic,
				"partition", km.Partition,
				"offset", km.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, km kafkago.Message) {
	msg := fromKafkaMessage(km)

	var err error
	for attempt := 0; ; attempt++ {
		err = c.handler(ctx, msg)
		if err == nil {
			c.log.Debug("Message processed",
				"topic", msg.Topic,
				"event_type", msg.EventType,
				"event_id", msg.EventID,
			)
			return
		}

		if !ShouldRetry(err, attempt+1, c.maxRetries) {
			break
		}

		c.log.Warn("Message handler failed, retrying",
			"topic", msg.Topic,
			"event_id", msg.EventID,
			"attempt", attempt+1,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoffFor(attempt)):
		}
	}

	c.log.Error("Message dropped after handler failure",
		"topic", msg.Topic,
		"event_type", msg.EventType,
		"event_id", msg.EventID,
		"error", err,
	)
}

func backoffFor(attempt int) time.Duration {
	backoff := 100 * time.Millisecond << uint(attempt)
	if backoff > 5*time.Second {
		backoff = 5 * time.Second
	}
	return backoff
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	return c.reader.Close()
}

// Lag reports how far behind the consumer group is on its topic.
func (c *Consumer) Lag() int64 {
	return c.reader.Lag()
}
