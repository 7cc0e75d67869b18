package kafka

import (
	"errors"
	"fmt"
)

var (
	ErrProducerClosed   = errors.New("producer is closed")
	ErrConsumerClosed   = errors.New("consumer is closed")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrPermanentFailure = errors.New("permanent failure, message will not be retried")
)

type ErrorType int

const (
	ErrorTypeTransient ErrorType = iota
	ErrorTypePermanent
)

// KafkaError wraps a broker or handler failure with enough context to
// decide whether the message should be retried.
type KafkaError struct {
	Type    ErrorType
	Topic   string
	Message string
	Err     error
}

func (e *KafkaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kafka error on topic %s: %s: %v", e.Topic, e.Message, e.Err)
	}
	return fmt.Sprintf("kafka error on topic %s: %s", e.Topic, e.Message)
}

func (e *KafkaError) Unwrap() error {
	return e.Err
}

func NewTransientError(topic, message string, err error) *KafkaError {
	return &KafkaError{
		Type:    ErrorTypeTransient,
		Topic:   topic,
		Message: message,
		Err:     err,
	}
}

func NewPermanentError(topic, message string, err error) *KafkaError {
	return &KafkaError{
		Type:    ErrorTypePermanent,
		Topic:   topic,
		Message: message,
		Err:     err,
	}
}

// ShouldRetry reports whether a failed delivery attempt should be tried
// again given how many attempts have already been made.
func ShouldRetry(err error, attempts, maxRetries int) bool {
	if err == nil {
		return false
	}
	if attempts >= maxRetries {
		return false
	}
	if errors.Is(err, ErrPermanentFailure) {
		return false
	}

	var kafkaErr *KafkaError
	if errors.As(err, &kafkaErr) {
		return kafkaErr.Type == ErrorTypeTransient
	}

	return true
}
