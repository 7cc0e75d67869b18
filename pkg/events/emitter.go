package events

import (
	"context"

	"slotly/pkg/kafka"
	"slotly/pkg/logger"
)

// Emitter publishes booking lifecycle events. Emission is best effort:
// a broker failure is logged and never surfaces to the caller, so a
// booking operation cannot fail because notifications are down.
type Emitter interface {
	BookingCreated(ctx context.Context, event *BookingCreated)
	BookingCancelled(ctx context.Context, event *BookingCancelled)
}

type publisher interface {
	Publish(ctx context.Context, topic, key, eventType string, payload any) error
}

type kafkaEmitter struct {
	producer publisher
	log      *logger.Logger
}

func NewKafkaEmitter(producer *kafka.Producer, log *logger.Logger) Emitter {
	return &kafkaEmitter{
		producer: producer,
		log:      log,
	}
}

func (e *kafkaEmitter) BookingCreated(ctx context.Context, event *BookingCreated) {
	e.emit(ctx, TypeBookingCreated, event.ResourceID, event.BookingID, event)
}

func (e *kafkaEmitter) BookingCancelled(ctx context.Context, event *BookingCancelled) {
	e.emit(ctx, TypeBookingCancelled, event.ResourceID, event.BookingID, event)
}

func (e *kafkaEmitter) emit(ctx context.Context, eventType, key, bookingID string, payload any) {
	if err := e.producer.Publish(ctx, TopicBookingEvents, key, eventType, payload); err != nil {
		e.log.Error("Failed to emit booking event",
			"event_type", eventType,
			"booking_id", bookingID,
			"error", err,
		)
	}
}

// NopEmitter discards every event. Used when no broker is configured.
type NopEmitter struct{}

func (NopEmitter) BookingCreated(ctx context.Context, event *BookingCreated)     {}
func (NopEmitter) BookingCancelled(ctx context.Context, event *BookingCancelled) {}
