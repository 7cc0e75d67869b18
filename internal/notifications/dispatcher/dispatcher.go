package dispatcher

import (
	"context"
	"fmt"
	"time"

	"slotly/internal/notifications/email"
	"slotly/pkg/events"
	"slotly/pkg/kafka"
	"slotly/pkg/logger"
)

// Pusher is the websocket side of delivery.
type Pusher interface {
	Send(userID string, payload any) bool
}

// Enqueuer is the email side of delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *email.Job) error
}

// Notification is the payload pushed over the websocket.
type Notification struct {
	Type         string    `json:"type"`
	BookingID    string    `json:"booking_id"`
	ResourceID   string    `json:"resource_id"`
	ResourceName string    `json:"resource_name,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Message      string    `json:"message"`
}

// Dispatcher turns booking events into websocket pushes and email jobs.
// Both channels are best effort; only a failed email enqueue is retried,
// since a missing websocket connection just means nobody is listening.
type Dispatcher struct {
	pusher Pusher
	queue  Enqueuer
	log    *logger.Logger
}

func NewDispatcher(pusher Pusher, queue Enqueuer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		pusher: pusher,
		queue:  queue,
		log:    log,
	}
}

// Handle is the kafka consumer callback for the booking events topic.
func (d *Dispatcher) Handle(ctx context.Context, msg *kafka.Message) error {
	switch msg.EventType {
	case events.TypeBookingCreated:
		var event events.BookingCreated
		if err := msg.UnmarshalPayload(&event); err != nil {
			d.log.Error("Dropping malformed booking.created event", "event_id", msg.EventID, "error", err)
			return err
		}
		return d.dispatchCreated(ctx, &event)

	case events.TypeBookingCancelled:
		var event events.BookingCancelled
		if err := msg.UnmarshalPayload(&event); err != nil {
			d.log.Error("Dropping malformed booking.cancelled event", "event_id", msg.EventID, "error", err)
			return err
		}
		return d.dispatchCancelled(ctx, &event)

	default:
		d.log.Warn("Ignoring unknown event type", "event_type", msg.EventType, "event_id", msg.EventID)
		return nil
	}
}

func (d *Dispatcher) dispatchCreated(ctx context.Context, event *events.BookingCreated) error {
	notification := &Notification{
		Type:         events.TypeBookingCreated,
		BookingID:    event.BookingID,
		ResourceID:   event.ResourceID,
		ResourceName: event.ResourceName,
		StartTime:    event.StartTime,
		EndTime:      event.EndTime,
		Message:      fmt.Sprintf("Your booking of %s is confirmed", d.describeResource(event.ResourceName)),
	}

	if !d.pusher.Send(event.UserID, notification) {
		d.log.Debug("No websocket connection for user", "user_id", event.UserID)
	}

	return d.enqueueEmail(ctx, event.UserEmail, &email.Job{
		To:      event.UserEmail,
		Subject: "Booking confirmed",
		Body: fmt.Sprintf(
			"Your booking of %s from %s to %s is confirmed.",
			d.describeResource(event.ResourceName),
			event.StartTime.Format(time.RFC1123),
			event.EndTime.Format(time.RFC1123),
		),
	})
}

func (d *Dispatcher) dispatchCancelled(ctx context.Context, event *events.BookingCancelled) error {
	notification := &Notification{
		Type:         events.TypeBookingCancelled,
		BookingID:    event.BookingID,
		ResourceID:   event.ResourceID,
		ResourceName: event.ResourceName,
		StartTime:    event.StartTime,
		EndTime:      event.EndTime,
		Message:      fmt.Sprintf("Your booking of %s was cancelled", d.describeResource(event.ResourceName)),
	}

	if !d.pusher.Send(event.UserID, notification) {
		d.log.Debug("No websocket connection for user", "user_id", event.UserID)
	}

	return d.enqueueEmail(ctx, event.UserEmail, &email.Job{
		To:      event.UserEmail,
		Subject: "Booking cancelled",
		Body: fmt.Sprintf(
			"Your booking of %s from %s to %s was cancelled.",
			d.describeResource(event.ResourceName),
			event.StartTime.Format(time.RFC1123),
			event.EndTime.Format(time.RFC1123),
		),
	})
}

// enqueueEmail skips events that carry no address and reports queue failures
// as transient so the consumer retries them.
func (d *Dispatcher) enqueueEmail(ctx context.Context, to string, job *email.Job) error {
	if to == "" {
		return nil
	}

	if err := d.queue.Enqueue(ctx, job); err != nil {
		d.log.Error("Failed to enqueue notification email", "to", to, "error", err)
		return kafka.NewTransientError(events.TopicBookingEvents, "failed to enqueue email", err)
	}
	return nil
}

func (d *Dispatcher) describeResource(name string) string {
	if name == "" {
		return "a resource"
	}
	return name
}
