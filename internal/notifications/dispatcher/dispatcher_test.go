package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"slotly/internal/notifications/email"
	"slotly/pkg/events"
	"slotly/pkg/kafka"
	"slotly/pkg/logger"
)

type fakePusher struct {
	sent      []any
	connected bool
}

func (p *fakePusher) Send(userID string, payload any) bool {
	p.sent = append(p.sent, payload)
	return p.connected
}

type fakeEnqueuer struct {
	jobs []*email.Job
	err  error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, job *email.Job) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, job)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
}

func message(t *testing.T, eventType string, payload any) *kafka.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return &kafka.Message{
		Topic:     events.TopicBookingEvents,
		EventID:   "test-event",
		EventType: eventType,
		Payload:   data,
	}
}

func createdEvent() *events.BookingCreated {
	start := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	return &events.BookingCreated{
		BookingID:    "65c000000000000000000001",
		ResourceID:   "65a000000000000000000001",
		ResourceName: "Conference Room A",
		UserID:       "65b000000000000000000001",
		UserEmail:    "alice@example.com",
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
	}
}

func TestHandle_CreatedPushesAndEnqueues(t *testing.T) {
	pusher := &fakePusher{connected: true}
	queue := &fakeEnqueuer{}
	d := NewDispatcher(pusher, queue, testLogger())

	err := d.Handle(context.Background(), message(t, events.TypeBookingCreated, createdEvent()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(pusher.sent) != 1 {
		t.Fatalf("expected 1 websocket push, got %d", len(pusher.sent))
	}
	notification, ok := pusher.sent[0].(*Notification)
	if !ok {
		t.Fatalf("expected *Notification payload, got %T", pusher.sent[0])
	}
	if notification.Type != events.TypeBookingCreated {
		t.Fatalf("unexpected notification type %q", notification.Type)
	}
	if !strings.Contains(notification.Message, "Conference Room A") {
		t.Fatalf("message should name the resource, got %q", notification.Message)
	}

	if len(queue.jobs) != 1 {
		t.Fatalf("expected 1 email job, got %d", len(queue.jobs))
	}
	if queue.jobs[0].To != "alice@example.com" {
		t.Fatalf("unexpected recipient %q", queue.jobs[0].To)
	}
	if queue.jobs[0].Subject != "Booking confirmed" {
		t.Fatalf("unexpected subject %q", queue.jobs[0].Subject)
	}
}

func TestHandle_CancelledEnqueues(t *testing.T) {
	pusher := &fakePusher{}
	queue := &fakeEnqueuer{}
	d := NewDispatcher(pusher, queue, testLogger())

	event := &events.BookingCancelled{
		BookingID:  "65c000000000000000000001",
		ResourceID: "65a000000000000000000001",
		UserID:     "65b000000000000000000001",
		UserEmail:  "alice@example.com",
		StartTime:  time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 10, 1, 11, 0, 0, 0, time.UTC),
	}
	err := d.Handle(context.Background(), message(t, events.TypeBookingCancelled, event))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queue.jobs) != 1 {
		t.Fatalf("expected 1 email job, got %d", len(queue.jobs))
	}
	if queue.jobs[0].Subject != "Booking cancelled" {
		t.Fatalf("unexpected subject %q", queue.jobs[0].Subject)
	}
	if !strings.Contains(queue.jobs[0].Body, "a resource") {
		t.Fatalf("body should fall back to a generic name, got %q", queue.jobs[0].Body)
	}
}

func TestHandle_NoWebsocketConnectionStillEmails(t *testing.T) {
	pusher := &fakePusher{connected: false}
	queue := &fakeEnqueuer{}
	d := NewDispatcher(pusher, queue, testLogger())

	err := d.Handle(context.Background(), message(t, events.TypeBookingCreated, createdEvent()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue.jobs) != 1 {
		t.Fatalf("expected 1 email job, got %d", len(queue.jobs))
	}
}

func TestHandle_EmptyEmailSkipsQueue(t *testing.T) {
	pusher := &fakePusher{connected: true}
	queue := &fakeEnqueuer{}
	d := NewDispatcher(pusher, queue, testLogger())

	event := createdEvent()
	event.UserEmail = ""
	err := d.Handle(context.Background(), message(t, events.TypeBookingCreated, event))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue.jobs) != 0 {
		t.Fatalf("expected no email jobs, got %d", len(queue.jobs))
	}
}

func TestHandle_EnqueueFailureIsTransient(t *testing.T) {
	pusher := &fakePusher{}
	queue := &fakeEnqueuer{err: errors.New("redis down")}
	d := NewDispatcher(pusher, queue, testLogger())

	err := d.Handle(context.Background(), message(t, events.TypeBookingCreated, createdEvent()))
	if err == nil {
		t.Fatal("expected error when enqueue fails")
	}

	var kafkaErr *kafka.KafkaError
	if !errors.As(err, &kafkaErr) {
		t.Fatalf("expected KafkaError, got %T", err)
	}
	if kafkaErr.Type != kafka.ErrorTypeTransient {
		t.Fatal("enqueue failure should be transient so the consumer retries")
	}
}

func TestHandle_UnknownEventTypeIgnored(t *testing.T) {
	pusher := &fakePusher{connected: true}
	queue := &fakeEnqueuer{}
	d := NewDispatcher(pusher, queue, testLogger())

	err := d.Handle(context.Background(), message(t, "booking.rescheduled", createdEvent()))
	if err != nil {
		t.Fatalf("unknown event types should be skipped, got %v", err)
	}
	if len(pusher.sent) != 0 || len(queue.jobs) != 0 {
		t.Fatal("unknown event types should not be dispatched")
	}
}

func TestHandle_MalformedPayloadReturnsError(t *testing.T) {
	d := NewDispatcher(&fakePusher{}, &fakeEnqueuer{}, testLogger())

	msg := &kafka.Message{
		Topic:     events.TopicBookingEvents,
		EventID:   "test-event",
		EventType: events.TypeBookingCreated,
		Payload:   []byte("{not json"),
	}
	if err := d.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
