package events

import "time"

// TopicBookingEvents carries every booking lifecycle event. Messages are
// keyed by resource id so events for one resource arrive in order.
const TopicBookingEvents = "booking-events"

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
)

// BookingCreated is published after a booking is committed.
type BookingCreated struct {
	BookingID    string    `json:"booking_id"`
	ResourceID   string    `json:"resource_id"`
	ResourceName string    `json:"resource_name"`
	UserID       string    `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}

// BookingCancelled is published after a booking transitions to cancelled.
type BookingCancelled struct {
	BookingID    string    `json:"booking_id"`
	ResourceID   string    `json:"resource_id"`
	ResourceName string    `json:"resource_name"`
	UserID       string    `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
}
