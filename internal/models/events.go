package models

import "time"

// NATS subjects for booking lifecycle events
const (
	EventBookingCreated = "booking.created"
	EventBookingUpdated = "booking.updated"
	EventBookingDeleted = "booking.deleted"
)

// BookingCreatedEvent is published after a booking transaction commits
type BookingCreatedEvent struct {
	BookingID   int64         `json:"booking_id"`
	UserID      int64         `json:"users_id"`
	PromotionID *int64        `json:"promotion_id,omitempty"`
	Status      BookingStatus `json:"booking_status"`
	ShowtimeIDs []int64       `json:"showtime_ids"`
	TicketCount int           `json:"ticket_count"`
	Timestamp   time.Time     `json:"timestamp"`
}

// BookingUpdatedEvent is published after a status or promotion change
type BookingUpdatedEvent struct {
	BookingID   int64         `json:"booking_id"`
	Status      BookingStatus `json:"booking_status"`
	PromotionID *int64        `json:"promotion_id,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

// BookingDeletedEvent is published after a booking and its tickets are removed
type BookingDeletedEvent struct {
	BookingID int64     `json:"booking_id"`
	Timestamp time.Time `json:"timestamp"`
}
