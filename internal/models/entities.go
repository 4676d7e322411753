package models

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Valid reports whether s is one of the known booking statuses
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo implements PENDING -> CONFIRMED and PENDING|CONFIRMED -> CANCELLED.
// Nothing returns to PENDING and CANCELLED is terminal. Re-applying the
// current status is a no-op and always allowed.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCancelled
	}
	return false
}

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "ACTIVE"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// DefaultTicketTypeID is the Regular ticket type
const DefaultTicketTypeID int64 = 1

// Showtime is a scheduled screening of a movie on a screen
type Showtime struct {
	ID           int64     `json:"showtime_id" db:"showtime_id"`
	MovieID      int64     `json:"movie_id" db:"movie_id"`
	ScreenID     int64     `json:"screen_id" db:"screen_id"`
	StartTime    time.Time `json:"start_time" db:"start_time"`
	EndTime      time.Time `json:"end_time" db:"end_time"`
	BasePrice    string    `json:"base_price" db:"base_price"`
	IsAccessible bool      `json:"is_accessible" db:"is_accessible"`
}

// ShowtimeListing is a showtime joined with its screen, theater and cinema
type ShowtimeListing struct {
	Showtime
	ScreenName  string `json:"screen_name"`
	ScreenType  string `json:"screen_type"`
	TheaterID   int64  `json:"theater_id"`
	TheaterName string `json:"theater_name"`
	CinemaID    int64  `json:"cinema_id"`
	CinemaName  string `json:"cinema_name"`
	City        string `json:"city"`
}

// Seat is a bookable position within a screen
type Seat struct {
	ID              int64   `json:"seat_id" db:"seat_id"`
	ScreenID        int64   `json:"screen_id" db:"screen_id"`
	Row             string  `json:"seat_row" db:"seat_row"`
	Number          int     `json:"seat_number" db:"seat_number"`
	SeatType        string  `json:"seat_type" db:"seat_type"`
	PriceMultiplier float64 `json:"price_multiplier" db:"price_multiplier"`
	IsAccessible    bool    `json:"is_accessible" db:"is_accessible"`
}

// Code returns the row+number designator, e.g. "A1"
func (s Seat) Code() string {
	return fmt.Sprintf("%s%d", s.Row, s.Number)
}

// Booking is a user's order of one or more tickets
type Booking struct {
	ID          int64         `json:"booking_id" db:"booking_id"`
	UserID      int64         `json:"users_id" db:"users_id"`
	Status      BookingStatus `json:"booking_status" db:"booking_status"`
	PromotionID *int64        `json:"promotion_id" db:"promotion_id"`
	CreatedAt   time.Time     `json:"booking_date" db:"booking_date"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
	Tickets     []Ticket      `json:"tickets,omitempty"` // Not from DB, filled separately
}

// Ticket binds one seat for one showtime to one booking
type Ticket struct {
	ID           int64        `json:"ticket_id" db:"ticket_id"`
	BookingID    int64        `json:"booking_id" db:"booking_id"`
	ShowtimeID   int64        `json:"showtime_id" db:"showtime_id"`
	UserID       int64        `json:"users_id" db:"users_id"`
	SeatID       int64        `json:"seat_id" db:"seat_id"`
	TicketTypeID int64        `json:"ticket_type_id" db:"ticket_type_id"`
	Status       TicketStatus `json:"ticket_status" db:"ticket_status"`
	Code         string       `json:"ticket_code" db:"ticket_code"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// BookingListItem is a booking decorated for the admin list
type BookingListItem struct {
	Booking
	Username    string `json:"username"`
	PromoCode   string `json:"promo_code"`
	MovieTitle  string `json:"movie_title"`
	TicketCount int    `json:"ticket_count"`
}
