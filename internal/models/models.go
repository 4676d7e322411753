package models

// TicketRequest is one seat/showtime assignment inside a booking request
type TicketRequest struct {
	ShowtimeID   int64        `json:"showtime_id"`
	SeatID       SeatRef      `json:"seat_id"`
	TicketTypeID *int64       `json:"ticket_type_id,omitempty"`
	TicketCode   string       `json:"ticket_code,omitempty"`
	TicketStatus TicketStatus `json:"ticket_status,omitempty"`
}

// CreateBookingRequest is the POST /api/bookings payload
type CreateBookingRequest struct {
	UserID      *int64          `json:"users_id"`
	PromotionID *int64          `json:"promotion_id,omitempty"`
	Status      BookingStatus   `json:"booking_status,omitempty"`
	Tickets     []TicketRequest `json:"tickets"`
}

// UpdateBookingRequest is the PUT /api/bookings/:id payload. Absent fields are
// left unchanged; promotion_id 0 clears the promotion.
type UpdateBookingRequest struct {
	Status      *BookingStatus `json:"booking_status,omitempty"`
	PromotionID *int64         `json:"promotion_id,omitempty"`
}

// ListBookingsFilter narrows GET /api/bookings
type ListBookingsFilter struct {
	UserID *int64
}

// SeatMapResponse lists the occupied seat codes of a showtime
type SeatMapResponse struct {
	ShowtimeID    int64    `json:"showtime_id"`
	OccupiedSeats []string `json:"occupied_seats"`
}

// BookingReport summarises bookings by status
type BookingReport struct {
	TotalBookings int64            `json:"total_bookings"`
	TotalTickets  int64            `json:"total_tickets"`
	ByStatus      map[string]int64 `json:"by_status"`
}
