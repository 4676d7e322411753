package errors

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Error kinds returned by the booking core. Callers match them with errors.Is.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrSeatAlreadyBooked = errors.New("seat already booked")
	ErrStorage           = errors.New("storage error")
	ErrTimeout           = errors.New("timeout")
)

// PostgreSQL error codes we classify explicitly.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqStringTooLong       = "22001"
	pqNumericOutOfRange   = "22003"
	pqQueryCanceled       = "57014"
)

// ActiveSeatIndex is the partial unique index guarding one ACTIVE ticket per seat and showtime.
const ActiveSeatIndex = "tickets_active_seat_uidx"

// TicketCodeIndex is the unique constraint on tickets.ticket_code.
const TicketCodeIndex = "tickets_ticket_code_key"

// Error carries a kind from the taxonomy plus the resource and cause that produced it.
type Error struct {
	Kind     error
	Resource string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// InvalidRequest reports malformed or incomplete input.
func InvalidRequest(format string, args ...any) *Error {
	return &Error{Kind: ErrInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing resource such as NotFound("Showtime", 3).
func NotFound(resource string, id any) *Error {
	return &Error{
		Kind:     ErrNotFound,
		Resource: resource,
		Message:  fmt.Sprintf("%s %v not found", resource, id),
	}
}

// SeatAlreadyBooked reports an occupancy conflict for the seat designator the client sent.
func SeatAlreadyBooked(designator string) *Error {
	return &Error{
		Kind:     ErrSeatAlreadyBooked,
		Resource: "Seat",
		Message:  fmt.Sprintf("seat %s is already booked for this showtime", designator),
	}
}

// Storage wraps an unexpected data-store failure.
func Storage(op string, err error) *Error {
	return &Error{Kind: ErrStorage, Message: op, Err: err}
}

// Classify maps a driver error onto the taxonomy. Errors already classified pass through.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: ErrTimeout, Message: op, Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case ActiveSeatIndex:
				return &Error{Kind: ErrSeatAlreadyBooked, Resource: "Seat", Message: "seat is already booked for this showtime", Err: err}
			case TicketCodeIndex:
				return &Error{Kind: ErrInvalidRequest, Resource: "Ticket", Message: "ticket code already in use", Err: err}
			}
		case pqForeignKeyViolation:
			return &Error{Kind: ErrInvalidRequest, Message: "referenced record does not exist", Err: err}
		case pqStringTooLong, pqNumericOutOfRange:
			return &Error{Kind: ErrInvalidRequest, Message: "value out of range", Err: err}
		case pqQueryCanceled:
			return &Error{Kind: ErrTimeout, Message: op, Err: err}
		}
	}

	return Storage(op, err)
}

// Resource returns the resource name attached to err, if any.
func Resource(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Resource
	}
	return ""
}
