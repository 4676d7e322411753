package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cinebook/internal/logger"
	"cinebook/internal/models"
	"cinebook/internal/search"

	"github.com/nats-io/stan.go"
)

// BookingIndex is the write side of the bookings search index.
// *search.ElasticsearchClient implements it.
type BookingIndex interface {
	IndexBooking(ctx context.Context, doc *search.BookingDocument) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status models.BookingStatus, promotionID *int64, at time.Time) error
	DeleteBooking(ctx context.Context, bookingID int64) error
}

// errMalformed marks events that can never be processed and must not be redelivered
var errMalformed = errors.New("malformed event")

type Handlers struct {
	index   BookingIndex
	timeout time.Duration
}

func NewHandlers(index BookingIndex) *Handlers {
	return &Handlers{index: index, timeout: 10 * time.Second}
}

// ack adapts an event handler to stan. Processed and malformed messages are
// acknowledged; index failures are left unacked so the server redelivers them.
func (h *Handlers) ack(subject string, handle func(ctx context.Context, data []byte) error) stan.MsgHandler {
	return func(m *stan.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		log := logger.WithFields("subject", subject, "sequence", m.Sequence)

		err := handle(ctx, m.Data)
		switch {
		case err == nil:
		case errors.Is(err, errMalformed):
			log.Error("Dropping malformed booking event", "error", err)
		default:
			log.Error("Failed to index booking event", "error", err, "redelivered", m.Redelivered)
			return
		}

		if err := m.Ack(); err != nil {
			log.Error("Failed to ack booking event", "error", err)
		}
	}
}

func (h *Handlers) HandleBookingCreated(ctx context.Context, data []byte) error {
	var event models.BookingCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil || event.BookingID == 0 {
		return fmt.Errorf("%w: booking.created: %v", errMalformed, err)
	}

	logger.Get().Debug("Indexing created booking", "booking_id", event.BookingID)

	return h.index.IndexBooking(ctx, &search.BookingDocument{
		BookingID:   event.BookingID,
		UserID:      event.UserID,
		Status:      event.Status,
		PromotionID: event.PromotionID,
		ShowtimeIDs: event.ShowtimeIDs,
		TicketCount: event.TicketCount,
		CreatedAt:   event.Timestamp,
		UpdatedAt:   event.Timestamp,
	})
}

func (h *Handlers) HandleBookingUpdated(ctx context.Context, data []byte) error {
	var event models.BookingUpdatedEvent
	if err := json.Unmarshal(data, &event); err != nil || event.BookingID == 0 {
		return fmt.Errorf("%w: booking.updated: %v", errMalformed, err)
	}

	logger.Get().Debug("Updating indexed booking", "booking_id", event.BookingID, "status", event.Status, "reason", event.Reason)

	return h.index.UpdateBookingStatus(ctx, event.BookingID, event.Status, event.PromotionID, event.Timestamp)
}

func (h *Handlers) HandleBookingDeleted(ctx context.Context, data []byte) error {
	var event models.BookingDeletedEvent
	if err := json.Unmarshal(data, &event); err != nil || event.BookingID == 0 {
		return fmt.Errorf("%w: booking.deleted: %v", errMalformed, err)
	}

	logger.Get().Debug("Removing indexed booking", "booking_id", event.BookingID)

	return h.index.DeleteBooking(ctx, event.BookingID)
}
