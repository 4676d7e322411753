package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"cinebook/internal/database"
	apperrors "cinebook/internal/errors"
	"cinebook/internal/logger"
	"cinebook/internal/metrics"
	"cinebook/internal/models"
	"cinebook/internal/repository"
)

const (
	ticketCodePrefix   = "TKT"
	ticketCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	ticketCodeLength   = 6

	// column limits: ids are INTEGER, ticket_code is VARCHAR(32)
	maxID             = math.MaxInt32
	maxTicketCodeSize = 32
)

type BookingService struct {
	db        *database.DB
	repos     *repository.Repositories
	resolver  *SeatResolver
	publisher Publisher
	cache     SeatMapCache
	metrics   *metrics.Metrics
	txTimeout time.Duration
	newCode   func() (string, error)
}

func NewBookingService(db *database.DB, repos *repository.Repositories, resolver *SeatResolver, publisher Publisher, cache SeatMapCache, m *metrics.Metrics, txTimeout time.Duration) *BookingService {
	return &BookingService{
		db:        db,
		repos:     repos,
		resolver:  resolver,
		publisher: publisher,
		cache:     cache,
		metrics:   m,
		txTimeout: txTimeout,
		newCode:   generateTicketCode,
	}
}

// generateTicketCode returns "TKT" followed by 6 random characters from A-Z0-9
func generateTicketCode() (string, error) {
	buf := make([]byte, ticketCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate ticket code: %w", err)
	}
	for i, b := range buf {
		buf[i] = ticketCodeAlphabet[int(b)%len(ticketCodeAlphabet)]
	}
	return ticketCodePrefix + string(buf), nil
}

func validateCreate(req *models.CreateBookingRequest) (models.BookingStatus, error) {
	if req.UserID == nil || *req.UserID <= 0 {
		return "", apperrors.InvalidRequest("users_id is required")
	}
	if *req.UserID > maxID {
		return "", apperrors.InvalidRequest("users_id %d is out of range", *req.UserID)
	}
	if req.PromotionID != nil && (*req.PromotionID <= 0 || *req.PromotionID > maxID) {
		return "", apperrors.InvalidRequest("invalid promotion_id %d", *req.PromotionID)
	}
	if len(req.Tickets) == 0 {
		return "", apperrors.InvalidRequest("at least one ticket is required")
	}

	status := req.Status
	if status == "" {
		status = models.BookingStatusPending
	}
	if !status.Valid() {
		return "", apperrors.InvalidRequest("invalid booking_status %q", req.Status)
	}
	// a new booking always gets ACTIVE tickets, which a cancelled booking cannot hold
	if status == models.BookingStatusCancelled {
		return "", apperrors.InvalidRequest("booking_status %s is not allowed on create", status)
	}

	for i, t := range req.Tickets {
		if t.ShowtimeID <= 0 {
			return "", apperrors.InvalidRequest("tickets[%d].showtime_id is required", i)
		}
		if t.ShowtimeID > maxID {
			return "", apperrors.InvalidRequest("tickets[%d].showtime_id %d is out of range", i, t.ShowtimeID)
		}
		if t.SeatID.IsZero() {
			return "", apperrors.InvalidRequest("tickets[%d].seat_id is required", i)
		}
		if t.SeatID.ID > maxID || t.SeatID.Number > maxID {
			return "", apperrors.InvalidRequest("tickets[%d].seat_id %s is out of range", i, t.SeatID)
		}
		if t.TicketTypeID != nil && (*t.TicketTypeID <= 0 || *t.TicketTypeID > maxID) {
			return "", apperrors.InvalidRequest("tickets[%d].ticket_type_id must be a positive id", i)
		}
		if len(t.TicketCode) > maxTicketCodeSize {
			return "", apperrors.InvalidRequest("tickets[%d].ticket_code exceeds %d characters", i, maxTicketCodeSize)
		}
		if t.TicketStatus != "" && t.TicketStatus != models.TicketStatusActive {
			return "", apperrors.InvalidRequest("tickets[%d].ticket_status must be ACTIVE", i)
		}
	}

	return status, nil
}

// Create persists the booking and all of its tickets in one transaction.
// Tickets are inserted in request order. If any ticket cannot be resolved or
// its seat is already held by an ACTIVE ticket, nothing is written.
func (s *BookingService) Create(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error) {
	status, err := validateCreate(req)
	if err != nil {
		s.metrics.BookingsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	booking := &models.Booking{
		UserID:      *req.UserID,
		Status:      status,
		PromotionID: req.PromotionID,
	}

	start := time.Now()
	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		repos := s.repos.WithTx(tx)

		if err := repos.Bookings.Create(ctx, booking); err != nil {
			return apperrors.Classify("insert booking", err)
		}

		resolver := s.resolver.begin(repos)
		tickets := make([]models.Ticket, 0, len(req.Tickets))

		for _, tr := range req.Tickets {
			showtime, seatID, err := resolver.Resolve(ctx, tr.ShowtimeID, tr.SeatID)
			if err != nil {
				return err
			}

			ticket := models.Ticket{
				BookingID:    booking.ID,
				ShowtimeID:   showtime.ID,
				UserID:       booking.UserID,
				SeatID:       seatID,
				TicketTypeID: models.DefaultTicketTypeID,
				Code:         tr.TicketCode,
			}
			if tr.TicketTypeID != nil {
				ticket.TicketTypeID = *tr.TicketTypeID
			}
			if ticket.Code == "" {
				if ticket.Code, err = s.newCode(); err != nil {
					return apperrors.Storage("generate ticket code", err)
				}
			}

			inserted, err := repos.Tickets.InsertActive(ctx, &ticket)
			if err != nil {
				err = apperrors.Classify("insert ticket", err)
				if errors.Is(err, apperrors.ErrSeatAlreadyBooked) {
					return apperrors.SeatAlreadyBooked(tr.SeatID.String())
				}
				return err
			}
			if !inserted {
				return apperrors.SeatAlreadyBooked(tr.SeatID.String())
			}

			tickets = append(tickets, ticket)
		}

		booking.Tickets = tickets
		return nil
	})

	if err != nil {
		err = apperrors.Classify("create booking", err)
		s.metrics.ObserveBooking(bookingOutcome(err), time.Since(start))
		logger.WithContext(ctx).Warn("Booking rejected",
			"users_id", booking.UserID,
			"tickets", len(req.Tickets),
			"error", err)
		return nil, err
	}

	s.metrics.ObserveBooking(metrics.OutcomeCreated, time.Since(start))

	showtimeIDs := make([]int64, len(booking.Tickets))
	for i, t := range booking.Tickets {
		showtimeIDs[i] = t.ShowtimeID
	}
	showtimeIDs = uniqueIDs(showtimeIDs)

	// The booking is durable from here on; cache and event failures are only logged
	s.invalidateSeatMaps(ctx, showtimeIDs)
	s.publish(ctx, models.EventBookingCreated, booking.ID, models.BookingCreatedEvent{
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		PromotionID: booking.PromotionID,
		Status:      booking.Status,
		ShowtimeIDs: showtimeIDs,
		TicketCount: len(booking.Tickets),
		Timestamp:   time.Now(),
	})

	logger.WithContext(ctx).Info("Booking created",
		"booking_id", booking.ID,
		"users_id", booking.UserID,
		"tickets", len(booking.Tickets))

	return booking, nil
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrSeatAlreadyBooked):
		return metrics.OutcomeSeatConflict
	case errors.Is(err, apperrors.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return metrics.OutcomeInvalid
	case errors.Is(err, apperrors.ErrTimeout):
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeStorageError
}

// Get returns the booking with its tickets in insertion order
func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.repos.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Classify("get booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("Booking", id)
	}

	tickets, err := s.repos.Tickets.ListByBooking(ctx, id)
	if err != nil {
		return nil, apperrors.Classify("list tickets", err)
	}
	booking.Tickets = tickets

	return booking, nil
}

func (s *BookingService) List(ctx context.Context, filter models.ListBookingsFilter) ([]models.BookingListItem, error) {
	items, err := s.repos.Bookings.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Classify("list bookings", err)
	}
	return items, nil
}

// Update changes status and/or promotion. Cancelling releases the booking's seats.
func (s *BookingService) Update(ctx context.Context, id int64, req *models.UpdateBookingRequest) (*models.Booking, error) {
	if req.Status == nil && req.PromotionID == nil {
		return nil, apperrors.InvalidRequest("booking_status or promotion_id is required")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, apperrors.InvalidRequest("invalid booking_status %q", *req.Status)
	}
	if req.PromotionID != nil && (*req.PromotionID < 0 || *req.PromotionID > maxID) {
		return nil, apperrors.InvalidRequest("invalid promotion_id %d", *req.PromotionID)
	}

	var (
		updated     *models.Booking
		previous    models.BookingStatus
		showtimeIDs []int64
	)

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		repos := s.repos.WithTx(tx)

		current, err := repos.Bookings.GetForUpdate(ctx, id)
		if err != nil {
			return apperrors.Classify("lock booking", err)
		}
		if current == nil {
			return apperrors.NotFound("Booking", id)
		}
		previous = current.Status

		status := current.Status
		if req.Status != nil {
			status = *req.Status
		}
		if !current.Status.CanTransitionTo(status) {
			return apperrors.InvalidRequest("cannot change booking status from %s to %s", current.Status, status)
		}

		promotionID := current.PromotionID
		if req.PromotionID != nil {
			promotionID = req.PromotionID
			if *req.PromotionID == 0 {
				promotionID = nil
			}
		}

		if status == models.BookingStatusCancelled && previous != models.BookingStatusCancelled {
			if showtimeIDs, err = repos.Tickets.ShowtimeIDsByBooking(ctx, id); err != nil {
				return apperrors.Classify("list booking showtimes", err)
			}
		}

		updated, err = repos.Bookings.Update(ctx, id, status, promotionID)
		if err != nil {
			return apperrors.Classify("update booking", err)
		}
		if updated == nil {
			return apperrors.NotFound("Booking", id)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Classify("update booking", err)
	}

	s.invalidateSeatMaps(ctx, showtimeIDs)
	s.publish(ctx, models.EventBookingUpdated, id, models.BookingUpdatedEvent{
		BookingID:   id,
		Status:      updated.Status,
		PromotionID: updated.PromotionID,
		Timestamp:   time.Now(),
	})

	logger.WithContext(ctx).Info("Booking updated",
		"booking_id", id,
		"from_status", previous,
		"to_status", updated.Status)

	return updated, nil
}

// Delete removes the tickets and then the booking in one transaction
func (s *BookingService) Delete(ctx context.Context, id int64) error {
	var showtimeIDs []int64

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		repos := s.repos.WithTx(tx)

		var err error
		if showtimeIDs, err = repos.Tickets.ShowtimeIDsByBooking(ctx, id); err != nil {
			return apperrors.Classify("list booking showtimes", err)
		}

		if _, err := repos.Tickets.DeleteByBooking(ctx, id); err != nil {
			return apperrors.Classify("delete tickets", err)
		}

		deleted, err := repos.Bookings.Delete(ctx, id)
		if err != nil {
			return apperrors.Classify("delete booking", err)
		}
		if !deleted {
			return apperrors.NotFound("Booking", id)
		}
		return nil
	})
	if err != nil {
		return apperrors.Classify("delete booking", err)
	}

	s.invalidateSeatMaps(ctx, showtimeIDs)
	s.publish(ctx, models.EventBookingDeleted, id, models.BookingDeletedEvent{
		BookingID: id,
		Timestamp: time.Now(),
	})

	logger.WithContext(ctx).Info("Booking deleted", "booking_id", id)
	return nil
}

// ExpirePending cancels PENDING bookings older than ttl and returns how many
// were cancelled.
func (s *BookingService) ExpirePending(ctx context.Context, ttl time.Duration) (int, error) {
	expired, err := s.repos.Bookings.CancelPendingBefore(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, apperrors.Classify("expire pending bookings", err)
	}

	for _, e := range expired {
		s.invalidateSeatMaps(ctx, e.ShowtimeIDs)
		s.publish(ctx, models.EventBookingUpdated, e.BookingID, models.BookingUpdatedEvent{
			BookingID:   e.BookingID,
			Status:      models.BookingStatusCancelled,
			PromotionID: e.PromotionID,
			Reason:      "expired",
			Timestamp:   time.Now(),
		})
	}

	return len(expired), nil
}

func (s *BookingService) invalidateSeatMaps(ctx context.Context, showtimeIDs []int64) {
	if s.cache == nil || len(showtimeIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, showtimeIDs...); err != nil {
		logger.WithContext(ctx).Error("Failed to invalidate seat map cache",
			"error", err,
			"showtime_ids", showtimeIDs)
	}
}

func (s *BookingService) publish(ctx context.Context, subject string, bookingID int64, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, event); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish booking event",
			"error", err,
			"booking_id", bookingID,
			"event_type", subject)
	}
}
