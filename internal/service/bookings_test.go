package service

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	apperrors "cinebook/internal/errors"
	"cinebook/internal/metrics"
	"cinebook/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectBookingInsert(mock sqlmock.Sqlmock, bookingID, userID int64, status string) {
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(userID, status, nil).
		WillReturnRows(sqlmock.NewRows(bookingInsertCols).AddRow(bookingID, fixedNow, fixedNow))
}

func expectShowtime(mock sqlmock.Sqlmock, showtimeID, screenID int64) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM showtimes")).
		WithArgs(showtimeID).
		WillReturnRows(sqlmock.NewRows(showtimeCols).
			AddRow(showtimeID, 1, screenID, fixedNow, fixedNow.Add(2*time.Hour), "12.00", true))
}

func expectShowtimeMissing(mock sqlmock.Sqlmock, showtimeID int64) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM showtimes")).
		WithArgs(showtimeID).
		WillReturnRows(sqlmock.NewRows(showtimeCols))
}

func expectSeat(mock sqlmock.Sqlmock, screenID int64, row string, number int, seatID int64) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM seats")).
		WithArgs(screenID, row, number).
		WillReturnRows(sqlmock.NewRows(seatCols).AddRow(seatID, screenID, row, number, "Regular", 1.0, false))
}

func expectSeatMissing(mock sqlmock.Sqlmock, screenID int64, row string, number int) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM seats")).
		WithArgs(screenID, row, number).
		WillReturnRows(sqlmock.NewRows(seatCols))
}

func expectTicketInsert(mock sqlmock.Sqlmock, bookingID, showtimeID, userID, seatID int64, code string, ticketID int64) {
	mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS")).
		WithArgs(bookingID, showtimeID, userID, seatID, int64(1), code).
		WillReturnRows(sqlmock.NewRows(ticketInsertCols).AddRow(ticketID, fixedNow))
}

func expectTicketConflict(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS")).
		WillReturnRows(sqlmock.NewRows(ticketInsertCols))
}

func TestCreateBookingForFreeSeat(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 10, 1, "PENDING")
	expectShowtime(f.mock, 5, 2)
	expectSeat(f.mock, 2, "A", 1, 77)
	expectTicketInsert(f.mock, 10, 5, 1, 77, "TKT000001", 300)
	f.mock.ExpectCommit()

	booking, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(5, "A1")))
	require.NoError(t, err)

	assert.Equal(t, int64(10), booking.ID)
	assert.Equal(t, models.BookingStatusPending, booking.Status)
	require.Len(t, booking.Tickets, 1)
	assert.Equal(t, int64(77), booking.Tickets[0].SeatID)
	assert.Equal(t, models.TicketStatusActive, booking.Tickets[0].Status)
	assert.Equal(t, "TKT000001", booking.Tickets[0].Code)

	assert.Equal(t, []string{models.EventBookingCreated}, f.pub.subjects)
	assert.Equal(t, []int64{5}, f.cache.invalidated)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.BookingsTotal.WithLabelValues(metrics.OutcomeCreated)))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingSeatAlreadyBooked(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 11, 1, "PENDING")
	expectShowtime(f.mock, 5, 2)
	expectSeat(f.mock, 2, "A", 1, 77)
	expectTicketConflict(f.mock)
	f.mock.ExpectRollback()

	booking, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(5, "A1")))
	assert.Nil(t, booking)
	assert.True(t, errors.Is(err, apperrors.ErrSeatAlreadyBooked))
	assert.Contains(t, err.Error(), "A1")

	assert.Empty(t, f.pub.subjects)
	assert.Empty(t, f.cache.invalidated)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.BookingsTotal.WithLabelValues(metrics.OutcomeSeatConflict)))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingConcurrentInsertLosesOnUniqueIndex(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 12, 1, "PENDING")
	expectShowtime(f.mock, 5, 2)
	expectSeat(f.mock, 2, "B", 4, 90)
	f.mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: apperrors.ActiveSeatIndex})
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(5, "B4")))
	assert.True(t, errors.Is(err, apperrors.ErrSeatAlreadyBooked))
	assert.Contains(t, err.Error(), "B4")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingRollsBackAllTicketsOnConflict(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 13, 1, "CONFIRMED")
	expectShowtime(f.mock, 5, 2)
	expectSeat(f.mock, 2, "A", 2, 78)
	expectTicketInsert(f.mock, 13, 5, 1, 78, "TKT000001", 301)
	expectSeat(f.mock, 2, "A", 1, 77)
	expectTicketConflict(f.mock)
	f.mock.ExpectRollback()

	req := bookingRequest(1, seatCode(5, "A2"), seatCode(5, "A1"))
	req.Status = models.BookingStatusConfirmed

	_, err := f.svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, apperrors.ErrSeatAlreadyBooked))
	assert.Empty(t, f.pub.subjects)
	// No commit was issued, so the first ticket and the booking row are gone
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingProvisionsDemoShowtimeOnce(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 14, 1, "PENDING")
	expectShowtimeMissing(f.mock, 99)
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO showtimes")).
		WithArgs(int64(1), int64(1), fixedNow, fixedNow.Add(120*time.Minute), "10.00", true).
		WillReturnRows(sqlmock.NewRows([]string{"showtime_id"}).AddRow(123))
	expectSeatMissing(f.mock, 1, "A", 1)
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO seats")).
		WithArgs(int64(1), "A", 1, "Regular", 1.0, false).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(500))
	expectTicketInsert(f.mock, 14, 123, 1, 500, "TKT000001", 310)
	// Same demo id again: resolved from the first provisioning, no second showtime
	expectSeatMissing(f.mock, 1, "A", 2)
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO seats")).
		WithArgs(int64(1), "A", 2, "Regular", 1.0, false).
		WillReturnRows(sqlmock.NewRows([]string{"seat_id"}).AddRow(501))
	expectTicketInsert(f.mock, 14, 123, 1, 501, "TKT000002", 311)
	f.mock.ExpectCommit()

	booking, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(99, "A1"), seatCode(99, "A2")))
	require.NoError(t, err)

	require.Len(t, booking.Tickets, 2)
	assert.Equal(t, int64(123), booking.Tickets[0].ShowtimeID)
	assert.Equal(t, int64(123), booking.Tickets[1].ShowtimeID)
	// Request order is kept
	assert.Equal(t, []int64{500, 501}, []int64{booking.Tickets[0].SeatID, booking.Tickets[1].SeatID})
	assert.Less(t, booking.Tickets[0].ID, booking.Tickets[1].ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.DemoProvisioned.WithLabelValues("showtime")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.m.DemoProvisioned.WithLabelValues("seat")))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingUnknownShowtimeBelowThreshold(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 15, 1, "PENDING")
	expectShowtimeMissing(f.mock, 3)
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(3, "A1")))
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, "Showtime", apperrors.Resource(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingUnknownShowtimeWithoutDemoSeeding(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 16, 1, "PENDING")
	expectShowtimeMissing(f.mock, 99)
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(99, "A1")))
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, "Showtime", apperrors.Resource(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingUnknownSeatCodeWithoutDemoSeeding(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 17, 1, "PENDING")
	expectShowtime(f.mock, 5, 2)
	expectSeatMissing(f.mock, 2, "Z", 9)
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(5, "Z9")))
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, "Seat", apperrors.Resource(err))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingNumericSeatSkipsLookup(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 18, 1, "PENDING")
	expectShowtime(f.mock, 5, 2)
	f.mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS")).
		WithArgs(int64(18), int64(5), int64(1), int64(42), int64(2), "MYCODE").
		WillReturnRows(sqlmock.NewRows(ticketInsertCols).AddRow(320, fixedNow))
	f.mock.ExpectCommit()

	req := bookingRequest(1, models.TicketRequest{
		ShowtimeID:   5,
		SeatID:       models.SeatByID(42),
		TicketTypeID: int64Ptr(2),
		TicketCode:   "MYCODE",
	})

	booking, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), booking.Tickets[0].TicketTypeID)
	assert.Equal(t, "MYCODE", booking.Tickets[0].Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingUnknownSeatIDIsInvalid(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 19, 1, "PENDING")
	expectShowtime(f.mock, 5, 2)
	f.mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS")).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "tickets_seat_id_fkey"})
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), bookingRequest(1, models.TicketRequest{ShowtimeID: 5, SeatID: models.SeatByID(4242)}))
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *models.CreateBookingRequest
	}{
		{"missing user", &models.CreateBookingRequest{Tickets: []models.TicketRequest{seatCode(5, "A1")}}},
		{"no tickets", bookingRequest(1)},
		{"bad status", &models.CreateBookingRequest{UserID: int64Ptr(1), Status: "PAID", Tickets: []models.TicketRequest{seatCode(5, "A1")}}},
		{"missing showtime", bookingRequest(1, models.TicketRequest{SeatID: models.SeatByID(1)})},
		{"missing seat", bookingRequest(1, models.TicketRequest{ShowtimeID: 5})},
		{"cancelled ticket", bookingRequest(1, models.TicketRequest{ShowtimeID: 5, SeatID: models.SeatByID(1), TicketStatus: models.TicketStatusCancelled})},
		{"cancelled booking", &models.CreateBookingRequest{UserID: int64Ptr(1), Status: models.BookingStatusCancelled, Tickets: []models.TicketRequest{seatCode(5, "A1")}}},
		{"user out of range", bookingRequest(math.MaxInt32+1, seatCode(5, "A1"))},
		{"promotion out of range", &models.CreateBookingRequest{UserID: int64Ptr(1), PromotionID: int64Ptr(1 << 40), Tickets: []models.TicketRequest{seatCode(5, "A1")}}},
		{"showtime out of range", bookingRequest(1, models.TicketRequest{ShowtimeID: math.MaxInt32 + 1, SeatID: models.SeatByID(1)})},
		{"seat id out of range", bookingRequest(1, models.TicketRequest{ShowtimeID: 5, SeatID: models.SeatByID(math.MaxInt64)})},
		{"seat number out of range", bookingRequest(1, models.TicketRequest{ShowtimeID: 5, SeatID: models.SeatByCode("A", math.MaxInt32+1)})},
		{"ticket type out of range", bookingRequest(1, models.TicketRequest{ShowtimeID: 5, SeatID: models.SeatByID(1), TicketTypeID: int64Ptr(math.MaxInt32 + 1)})},
		{"ticket code too long", bookingRequest(1, models.TicketRequest{ShowtimeID: 5, SeatID: models.SeatByID(1), TicketCode: strings.Repeat("X", 33)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t, demoPolicy)

			_, err := f.svc.Create(context.Background(), tt.req)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))
			// No transaction was opened
			assert.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestCreateBookingStorageFailure(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnError(errors.New("connection reset by peer"))
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(5, "A1")))
	assert.True(t, errors.Is(err, apperrors.ErrStorage))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.BookingsTotal.WithLabelValues(metrics.OutcomeStorageError)))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCreateBookingCommitFailure(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 20, 1, "PENDING")
	expectShowtime(f.mock, 5, 2)
	expectSeat(f.mock, 2, "A", 1, 77)
	expectTicketInsert(f.mock, 20, 5, 1, 77, "TKT000001", 330)
	f.mock.ExpectCommit().WillReturnError(errors.New("server closed the connection"))

	_, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(5, "A1")))
	assert.True(t, errors.Is(err, apperrors.ErrStorage))
	assert.Empty(t, f.pub.subjects)
}

func TestCreateBookingPublishFailureIsNotFatal(t *testing.T) {
	f := newBookingFixture(t, DemoPolicy{ShowtimeThreshold: 10})
	f.pub.err = errors.New("nats down")

	f.mock.ExpectBegin()
	expectBookingInsert(f.mock, 21, 1, "PENDING")
	expectShowtime(f.mock, 5, 2)
	expectSeat(f.mock, 2, "C", 3, 80)
	expectTicketInsert(f.mock, 21, 5, 1, 80, "TKT000001", 340)
	f.mock.ExpectCommit()

	booking, err := f.svc.Create(context.Background(), bookingRequest(1, seatCode(5, "C3")))
	require.NoError(t, err)
	assert.Equal(t, int64(21), booking.ID)
}

func TestGenerateTicketCode(t *testing.T) {
	code, err := generateTicketCode()
	require.NoError(t, err)
	assert.Regexp(t, `^TKT[A-Z0-9]{6}$`, code)
}

func TestGetBooking(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)

	f.mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(10, 1, "CONFIRMED", 2, fixedNow, fixedNow))
	f.mock.ExpectQuery(regexp.QuoteMeta("ORDER BY ticket_id")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"ticket_id", "booking_id", "showtime_id", "users_id", "seat_id", "ticket_type_id", "ticket_status", "ticket_code", "created_at"}).
			AddRow(300, 10, 5, 1, 77, 1, "ACTIVE", "TKTAAAAAA", fixedNow).
			AddRow(301, 10, 5, 1, 78, 1, "ACTIVE", "TKTBBBBBB", fixedNow))

	booking, err := f.svc.Get(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *booking.PromotionID)
	require.Len(t, booking.Tickets, 2)
	assert.Equal(t, "TKTAAAAAA", booking.Tickets[0].Code)
}

func TestDeleteBookingCascades(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT showtime_id FROM tickets")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"showtime_id"}).AddRow(5))
	f.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tickets WHERE booking_id = $1")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	f.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE booking_id = $1")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	require.NoError(t, f.svc.Delete(context.Background(), 10))
	assert.Equal(t, []int64{5}, f.cache.invalidated)
	assert.Equal(t, []string{models.EventBookingDeleted}, f.pub.subjects)

	f.mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = $1")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := f.svc.Get(context.Background(), 10)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDeleteMissingBooking(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT showtime_id FROM tickets")).
		WillReturnRows(sqlmock.NewRows([]string{"showtime_id"}))
	f.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tickets")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectRollback()

	err := f.svc.Delete(context.Background(), 404)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Empty(t, f.pub.subjects)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateBookingCancelReleasesSeats(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)
	cancelled := models.BookingStatusCancelled

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(10, 1, "CONFIRMED", 2, fixedNow, fixedNow))
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT showtime_id FROM tickets")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"showtime_id"}).AddRow(5).AddRow(6))
	f.mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets SET ticket_status = 'CANCELLED'")).
		WithArgs(int64(10), "CANCELLED", int64(2)).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(10, 1, "CANCELLED", 2, fixedNow, fixedNow))
	f.mock.ExpectCommit()

	booking, err := f.svc.Update(context.Background(), 10, &models.UpdateBookingRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, booking.Status)
	assert.Equal(t, []int64{5, 6}, f.cache.invalidated)
	assert.Equal(t, []string{models.EventBookingUpdated}, f.pub.subjects)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateBookingClearsPromotion(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(10, 1, "PENDING", 2, fixedNow, fixedNow))
	f.mock.ExpectQuery(regexp.QuoteMeta("WITH updated AS")).
		WithArgs(int64(10), "PENDING", nil).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(10, 1, "PENDING", nil, fixedNow, fixedNow))
	f.mock.ExpectCommit()

	booking, err := f.svc.Update(context.Background(), 10, &models.UpdateBookingRequest{PromotionID: int64Ptr(0)})
	require.NoError(t, err)
	assert.Nil(t, booking.PromotionID)
	assert.Empty(t, f.cache.invalidated)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateBookingRejectsInvalidTransition(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)
	pending := models.BookingStatusPending

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(10, 1, "CONFIRMED", nil, fixedNow, fixedNow))
	f.mock.ExpectRollback()

	_, err := f.svc.Update(context.Background(), 10, &models.UpdateBookingRequest{Status: &pending})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))
	assert.Empty(t, f.pub.subjects)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateMissingBooking(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)
	confirmed := models.BookingStatusConfirmed

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(bookingCols))
	f.mock.ExpectRollback()

	_, err := f.svc.Update(context.Background(), 404, &models.UpdateBookingRequest{Status: &confirmed})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUpdateBookingRequiresAField(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)

	_, err := f.svc.Update(context.Background(), 10, &models.UpdateBookingRequest{})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))
}

func TestUpdateBookingRejectsOutOfRangePromotion(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)

	_, err := f.svc.Update(context.Background(), 10, &models.UpdateBookingRequest{PromotionID: int64Ptr(math.MaxInt32 + 1)})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestExpirePending(t *testing.T) {
	f := newBookingFixture(t, demoPolicy)

	f.mock.ExpectQuery(regexp.QuoteMeta("WHERE booking_status = 'PENDING' AND booking_date < $1")).
		WillReturnRows(sqlmock.NewRows([]string{"booking_id", "promotion_id", "showtime_id"}).
			AddRow(3, 7, 5).
			AddRow(4, nil, nil))

	n, err := f.svc.ExpirePending(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{5}, f.cache.invalidated)
	assert.Equal(t, []string{models.EventBookingUpdated, models.EventBookingUpdated}, f.pub.subjects)

	event := f.pub.events[0].(models.BookingUpdatedEvent)
	assert.Equal(t, "expired", event.Reason)
	assert.Equal(t, models.BookingStatusCancelled, event.Status)
	// the index keeps the promotion of an expired booking
	require.NotNil(t, event.PromotionID)
	assert.Equal(t, int64(7), *event.PromotionID)

	event = f.pub.events[1].(models.BookingUpdatedEvent)
	assert.Nil(t, event.PromotionID)
}
