package repository

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"cinebook/internal/database"
	"cinebook/internal/models"
)

type BookingRepository struct {
	db database.Querier
}

func NewBookingRepository(db database.Querier) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `booking_id, users_id, booking_status, promotion_id, booking_date, updated_at`

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (users_id, booking_status, promotion_id)
		VALUES ($1, $2, $3)
		RETURNING booking_id, booking_date, updated_at`

	return r.db.QueryRowContext(ctx, query,
		booking.UserID,
		booking.Status,
		booking.PromotionID,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_id = $1`
	return scanBooking(r.db.QueryRowContext(ctx, query, id))
}

// GetForUpdate reads the booking and locks its row until the transaction ends
func (r *BookingRepository) GetForUpdate(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_id = $1 FOR UPDATE`
	return scanBooking(r.db.QueryRowContext(ctx, query, id))
}

func scanBooking(row *sql.Row) (*models.Booking, error) {
	booking := &models.Booking{}
	var promotionID sql.NullInt64

	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.Status,
		&promotionID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	booking.PromotionID = nullableID(promotionID)
	return booking, nil
}

// List returns bookings newest first, decorated with the username, the promo
// code and the movie title of the first ticket's showtime.
func (r *BookingRepository) List(ctx context.Context, filter models.ListBookingsFilter) ([]models.BookingListItem, error) {
	var args []any
	query := `
		SELECT b.booking_id, b.users_id, b.booking_status, b.promotion_id, b.booking_date, b.updated_at,
		       COALESCE(u.username, ''), COALESCE(p.promo_code, 'None'), COALESCE(m.title, 'N/A'),
		       (SELECT COUNT(*) FROM tickets tc WHERE tc.booking_id = b.booking_id)
		FROM bookings b
		LEFT JOIN users u ON u.users_id = b.users_id
		LEFT JOIN promotions p ON p.promotion_id = b.promotion_id
		LEFT JOIN LATERAL (
			SELECT t.showtime_id FROM tickets t
			WHERE t.booking_id = b.booking_id
			ORDER BY t.ticket_id
			LIMIT 1
		) ft ON TRUE
		LEFT JOIN showtimes s ON s.showtime_id = ft.showtime_id
		LEFT JOIN movies m ON m.movie_id = s.movie_id`

	if filter.UserID != nil {
		query += ` WHERE b.users_id = $1`
		args = append(args, *filter.UserID)
	}
	query += ` ORDER BY b.booking_date DESC, b.booking_id DESC`

	rows, err := queryRows(ctx, r.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.BookingListItem{}
	for rows.Next() {
		var item models.BookingListItem
		var promotionID sql.NullInt64
		err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Status,
			&promotionID,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.Username,
			&item.PromoCode,
			&item.MovieTitle,
			&item.TicketCount,
		)
		if err != nil {
			return nil, err
		}
		item.PromotionID = nullableID(promotionID)
		items = append(items, item)
	}

	return items, rows.Err()
}

// Update writes status and promotion. When the new status is CANCELLED the
// booking's ACTIVE tickets are cancelled by the same statement, which frees
// their seats. Returns nil when the booking does not exist.
func (r *BookingRepository) Update(ctx context.Context, id int64, status models.BookingStatus, promotionID *int64) (*models.Booking, error) {
	query := `
		WITH updated AS (
			UPDATE bookings
			SET booking_status = $2, promotion_id = $3, updated_at = NOW()
			WHERE booking_id = $1
			RETURNING ` + bookingColumns + `
		), cancelled AS (
			UPDATE tickets SET ticket_status = 'CANCELLED'
			WHERE booking_id IN (SELECT booking_id FROM updated WHERE booking_status = 'CANCELLED')
			  AND ticket_status = 'ACTIVE'
		)
		SELECT ` + bookingColumns + ` FROM updated`

	return scanBooking(r.db.QueryRowContext(ctx, query, id, status, promotionID))
}

// Delete removes the booking row and reports whether it existed. Tickets must
// be removed first (see TicketRepository.DeleteByBooking) inside the same tx.
func (r *BookingRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE booking_id = $1`, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExpiredBooking is a PENDING booking cancelled by CancelPendingBefore
type ExpiredBooking struct {
	BookingID   int64
	PromotionID *int64
	ShowtimeIDs []int64
}

// CancelPendingBefore cancels PENDING bookings created before cutoff together
// with their ACTIVE tickets, in one statement.
func (r *BookingRepository) CancelPendingBefore(ctx context.Context, cutoff time.Time) ([]ExpiredBooking, error) {
	query := `
		WITH expired AS (
			UPDATE bookings
			SET booking_status = 'CANCELLED', updated_at = NOW()
			WHERE booking_status = 'PENDING' AND booking_date < $1
			RETURNING booking_id, promotion_id
		), cancelled AS (
			UPDATE tickets t
			SET ticket_status = 'CANCELLED'
			FROM expired e
			WHERE t.booking_id = e.booking_id AND t.ticket_status = 'ACTIVE'
			RETURNING t.booking_id, t.showtime_id
		)
		SELECT e.booking_id, e.promotion_id, c.showtime_id
		FROM expired e
		LEFT JOIN cancelled c ON c.booking_id = e.booking_id
		ORDER BY e.booking_id`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []ExpiredBooking
	for rows.Next() {
		var bookingID int64
		var promotionID, showtimeID sql.NullInt64
		if err := rows.Scan(&bookingID, &promotionID, &showtimeID); err != nil {
			return nil, err
		}

		if n := len(expired); n == 0 || expired[n-1].BookingID != bookingID {
			e := ExpiredBooking{BookingID: bookingID}
			if promotionID.Valid {
				e.PromotionID = &promotionID.Int64
			}
			expired = append(expired, e)
		}
		if showtimeID.Valid {
			last := &expired[len(expired)-1]
			if !slices.Contains(last.ShowtimeIDs, showtimeID.Int64) {
				last.ShowtimeIDs = append(last.ShowtimeIDs, showtimeID.Int64)
			}
		}
	}

	return expired, rows.Err()
}
