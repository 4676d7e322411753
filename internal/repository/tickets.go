package repository

import (
	"context"
	"database/sql"

	"cinebook/internal/database"
	"cinebook/internal/models"
)

type TicketRepository struct {
	db database.Querier
}

func NewTicketRepository(db database.Querier) *TicketRepository {
	return &TicketRepository{db: db}
}

// InsertActive inserts an ACTIVE ticket only if no ACTIVE ticket holds the
// same seat for the same showtime. It returns false when the seat is taken.
// Two concurrent inserts that both pass the NOT EXISTS check are serialised
// by tickets_active_seat_uidx; the loser gets a unique violation.
func (r *TicketRepository) InsertActive(ctx context.Context, ticket *models.Ticket) (bool, error) {
	query := `
		INSERT INTO tickets (booking_id, showtime_id, users_id, seat_id, ticket_type_id, ticket_status, ticket_code)
		SELECT $1::integer, $2::integer, $3::integer, $4::integer, $5::integer, 'ACTIVE', $6::varchar
		WHERE NOT EXISTS (
			SELECT 1 FROM tickets
			WHERE showtime_id = $2::integer AND seat_id = $4::integer AND ticket_status = 'ACTIVE'
		)
		RETURNING ticket_id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		ticket.BookingID,
		ticket.ShowtimeID,
		ticket.UserID,
		ticket.SeatID,
		ticket.TicketTypeID,
		ticket.Code,
	).Scan(&ticket.ID, &ticket.CreatedAt)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	ticket.Status = models.TicketStatusActive
	return true, nil
}

func (r *TicketRepository) GetByCode(ctx context.Context, code string) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `
		SELECT ticket_id, booking_id, showtime_id, users_id, seat_id, ticket_type_id,
		       ticket_status, ticket_code, created_at
		FROM tickets
		WHERE ticket_code = $1`

	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&ticket.ID,
		&ticket.BookingID,
		&ticket.ShowtimeID,
		&ticket.UserID,
		&ticket.SeatID,
		&ticket.TicketTypeID,
		&ticket.Status,
		&ticket.Code,
		&ticket.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ticket, nil
}

// ListByBooking returns the booking's tickets in insertion order
func (r *TicketRepository) ListByBooking(ctx context.Context, bookingID int64) ([]models.Ticket, error) {
	query := `
		SELECT ticket_id, booking_id, showtime_id, users_id, seat_id, ticket_type_id,
		       ticket_status, ticket_code, created_at
		FROM tickets
		WHERE booking_id = $1
		ORDER BY ticket_id`

	rows, err := queryRows(ctx, r.db, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		var t models.Ticket
		err := rows.Scan(
			&t.ID,
			&t.BookingID,
			&t.ShowtimeID,
			&t.UserID,
			&t.SeatID,
			&t.TicketTypeID,
			&t.Status,
			&t.Code,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

// ShowtimeIDsByBooking returns the distinct showtimes the booking holds tickets for
func (r *TicketRepository) ShowtimeIDsByBooking(ctx context.Context, bookingID int64) ([]int64, error) {
	query := `SELECT DISTINCT showtime_id FROM tickets WHERE booking_id = $1 ORDER BY showtime_id`

	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DeleteByBooking removes every ticket of the booking
func (r *TicketRepository) DeleteByBooking(ctx context.Context, bookingID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE booking_id = $1`, bookingID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
