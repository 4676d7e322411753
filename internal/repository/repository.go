package repository

import (
	"context"
	"database/sql"

	"cinebook/internal/database"
)

type Repositories struct {
	Showtimes *ShowtimeRepository
	Seats     *SeatRepository
	Bookings  *BookingRepository
	Tickets   *TicketRepository
}

func NewRepositories(db database.Querier) *Repositories {
	return &Repositories{
		Showtimes: NewShowtimeRepository(db),
		Seats:     NewSeatRepository(db),
		Bookings:  NewBookingRepository(db),
		Tickets:   NewTicketRepository(db),
	}
}

// WithTx returns repositories whose statements run inside tx
func (r *Repositories) WithTx(tx *sql.Tx) *Repositories {
	return NewRepositories(tx)
}

// queryRows retries transient failures when q is the pool itself. Inside a
// transaction a failed statement aborts the tx, so there is nothing to retry.
func queryRows(ctx context.Context, q database.Querier, query string, args ...any) (*sql.Rows, error) {
	if db, ok := q.(*database.DB); ok {
		return db.QueryWithRetry(ctx, query, args...)
	}
	return q.QueryContext(ctx, query, args...)
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
