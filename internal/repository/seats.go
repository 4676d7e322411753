package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cinebook/internal/database"
	"cinebook/internal/models"
)

type SeatRepository struct {
	db database.Querier
}

func NewSeatRepository(db database.Querier) *SeatRepository {
	return &SeatRepository{db: db}
}

// FindByCode looks a seat up by its row+number code within a screen
func (r *SeatRepository) FindByCode(ctx context.Context, screenID int64, row string, number int) (*models.Seat, error) {
	seat := &models.Seat{}
	query := `
		SELECT seat_id, screen_id, seat_row, seat_number, seat_type, price_multiplier, is_accessible
		FROM seats
		WHERE screen_id = $1 AND seat_row = $2 AND seat_number = $3`

	err := r.db.QueryRowContext(ctx, query, screenID, row, number).Scan(
		&seat.ID,
		&seat.ScreenID,
		&seat.Row,
		&seat.Number,
		&seat.SeatType,
		&seat.PriceMultiplier,
		&seat.IsAccessible,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return seat, nil
}

// CreateIfMissing inserts the seat unless (screen, row, number) already exists.
// Either way seat.ID is set on return; created reports whether this call
// inserted the row.
func (r *SeatRepository) CreateIfMissing(ctx context.Context, seat *models.Seat) (bool, error) {
	query := `
		INSERT INTO seats (screen_id, seat_row, seat_number, seat_type, price_multiplier, is_accessible)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (screen_id, seat_row, seat_number) DO NOTHING
		RETURNING seat_id`

	err := r.db.QueryRowContext(ctx, query,
		seat.ScreenID,
		seat.Row,
		seat.Number,
		seat.SeatType,
		seat.PriceMultiplier,
		seat.IsAccessible,
	).Scan(&seat.ID)

	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	// A concurrent request created it first
	existing, err := r.FindByCode(ctx, seat.ScreenID, seat.Row, seat.Number)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("seat %s on screen %d vanished after conflict", seat.Code(), seat.ScreenID)
	}

	*seat = *existing
	return false, nil
}

// CreateSeatsForScreen bulk inserts seats, skipping ones that already exist,
// and returns how many rows were inserted.
func (r *SeatRepository) CreateSeatsForScreen(ctx context.Context, screenID int64, seats []models.Seat) (int64, error) {
	if len(seats) == 0 {
		return 0, nil
	}

	values := make([]string, 0, len(seats))
	args := make([]any, 0, len(seats)*6)
	for i, seat := range seats {
		n := i * 6
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6))
		args = append(args, screenID, seat.Row, seat.Number, seat.SeatType, seat.PriceMultiplier, seat.IsAccessible)
	}

	query := `
		INSERT INTO seats (screen_id, seat_row, seat_number, seat_type, price_multiplier, is_accessible)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (screen_id, seat_row, seat_number) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// UpdateScreenCapacity sets screens.capacity to the number of seats the screen has
func (r *SeatRepository) UpdateScreenCapacity(ctx context.Context, screenID int64) error {
	query := `
		UPDATE screens
		SET capacity = (SELECT COUNT(*) FROM seats WHERE screen_id = $1)
		WHERE screen_id = $1`

	_, err := r.db.ExecContext(ctx, query, screenID)
	return err
}

// OccupiedCodes returns the codes of seats holding an ACTIVE ticket for the showtime
func (r *SeatRepository) OccupiedCodes(ctx context.Context, showtimeID int64) ([]string, error) {
	query := `
		SELECT s.seat_row || s.seat_number
		FROM tickets t
		JOIN seats s ON s.seat_id = t.seat_id
		WHERE t.showtime_id = $1 AND t.ticket_status = 'ACTIVE'
		ORDER BY s.seat_row, s.seat_number`

	rows, err := queryRows(ctx, r.db, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}

	return codes, rows.Err()
}
