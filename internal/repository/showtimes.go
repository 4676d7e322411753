package repository

import (
	"context"
	"database/sql"
	"time"

	"cinebook/internal/database"
	"cinebook/internal/models"
)

type ShowtimeRepository struct {
	db database.Querier
}

func NewShowtimeRepository(db database.Querier) *ShowtimeRepository {
	return &ShowtimeRepository{db: db}
}

func (r *ShowtimeRepository) GetByID(ctx context.Context, id int64) (*models.Showtime, error) {
	showtime := &models.Showtime{}
	query := `
		SELECT showtime_id, movie_id, screen_id, start_time, end_time, base_price, is_accessible
		FROM showtimes
		WHERE showtime_id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.MovieID,
		&showtime.ScreenID,
		&showtime.StartTime,
		&showtime.EndTime,
		&showtime.BasePrice,
		&showtime.IsAccessible,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return showtime, nil
}

// Create inserts the showtime and fills in the generated id
func (r *ShowtimeRepository) Create(ctx context.Context, showtime *models.Showtime) error {
	query := `
		INSERT INTO showtimes (movie_id, screen_id, start_time, end_time, base_price, is_accessible)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING showtime_id`

	return r.db.QueryRowContext(ctx, query,
		showtime.MovieID,
		showtime.ScreenID,
		showtime.StartTime,
		showtime.EndTime,
		showtime.BasePrice,
		showtime.IsAccessible,
	).Scan(&showtime.ID)
}

// ListUpcomingByMovie returns the movie's showtimes starting at or after from,
// with screen, theater and cinema names.
func (r *ShowtimeRepository) ListUpcomingByMovie(ctx context.Context, movieID int64, from time.Time) ([]models.ShowtimeListing, error) {
	query := `
		SELECT s.showtime_id, s.movie_id, s.screen_id, s.start_time, s.end_time, s.base_price, s.is_accessible,
		       sc.screen_name, COALESCE(sc.screen_type, ''), t.theater_id, t.theater_name,
		       c.cinema_id, c.name, COALESCE(c.city, '')
		FROM showtimes s
		JOIN screens sc ON sc.screen_id = s.screen_id
		JOIN theaters t ON t.theater_id = sc.theater_id
		JOIN cinemas c ON c.cinema_id = t.cinema_id
		WHERE s.movie_id = $1 AND s.start_time >= $2
		ORDER BY s.start_time, s.showtime_id`

	rows, err := queryRows(ctx, r.db, query, movieID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []models.ShowtimeListing{}
	for rows.Next() {
		var l models.ShowtimeListing
		err := rows.Scan(
			&l.ID,
			&l.MovieID,
			&l.ScreenID,
			&l.StartTime,
			&l.EndTime,
			&l.BasePrice,
			&l.IsAccessible,
			&l.ScreenName,
			&l.ScreenType,
			&l.TheaterID,
			&l.TheaterName,
			&l.CinemaID,
			&l.CinemaName,
			&l.City,
		)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}
