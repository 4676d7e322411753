package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createMoviesTable,
		createCinemasTable,
		createTheatersTable,
		createScreensTable,
		createSeatsTable,
		createShowtimesTable,
		createPromotionsTable,
		createTicketTypesTable,
		seedTicketTypes,
		createBookingsTable,
		createTicketsTable,
		createActiveSeatIndex,
		createTicketsBookingIndex,
		createShowtimesMovieIndex,
	}

	for i, migration := range migrations {
		slog.Debug("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully", "count", len(migrations))
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    users_id SERIAL PRIMARY KEY,
    username VARCHAR(100) NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createMoviesTable = `
CREATE TABLE IF NOT EXISTS movies (
    movie_id SERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    description TEXT,
    duration INTEGER,
    genre VARCHAR(100),
    rating VARCHAR(10),
    release_date DATE,
    poster VARCHAR(500)
);`

const createCinemasTable = `
CREATE TABLE IF NOT EXISTS cinemas (
    cinema_id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    city VARCHAR(100),
    address VARCHAR(255)
);`

const createTheatersTable = `
CREATE TABLE IF NOT EXISTS theaters (
    theater_id SERIAL PRIMARY KEY,
    cinema_id INTEGER NOT NULL REFERENCES cinemas(cinema_id),
    theater_name VARCHAR(255) NOT NULL,
    theater_type VARCHAR(50)
);`

const createScreensTable = `
CREATE TABLE IF NOT EXISTS screens (
    screen_id SERIAL PRIMARY KEY,
    theater_id INTEGER NOT NULL REFERENCES theaters(theater_id),
    screen_name VARCHAR(100) NOT NULL,
    screen_type VARCHAR(50),
    capacity INTEGER NOT NULL DEFAULT 0
);`

const createSeatsTable = `
CREATE TABLE IF NOT EXISTS seats (
    seat_id SERIAL PRIMARY KEY,
    screen_id INTEGER NOT NULL REFERENCES screens(screen_id),
    seat_row VARCHAR(2) NOT NULL,
    seat_number INTEGER NOT NULL,
    seat_type VARCHAR(20) NOT NULL DEFAULT 'Regular',
    price_multiplier NUMERIC(4,2) NOT NULL DEFAULT 1.00,
    is_accessible BOOLEAN NOT NULL DEFAULT FALSE,

    UNIQUE(screen_id, seat_row, seat_number)
);`

const createShowtimesTable = `
CREATE TABLE IF NOT EXISTS showtimes (
    showtime_id SERIAL PRIMARY KEY,
    movie_id INTEGER NOT NULL REFERENCES movies(movie_id),
    screen_id INTEGER NOT NULL REFERENCES screens(screen_id),
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    base_price NUMERIC(10,2) NOT NULL,
    is_accessible BOOLEAN NOT NULL DEFAULT TRUE,

    CHECK (end_time > start_time)
);`

const createPromotionsTable = `
CREATE TABLE IF NOT EXISTS promotions (
    promotion_id SERIAL PRIMARY KEY,
    promo_code VARCHAR(50) UNIQUE NOT NULL,
    discount_percentage NUMERIC(5,2) NOT NULL,
    start_date DATE NOT NULL,
    end_date DATE NOT NULL,

    CHECK (discount_percentage > 0 AND discount_percentage <= 100)
);`

const createTicketTypesTable = `
CREATE TABLE IF NOT EXISTS ticket_types (
    ticket_type_id INTEGER PRIMARY KEY,
    name VARCHAR(50) NOT NULL,
    price_multiplier NUMERIC(4,2) NOT NULL DEFAULT 1.00
);`

const seedTicketTypes = `
INSERT INTO ticket_types (ticket_type_id, name, price_multiplier) VALUES
    (1, 'Regular', 1.00),
    (2, 'VIP', 1.50),
    (3, 'Premium', 1.25)
ON CONFLICT (ticket_type_id) DO NOTHING;`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    booking_id SERIAL PRIMARY KEY,
    users_id INTEGER NOT NULL REFERENCES users(users_id),
    booking_status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    promotion_id INTEGER REFERENCES promotions(promotion_id),
    booking_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (booking_status IN ('PENDING', 'CONFIRMED', 'CANCELLED'))
);`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    ticket_id SERIAL PRIMARY KEY,
    booking_id INTEGER NOT NULL REFERENCES bookings(booking_id) ON DELETE CASCADE,
    showtime_id INTEGER NOT NULL REFERENCES showtimes(showtime_id),
    users_id INTEGER NOT NULL REFERENCES users(users_id),
    seat_id INTEGER NOT NULL REFERENCES seats(seat_id),
    ticket_type_id INTEGER NOT NULL DEFAULT 1 REFERENCES ticket_types(ticket_type_id),
    ticket_status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
    ticket_code VARCHAR(32) NOT NULL CONSTRAINT tickets_ticket_code_key UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (ticket_status IN ('ACTIVE', 'CANCELLED'))
);`

// One ACTIVE ticket per (showtime, seat). The booking path relies on this
// index to close the race between two concurrent conditional inserts.
const createActiveSeatIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS tickets_active_seat_uidx
ON tickets (showtime_id, seat_id) WHERE ticket_status = 'ACTIVE';`

const createTicketsBookingIndex = `
CREATE INDEX IF NOT EXISTS tickets_booking_id_idx ON tickets (booking_id);`

const createShowtimesMovieIndex = `
CREATE INDEX IF NOT EXISTS showtimes_movie_start_idx ON showtimes (movie_id, start_time);`
