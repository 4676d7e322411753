package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"cinebook/internal/logger"
	"cinebook/internal/models"
)

// Options describe the fixture the smoke run books against. The showtime and
// the seats must exist and the seats must be free.
type Options struct {
	BaseURL    string
	UserID     int64
	ShowtimeID int64
	// Seats holds three distinct seat codes: one for the double-booking check,
	// two for the cascade delete check.
	Seats [3]string
}

func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:    baseURL,
		UserID:     1,
		ShowtimeID: 1,
		Seats:      [3]string{"J10", "J11", "J12"},
	}
}

// Validator drives the booking API end to end and stops at the first mismatch
type Validator struct {
	opts   Options
	client *http.Client

	// created holds ids of bookings the current run made and has not deleted
	created []int64
}

func NewValidator(opts Options) *Validator {
	return &Validator{
		opts:   opts,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Run books a seat, checks the repeat is rejected, then checks that deleting a
// two-ticket booking removes it. Every booking it creates is deleted again,
// whether or not a check failed.
func (v *Validator) Run(ctx context.Context) (err error) {
	log := logger.Get()
	log.Info("Starting API validation", "base_url", v.opts.BaseURL)

	v.created = nil
	defer func() {
		if cleanupErr := v.cleanup(ctx); cleanupErr != nil {
			err = errors.Join(err, cleanupErr)
		}
	}()

	first, err := v.checkCreate(ctx)
	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	log.Info("Create booking OK", "booking_id", first.ID)

	if err := v.checkDoubleBooking(ctx); err != nil {
		return fmt.Errorf("double booking: %w", err)
	}
	log.Info("Double booking rejected")

	if err := v.deleteBooking(ctx, first.ID); err != nil {
		return fmt.Errorf("cleanup booking %d: %w", first.ID, err)
	}

	if err := v.checkCascadeDelete(ctx); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	log.Info("Cascade delete OK")

	log.Info("API validation passed")
	return nil
}

// cleanup deletes every booking still tracked. It runs detached from ctx so a
// cancelled run does not leave seats taken.
func (v *Validator) cleanup(ctx context.Context) error {
	if len(v.created) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	var errs []error
	for _, id := range slices.Clone(v.created) {
		if err := v.deleteBooking(ctx, id); err != nil {
			logger.Get().Warn("Failed to delete validation booking", "booking_id", id, "error", err)
			errs = append(errs, fmt.Errorf("cleanup booking %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (v *Validator) track(status int, id int64) {
	if status == http.StatusCreated && id != 0 {
		v.created = append(v.created, id)
	}
}

func (v *Validator) request(seats ...string) models.CreateBookingRequest {
	userID := v.opts.UserID
	req := models.CreateBookingRequest{UserID: &userID}
	for _, code := range seats {
		ref, _ := models.ParseSeatRef(code)
		req.Tickets = append(req.Tickets, models.TicketRequest{ShowtimeID: v.opts.ShowtimeID, SeatID: ref})
	}
	return req
}

func (v *Validator) checkCreate(ctx context.Context) (*models.Booking, error) {
	var booking models.Booking
	status, err := v.do(ctx, http.MethodPost, "/api/bookings", v.request(v.opts.Seats[0]), &booking)
	v.track(status, booking.ID)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("POST /api/bookings: expected 201, got %d", status)
	}
	if booking.ID == 0 {
		return nil, fmt.Errorf("POST /api/bookings: expected non-zero booking_id")
	}
	if len(booking.Tickets) != 1 {
		return nil, fmt.Errorf("POST /api/bookings: expected 1 ticket, got %d", len(booking.Tickets))
	}
	return &booking, nil
}

func (v *Validator) checkDoubleBooking(ctx context.Context) error {
	var body struct {
		ID    int64  `json:"booking_id"`
		Error string `json:"error"`
	}
	status, err := v.do(ctx, http.MethodPost, "/api/bookings", v.request(v.opts.Seats[0]), &body)
	v.track(status, body.ID)
	if err != nil {
		return err
	}
	if status != http.StatusBadRequest || body.Error != "seat_already_booked" {
		return fmt.Errorf("POST /api/bookings: expected 400 seat_already_booked, got %d %q", status, body.Error)
	}
	return nil
}

func (v *Validator) checkCascadeDelete(ctx context.Context) error {
	var booking models.Booking
	status, err := v.do(ctx, http.MethodPost, "/api/bookings", v.request(v.opts.Seats[1], v.opts.Seats[2]), &booking)
	v.track(status, booking.ID)
	if err != nil {
		return err
	}
	if status != http.StatusCreated || len(booking.Tickets) != 2 {
		return fmt.Errorf("POST /api/bookings: expected 201 with 2 tickets, got %d with %d", status, len(booking.Tickets))
	}

	if err := v.deleteBooking(ctx, booking.ID); err != nil {
		return err
	}

	path := fmt.Sprintf("/api/bookings/%d", booking.ID)
	status, err = v.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNotFound {
		return fmt.Errorf("GET %s after delete: expected 404, got %d", path, status)
	}
	return nil
}

func (v *Validator) deleteBooking(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/bookings/%d", id)
	status, err := v.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("DELETE %s: expected 200, got %d", path, status)
	}
	v.created = slices.DeleteFunc(v.created, func(c int64) bool { return c == id })
	return nil
}

// do sends body as JSON and decodes the response into out when out is non-nil
func (v *Validator) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, v.opts.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}
