package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cinebook/internal/database"
	"cinebook/internal/metrics"
	"cinebook/internal/models"
	"cinebook/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2025, 5, 10, 19, 0, 0, 0, time.UTC)

	bookingInsertCols = []string{"booking_id", "booking_date", "updated_at"}
	bookingCols       = []string{"booking_id", "users_id", "booking_status", "promotion_id", "booking_date", "updated_at"}
	showtimeCols      = []string{"showtime_id", "movie_id", "screen_id", "start_time", "end_time", "base_price", "is_accessible"}
	seatCols          = []string{"seat_id", "screen_id", "seat_row", "seat_number", "seat_type", "price_multiplier", "is_accessible"}
	ticketInsertCols  = []string{"ticket_id", "created_at"}
)

var demoPolicy = DemoPolicy{
	Enabled:           true,
	ShowtimeThreshold: 10,
	MovieID:           1,
	ScreenID:          1,
	BasePrice:         "10.00",
	Duration:          120 * time.Minute,
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []any
	err      error
}

func (p *fakePublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.events = append(p.events, data)
	return p.err
}

type fakeCache struct {
	mu          sync.Mutex
	data        map[int64][]string
	gens        map[int64]int64
	invalidated []int64
	sets        int
	skipped     int
	// afterGet runs once the lookup has returned, before the caller loads from storage
	afterGet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[int64][]string{}, gens: map[int64]int64{}}
}

func (c *fakeCache) Get(_ context.Context, showtimeID int64) ([]string, int64, bool, error) {
	c.mu.Lock()
	codes, ok := c.data[showtimeID]
	gen := c.gens[showtimeID]
	hook := c.afterGet
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return codes, gen, ok, nil
}

func (c *fakeCache) Set(_ context.Context, showtimeID, gen int64, codes []string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[showtimeID] != gen {
		c.skipped++
		return false, nil
	}
	c.data[showtimeID] = codes
	c.sets++
	return true, nil
}

func (c *fakeCache) Invalidate(_ context.Context, showtimeIDs ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range showtimeIDs {
		delete(c.data, id)
		c.gens[id]++
	}
	c.invalidated = append(c.invalidated, showtimeIDs...)
	return nil
}

type bookingFixture struct {
	svc   *BookingService
	mock  sqlmock.Sqlmock
	pub   *fakePublisher
	cache *fakeCache
	m     *metrics.Metrics
}

func newBookingFixture(t *testing.T, policy DemoPolicy) *bookingFixture {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB)
	m := metrics.NewNoop()
	resolver := NewSeatResolver(policy, m)
	resolver.now = func() time.Time { return fixedNow }

	pub := &fakePublisher{}
	cache := newFakeCache()
	svc := NewBookingService(db, repository.NewRepositories(db), resolver, pub, cache, m, 5*time.Second)

	n := 0
	svc.newCode = func() (string, error) {
		n++
		return fmt.Sprintf("TKT%06d", n), nil
	}

	return &bookingFixture{svc: svc, mock: mock, pub: pub, cache: cache, m: m}
}

func int64Ptr(v int64) *int64 { return &v }

func bookingRequest(userID int64, tickets ...models.TicketRequest) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{UserID: int64Ptr(userID), Tickets: tickets}
}

func seatCode(showtimeID int64, code string) models.TicketRequest {
	ref, err := models.ParseSeatRef(code)
	if err != nil {
		panic(err)
	}
	return models.TicketRequest{ShowtimeID: showtimeID, SeatID: ref}
}
