package service

import (
	"context"

	"cinebook/internal/config"
	"cinebook/internal/database"
	"cinebook/internal/metrics"
	"cinebook/internal/models"
	"cinebook/internal/repository"
)

// Publisher sends booking lifecycle events. *messaging.NATSClient implements it.
type Publisher interface {
	Publish(subject string, data any) error
}

// SeatMapCache caches occupied seat codes per showtime. *cache.SeatMapCache implements it.
// Get hands out a generation; Set stores nothing if Invalidate ran since.
type SeatMapCache interface {
	Get(ctx context.Context, showtimeID int64) (codes []string, gen int64, ok bool, err error)
	Set(ctx context.Context, showtimeID, gen int64, codes []string) (bool, error)
	Invalidate(ctx context.Context, showtimeIDs ...int64) error
}

// BookingReporter aggregates indexed bookings. *search.ElasticsearchClient implements it.
type BookingReporter interface {
	StatusSummary(ctx context.Context) (*models.BookingReport, error)
}

// Deps are the collaborators the services are built from. Publisher, Cache
// and Reporter are optional.
type Deps struct {
	DB        *database.DB
	Publisher Publisher
	Cache     SeatMapCache
	Reporter  BookingReporter
	Metrics   *metrics.Metrics
	Booking   config.BookingConfig
}

type Services struct {
	Bookings  *BookingService
	Showtimes *ShowtimeService
	Tickets   *TicketService
	Reports   *ReportService
}

func NewServices(deps Deps) *Services {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoop()
	}

	repos := repository.NewRepositories(deps.DB)
	resolver := NewSeatResolver(DemoPolicyFromConfig(deps.Booking), deps.Metrics)

	return &Services{
		Bookings:  NewBookingService(deps.DB, repos, resolver, deps.Publisher, deps.Cache, deps.Metrics, deps.Booking.TxTimeout),
		Showtimes: NewShowtimeService(repos, deps.Cache),
		Tickets:   NewTicketService(repos),
		Reports:   NewReportService(deps.Reporter),
	}
}

// uniqueIDs keeps first occurrences in order
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
