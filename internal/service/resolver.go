package service

import (
	"context"
	"time"

	"cinebook/internal/config"
	apperrors "cinebook/internal/errors"
	"cinebook/internal/logger"
	"cinebook/internal/metrics"
	"cinebook/internal/models"
	"cinebook/internal/repository"
)

// DemoPolicy controls on-the-fly provisioning of showtimes and seats that
// demo clients reference before they exist.
type DemoPolicy struct {
	Enabled           bool
	ShowtimeThreshold int64
	MovieID           int64
	ScreenID          int64
	BasePrice         string
	Duration          time.Duration
}

func DemoPolicyFromConfig(cfg config.BookingConfig) DemoPolicy {
	return DemoPolicy{
		Enabled:           cfg.DemoSeeding,
		ShowtimeThreshold: cfg.DemoShowtimeThreshold,
		MovieID:           cfg.DemoMovieID,
		ScreenID:          cfg.DemoScreenID,
		BasePrice:         cfg.DemoBasePrice,
		Duration:          cfg.DemoShowtimeDuration,
	}
}

// provisionsShowtime reports whether an unknown showtime id may be created
func (p DemoPolicy) provisionsShowtime(id int64) bool {
	return p.Enabled && id > p.ShowtimeThreshold
}

// SeatResolver turns a requested showtime id and seat designator into a
// persisted showtime and seat id.
type SeatResolver struct {
	policy  DemoPolicy
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewSeatResolver(policy DemoPolicy, m *metrics.Metrics) *SeatResolver {
	return &SeatResolver{policy: policy, metrics: m, now: time.Now}
}

// resolution is bound to one transaction. It remembers showtimes already
// resolved so a demo id repeated within one booking maps to a single row.
type resolution struct {
	*SeatResolver
	repos     *repository.Repositories
	showtimes map[int64]*models.Showtime
}

func (r *SeatResolver) begin(repos *repository.Repositories) *resolution {
	return &resolution{
		SeatResolver: r,
		repos:        repos,
		showtimes:    make(map[int64]*models.Showtime),
	}
}

// Resolve returns the showtime and the seat id for one ticket request
func (s *resolution) Resolve(ctx context.Context, showtimeID int64, seat models.SeatRef) (*models.Showtime, int64, error) {
	showtime, err := s.showtime(ctx, showtimeID)
	if err != nil {
		return nil, 0, err
	}

	seatID, err := s.seat(ctx, showtime.ScreenID, seat)
	if err != nil {
		return nil, 0, err
	}

	return showtime, seatID, nil
}

func (s *resolution) showtime(ctx context.Context, id int64) (*models.Showtime, error) {
	if st, ok := s.showtimes[id]; ok {
		return st, nil
	}

	st, err := s.repos.Showtimes.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Classify("get showtime", err)
	}

	if st == nil {
		if !s.policy.provisionsShowtime(id) {
			return nil, apperrors.NotFound("Showtime", id)
		}

		start := s.now()
		st = &models.Showtime{
			MovieID:      s.policy.MovieID,
			ScreenID:     s.policy.ScreenID,
			StartTime:    start,
			EndTime:      start.Add(s.policy.Duration),
			BasePrice:    s.policy.BasePrice,
			IsAccessible: true,
		}
		if err := s.repos.Showtimes.Create(ctx, st); err != nil {
			return nil, apperrors.Classify("create demo showtime", err)
		}

		s.metrics.DemoProvisioned.WithLabelValues("showtime").Inc()
		logger.WithContext(ctx).Warn("Provisioned demo showtime",
			"requested_showtime_id", id,
			"showtime_id", st.ID,
			"screen_id", st.ScreenID)
	}

	s.showtimes[id] = st
	return st, nil
}

func (s *resolution) seat(ctx context.Context, screenID int64, ref models.SeatRef) (int64, error) {
	if !ref.IsCode() {
		// Existence is enforced by the tickets.seat_id foreign key
		return ref.ID, nil
	}

	seat, err := s.repos.Seats.FindByCode(ctx, screenID, ref.Row, ref.Number)
	if err != nil {
		return 0, apperrors.Classify("find seat", err)
	}
	if seat != nil {
		return seat.ID, nil
	}

	if !s.policy.Enabled {
		return 0, apperrors.NotFound("Seat", ref.String())
	}

	seat = &models.Seat{
		ScreenID:        screenID,
		Row:             ref.Row,
		Number:          ref.Number,
		SeatType:        "Regular",
		PriceMultiplier: 1.0,
		IsAccessible:    false,
	}
	created, err := s.repos.Seats.CreateIfMissing(ctx, seat)
	if err != nil {
		return 0, apperrors.Classify("create seat", err)
	}

	if created {
		s.metrics.DemoProvisioned.WithLabelValues("seat").Inc()
		logger.WithContext(ctx).Info("Provisioned seat",
			"screen_id", screenID,
			"seat", ref.String(),
			"seat_id", seat.ID)
	}

	return seat.ID, nil
}
