package service

import (
	"context"
	"time"

	apperrors "cinebook/internal/errors"
	"cinebook/internal/logger"
	"cinebook/internal/models"
	"cinebook/internal/repository"
)

type ShowtimeService struct {
	repos *repository.Repositories
	cache SeatMapCache
	now   func() time.Time
}

func NewShowtimeService(repos *repository.Repositories, cache SeatMapCache) *ShowtimeService {
	return &ShowtimeService{repos: repos, cache: cache, now: time.Now}
}

// SeatMap returns the codes of seats currently held by ACTIVE tickets
func (s *ShowtimeService) SeatMap(ctx context.Context, showtimeID int64) (*models.SeatMapResponse, error) {
	var gen int64
	cached := false
	if s.cache != nil {
		codes, g, ok, err := s.cache.Get(ctx, showtimeID)
		gen = g
		cached = err == nil
		if err != nil {
			logger.WithContext(ctx).Warn("Seat map cache read failed", "error", err, "showtime_id", showtimeID)
		} else if ok {
			return &models.SeatMapResponse{ShowtimeID: showtimeID, OccupiedSeats: codes}, nil
		}
	}

	showtime, err := s.repos.Showtimes.GetByID(ctx, showtimeID)
	if err != nil {
		return nil, apperrors.Classify("get showtime", err)
	}
	if showtime == nil {
		return nil, apperrors.NotFound("Showtime", showtimeID)
	}

	codes, err := s.repos.Seats.OccupiedCodes(ctx, showtimeID)
	if err != nil {
		return nil, apperrors.Classify("list occupied seats", err)
	}

	// A failed read leaves no generation to guard the write with
	if cached {
		stored, err := s.cache.Set(ctx, showtimeID, gen, codes)
		if err != nil {
			logger.WithContext(ctx).Warn("Seat map cache write failed", "error", err, "showtime_id", showtimeID)
		} else if !stored {
			logger.WithContext(ctx).Debug("Seat map changed while loading, not cached", "showtime_id", showtimeID)
		}
	}

	return &models.SeatMapResponse{ShowtimeID: showtimeID, OccupiedSeats: codes}, nil
}

// ListForMovie returns the movie's upcoming showtimes
func (s *ShowtimeService) ListForMovie(ctx context.Context, movieID int64) ([]models.ShowtimeListing, error) {
	listings, err := s.repos.Showtimes.ListUpcomingByMovie(ctx, movieID, s.now())
	if err != nil {
		return nil, apperrors.Classify("list showtimes", err)
	}
	return listings, nil
}
