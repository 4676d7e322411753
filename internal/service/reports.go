package service

import (
	"context"
	"errors"

	apperrors "cinebook/internal/errors"
	"cinebook/internal/models"
)

// ErrReportsDisabled is returned when no booking index is configured
var ErrReportsDisabled = errors.New("booking reports are disabled")

type ReportService struct {
	reporter BookingReporter
}

func NewReportService(reporter BookingReporter) *ReportService {
	return &ReportService{reporter: reporter}
}

func (s *ReportService) Bookings(ctx context.Context) (*models.BookingReport, error) {
	if s.reporter == nil {
		return nil, ErrReportsDisabled
	}

	report, err := s.reporter.StatusSummary(ctx)
	if err != nil {
		return nil, apperrors.Storage("booking report", err)
	}
	return report, nil
}
