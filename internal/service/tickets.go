package service

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	apperrors "cinebook/internal/errors"
	"cinebook/internal/models"
	"cinebook/internal/repository"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 256
	maxQRSize     = 1024
)

type TicketService struct {
	repos *repository.Repositories
}

func NewTicketService(repos *repository.Repositories) *TicketService {
	return &TicketService{repos: repos}
}

// QRCode renders a PNG QR code for an existing ticket
func (s *TicketService) QRCode(ctx context.Context, code string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	if size > maxQRSize {
		return nil, apperrors.InvalidRequest("size must not exceed %d", maxQRSize)
	}

	ticket, err := s.repos.Tickets.GetByCode(ctx, code)
	if err != nil {
		return nil, apperrors.Classify("get ticket", err)
	}
	if ticket == nil {
		return nil, apperrors.NotFound("Ticket", code)
	}

	img, err := generateQRCode(ticketQRContent(ticket), size)
	if err != nil {
		return nil, apperrors.Storage("render qr code", err)
	}
	return img, nil
}

func ticketQRContent(t *models.Ticket) string {
	return fmt.Sprintf("CINEBOOK|%s|booking=%d|showtime=%d|seat=%d", t.Code, t.BookingID, t.ShowtimeID, t.SeatID)
}

func generateQRCode(content string, size int) ([]byte, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, qr.Image(size)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
