package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	apperrors "cinebook/internal/errors"
	"cinebook/internal/logger"
	"cinebook/internal/models"
	"cinebook/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingService interface {
	Create(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error)
	Get(ctx context.Context, id int64) (*models.Booking, error)
	List(ctx context.Context, filter models.ListBookingsFilter) ([]models.BookingListItem, error)
	Update(ctx context.Context, id int64, req *models.UpdateBookingRequest) (*models.Booking, error)
	Delete(ctx context.Context, id int64) error
}

type ShowtimeService interface {
	SeatMap(ctx context.Context, showtimeID int64) (*models.SeatMapResponse, error)
	ListForMovie(ctx context.Context, movieID int64) ([]models.ShowtimeListing, error)
}

type TicketService interface {
	QRCode(ctx context.Context, code string, size int) ([]byte, error)
}

type ReportService interface {
	Bookings(ctx context.Context) (*models.BookingReport, error)
}

type Handlers struct {
	bookings  BookingService
	showtimes ShowtimeService
	tickets   TicketService
	reports   ReportService
}

func NewHandlers(services *service.Services) *Handlers {
	return New(services.Bookings, services.Showtimes, services.Tickets, services.Reports)
}

func New(bookings BookingService, showtimes ShowtimeService, tickets TicketService, reports ReportService) *Handlers {
	return &Handlers{
		bookings:  bookings,
		showtimes: showtimes,
		tickets:   tickets,
		reports:   reports,
	}
}

// RegisterRoutes mounts every endpoint under api
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	bookings := api.Group("/bookings")
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PUT("/:id", h.UpdateBooking)
		bookings.DELETE("/:id", h.DeleteBooking)
	}

	api.GET("/showtimes/:id/seats", h.GetSeatMap)
	api.GET("/movies/:id/showtimes", h.ListMovieShowtimes)
	api.GET("/tickets/:code/qr", h.GetTicketQR)
	api.GET("/reports/bookings", h.GetBookingReport)
}

// parseID reads a positive integer path parameter; it answers 400 itself
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": name + " must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

// respondError maps the error taxonomy to a status code. On the create path a
// missing referenced resource is the client's fault, hence 400 rather than 404.
func respondError(c *gin.Context, action string, err error, createPath bool) {
	status, code := http.StatusInternalServerError, "storage_error"
	message := "Failed to " + action

	switch {
	case errors.Is(err, apperrors.ErrInvalidRequest):
		status, code, message = http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, apperrors.ErrSeatAlreadyBooked):
		status, code, message = http.StatusBadRequest, "seat_already_booked", err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
		if createPath {
			status = http.StatusBadRequest
		}
	case errors.Is(err, apperrors.ErrTimeout):
		status, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, service.ErrReportsDisabled):
		status, code, message = http.StatusServiceUnavailable, "unavailable", err.Error()
	}

	log := logger.WithContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error("Failed to "+action, "error", err)
	} else {
		log.Info("Request rejected", "action", action, "status", status, "error", err)
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{"error": code, "message": message})
}
