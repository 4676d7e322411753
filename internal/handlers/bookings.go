package handlers

import (
	"net/http"
	"strconv"

	"cinebook/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateBooking - POST /api/bookings
// Creates a booking and its tickets atomically
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	booking, err := h.bookings.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "create booking", err, true)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ListBookings - GET /api/bookings?user_id=
func (h *Handlers) ListBookings(c *gin.Context) {
	var filter models.ListBookingsFilter
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "user_id must be a positive integer"})
			return
		}
		filter.UserID = &id
	}

	items, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "list bookings", err, false)
		return
	}

	c.JSON(http.StatusOK, items)
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "get booking", err, false)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// UpdateBooking - PUT /api/bookings/:id
func (h *Handlers) UpdateBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	booking, err := h.bookings.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, "update booking", err, false)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// DeleteBooking - DELETE /api/bookings/:id
// Removes the booking and its tickets
func (h *Handlers) DeleteBooking(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.bookings.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "delete booking", err, false)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking deleted successfully"})
}
