package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSeatMap - GET /api/showtimes/:id/seats
// Occupied seat codes of a showtime
func (h *Handlers) GetSeatMap(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	seatMap, err := h.showtimes.SeatMap(c.Request.Context(), id)
	if err != nil {
		respondError(c, "load seat map", err, false)
		return
	}

	c.JSON(http.StatusOK, seatMap)
}

// ListMovieShowtimes - GET /api/movies/:id/showtimes
func (h *Handlers) ListMovieShowtimes(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	listings, err := h.showtimes.ListForMovie(c.Request.Context(), id)
	if err != nil {
		respondError(c, "list showtimes", err, false)
		return
	}

	c.JSON(http.StatusOK, listings)
}
