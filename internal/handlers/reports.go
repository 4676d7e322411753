package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetBookingReport - GET /api/reports/bookings
func (h *Handlers) GetBookingReport(c *gin.Context) {
	report, err := h.reports.Bookings(c.Request.Context())
	if err != nil {
		respondError(c, "build booking report", err, false)
		return
	}

	c.JSON(http.StatusOK, report)
}
