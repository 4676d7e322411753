package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetTicketQR - GET /api/tickets/:code/qr?size=
func (h *Handlers) GetTicketQR(c *gin.Context) {
	size := 0
	if raw := c.Query("size"); raw != "" {
		var err error
		if size, err = strconv.Atoi(raw); err != nil || size <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "size must be a positive integer"})
			return
		}
	}

	img, err := h.tickets.QRCode(c.Request.Context(), c.Param("code"), size)
	if err != nil {
		respondError(c, "render ticket QR code", err, false)
		return
	}

	c.Data(http.StatusOK, "image/png", img)
}
