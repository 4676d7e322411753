package main

import (
	"fmt"

	"cinebook/internal/models"
)

// Layout is a rectangular auditorium: rows lettered from A, seats numbered from 1
type Layout struct {
	Rows   int
	PerRow int
}

func (l Layout) Validate() error {
	if l.Rows < 1 || l.Rows > 26 {
		return fmt.Errorf("rows must be between 1 and 26, got %d", l.Rows)
	}
	if l.PerRow < 1 {
		return fmt.Errorf("per-row must be positive, got %d", l.PerRow)
	}
	return nil
}

// Seats lists the layout row by row. A-B are VIP, C-E Premium, the rest
// Regular; the two end seats of the last row are accessible.
func (l Layout) Seats() []models.Seat {
	seats := make([]models.Seat, 0, l.Rows*l.PerRow)
	for r := 0; r < l.Rows; r++ {
		row := string(rune('A' + r))
		seatType, multiplier := seatClass(r)

		for n := 1; n <= l.PerRow; n++ {
			seats = append(seats, models.Seat{
				Row:             row,
				Number:          n,
				SeatType:        seatType,
				PriceMultiplier: multiplier,
				IsAccessible:    r == l.Rows-1 && (n == 1 || n == l.PerRow),
			})
		}
	}
	return seats
}

func seatClass(rowIndex int) (string, float64) {
	switch {
	case rowIndex < 2:
		return "VIP", 1.5
	case rowIndex < 5:
		return "Premium", 1.25
	default:
		return "Regular", 1.0
	}
}
