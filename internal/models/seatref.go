package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SeatRef is the seat designator a client sends: either a numeric seat id or
// a row+number code such as "A1". Exactly one form is set.
type SeatRef struct {
	ID     int64
	Row    string
	Number int
}

// SeatByID returns a reference to an existing seat id
func SeatByID(id int64) SeatRef {
	return SeatRef{ID: id}
}

// SeatByCode returns a row+number reference
func SeatByCode(row string, number int) SeatRef {
	return SeatRef{Row: strings.ToUpper(row), Number: number}
}

// IsCode reports whether the reference is a row+number code
func (r SeatRef) IsCode() bool {
	return r.Row != ""
}

// IsZero reports whether no designator was supplied
func (r SeatRef) IsZero() bool {
	return r.ID == 0 && r.Row == ""
}

func (r SeatRef) String() string {
	if r.IsCode() {
		return fmt.Sprintf("%s%d", r.Row, r.Number)
	}
	return strconv.FormatInt(r.ID, 10)
}

// ParseSeatRef accepts "12" (seat id) or "A1"/"aa12" (one or two row letters
// followed by a positive seat number).
func ParseSeatRef(s string) (SeatRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SeatRef{}, fmt.Errorf("empty seat designator")
	}

	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		if id <= 0 || id > math.MaxInt32 {
			return SeatRef{}, fmt.Errorf("invalid seat id %d", id)
		}
		return SeatByID(id), nil
	}

	split := 0
	for split < len(s) && isLetter(s[split]) {
		split++
	}
	if split == 0 || split > 2 || split == len(s) {
		return SeatRef{}, fmt.Errorf("invalid seat code %q", s)
	}

	number, err := strconv.Atoi(s[split:])
	if err != nil || number <= 0 || number > math.MaxInt32 {
		return SeatRef{}, fmt.Errorf("invalid seat number in %q", s)
	}

	return SeatByCode(s[:split], number), nil
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// UnmarshalJSON accepts a JSON number (seat id) or a JSON string (id or code)
func (r *SeatRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ref, err := ParseSeatRef(s)
		if err != nil {
			return err
		}
		*r = ref
		return nil
	}

	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("seat_id must be a number or a seat code: %w", err)
	}
	if id <= 0 || id > math.MaxInt32 {
		return fmt.Errorf("invalid seat id %d", id)
	}
	*r = SeatByID(id)
	return nil
}

func (r SeatRef) MarshalJSON() ([]byte, error) {
	if r.IsCode() {
		return json.Marshal(r.String())
	}
	return json.Marshal(r.ID)
}
