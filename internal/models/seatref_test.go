package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeatRef(t *testing.T) {
	tests := []struct {
		in      string
		want    SeatRef
		wantErr bool
	}{
		{in: "12", want: SeatByID(12)},
		{in: "A1", want: SeatByCode("A", 1)},
		{in: "b12", want: SeatByCode("B", 12)},
		{in: "AA7", want: SeatByCode("AA", 7)},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "A", wantErr: true},
		{in: "A0", wantErr: true},
		{in: "ABC1", wantErr: true},
		{in: "1A", wantErr: true},
		{in: "2147483647", want: SeatByID(2147483647)},
		{in: "2147483648", wantErr: true},
		{in: "A2147483648", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeatRef(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeatRefUnmarshalJSON(t *testing.T) {
	var req TicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"showtime_id":3,"seat_id":"A1"}`), &req))
	assert.True(t, req.SeatID.IsCode())
	assert.Equal(t, "A1", req.SeatID.String())

	require.NoError(t, json.Unmarshal([]byte(`{"showtime_id":3,"seat_id":42}`), &req))
	assert.False(t, req.SeatID.IsCode())
	assert.Equal(t, int64(42), req.SeatID.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"seat_id":true}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"seat_id":-1}`), &req))
}

func TestSeatRefMarshalJSON(t *testing.T) {
	out, err := json.Marshal([]SeatRef{SeatByID(5), SeatByCode("C", 3)})
	require.NoError(t, err)
	assert.JSONEq(t, `[5,"C3"]`, string(out))
}

func TestBookingStatusTransitions(t *testing.T) {
	assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusConfirmed))
	assert.True(t, BookingStatusPending.CanTransitionTo(BookingStatusCancelled))
	assert.True(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusCancelled))
	assert.True(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusConfirmed))

	assert.False(t, BookingStatusConfirmed.CanTransitionTo(BookingStatusPending))
	assert.False(t, BookingStatusCancelled.CanTransitionTo(BookingStatusConfirmed))
	assert.False(t, BookingStatusCancelled.CanTransitionTo(BookingStatusPending))

	assert.False(t, BookingStatus("PAID").Valid())
}
