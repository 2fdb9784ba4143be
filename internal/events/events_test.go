package events

import (
	"errors"
	"testing"

	"bookingdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSON(t *testing.T) {
	bus := NewEventBus(nil)

	var got []BookingConfirmedPayload
	bus.Subscribe(BookingConfirmed, func(e Event) error {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
		var p BookingConfirmedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		got = append(got, p)
		return nil
	})
	bus.Subscribe(BookingConfirmed, func(Event) error { return errors.New("sink down") })

	calledOther := false
	bus.Subscribe(SessionClosed, func(Event) error { calledOther = true; return nil })

	require.NoError(t, bus.PublishJSON(BookingConfirmed, BookingConfirmedPayload{
		SessionID: "s-1",
		Booking:   model.UserBooking{Name: "Jane", SlotID: "slot-9"},
	}))

	require.Len(t, got, 1)
	assert.Equal(t, "s-1", got[0].SessionID)
	assert.Equal(t, "slot-9", got[0].Booking.SlotID)
	assert.False(t, calledOther)
}

func TestPublishJSONMarshalError(t *testing.T) {
	bus := NewEventBus(nil)
	assert.Error(t, bus.PublishJSON(BookingConfirmed, make(chan int)))
}
