package google

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookingdesk/internal/events"
	"bookingdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppender struct {
	mu    sync.Mutex
	calls [][][]interface{}
	rng   string
	err   error
}

func (f *fakeAppender) Append(_ context.Context, _ string, rng string, rows [][]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rng = rng
	f.calls = append(f.calls, rows)
	return f.err
}

func (f *fakeAppender) rows() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += len(c)
	}
	return n
}

func payload(name string) events.BookingConfirmedPayload {
	return events.BookingConfirmedPayload{
		SessionID: "s-" + name,
		Service:   model.Service{Name: "English Class", Price: 40},
		Booking: model.UserBooking{
			Name: name, Email: name + "@example.com", SlotID: "slot-10",
			Date: time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC),
		},
		Slot: model.TimeSlot{
			ID:    "slot-10",
			Start: time.Date(2024, 12, 25, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 12, 25, 11, 0, 0, 0, time.UTC),
		},
	}
}

func TestBookingRowValues(t *testing.T) {
	at := time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC)
	values := bookingRowValues(payload("jane"), at)

	expected := []interface{}{
		"s-jane",
		"2024-12-25",
		"10:00-11:00",
		"English Class",
		float64(40),
		"jane",
		"jane@example.com",
		"2024-12-20 10:00:00",
	}
	assert.Equal(t, expected, values)

	p := payload("bob")
	p.Slot = model.TimeSlot{}
	assert.Equal(t, "slot-10", bookingRowValues(p, at)[2])
}

func TestSheetsSyncAppendsFromEvents(t *testing.T) {
	app := &fakeAppender{}
	ledger := NewSheetsSync(app, "sheet-id", "Bookings", nil)

	bus := events.NewEventBus(nil)
	bus.Subscribe(events.BookingConfirmed, ledger.HandleBookingConfirmed)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, bus.PublishJSON(events.BookingConfirmed, payload(name)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ledger.Run(ctx)

	require.Eventually(t, func() bool { return app.rows() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Bookings!A1", app.rng)
}

func TestSheetsSyncAppendErrorIsSwallowed(t *testing.T) {
	app := &fakeAppender{err: errors.New("quota")}
	ledger := NewSheetsSync(app, "sheet-id", "Bookings", nil)

	ledger.flush(context.Background(), [][]interface{}{{"x"}})
	assert.Equal(t, 1, app.rows())
}

func TestNewAppenderMissingFile(t *testing.T) {
	_, err := NewAppender(context.Background(), "/nonexistent/credentials.json")
	assert.Error(t, err)
}
