package slots

import (
	"context"
	"time"

	"bookingdesk/internal/model"

	"github.com/rs/zerolog"
)

// MockSubmitter accepts every booking after a delay. It persists nothing.
type MockSubmitter struct {
	Delay  time.Duration
	Logger *zerolog.Logger
}

// Submit logs the request and reports success.
func (m *MockSubmitter) Submit(ctx context.Context, slotID string, b model.UserBooking) (bool, error) {
	if m.Logger != nil {
		m.Logger.Info().
			Str("slot_id", slotID).
			Str("service_id", b.ServiceID).
			Str("email", b.Email).
			Time("date", b.Date).
			Msg("mock booking request")
	}
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}
	return true, nil
}
