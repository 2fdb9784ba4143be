package db

import (
	"context"
	"fmt"

	"bookingdesk/internal/model"
	"bookingdesk/internal/slots"

	"github.com/rs/zerolog"
)

// Submitter persists booking requests. It rejects slot ids the schedule
// does not know and slots that already hold a live booking.
type Submitter struct {
	db       *DB
	schedule slots.DaySchedule
	logger   *zerolog.Logger
}

// NewSubmitter creates a sqlite-backed booking submitter.
func NewSubmitter(db *DB, schedule slots.DaySchedule, logger *zerolog.Logger) *Submitter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Submitter{db: db, schedule: schedule, logger: logger}
}

// Submit stores b with status requested.
func (s *Submitter) Submit(ctx context.Context, slotID string, b model.UserBooking) (bool, error) {
	slot, ok := s.schedule.Slot(b.Date, slotID)
	if !ok {
		s.logger.Warn().Str("slot_id", slotID).Time("date", b.Date).Msg("unknown slot rejected")
		return false, nil
	}

	booked, err := s.db.IsSlotBooked(ctx, slot.Start, slot.End)
	if err != nil {
		return false, err
	}
	if booked {
		s.logger.Info().Str("slot_id", slotID).Time("start", slot.Start).Msg("slot already booked")
		return false, nil
	}

	stored := &model.StoredBooking{
		SlotID:      slotID,
		ServiceID:   b.ServiceID,
		ClientName:  b.Name,
		ClientEmail: b.Email,
		Date:        slot.Start,
		StartTime:   slot.Start,
		EndTime:     slot.End,
	}
	if err := s.db.CreateBooking(ctx, stored); err != nil {
		return false, fmt.Errorf("store booking: %w", err)
	}

	s.logger.Info().
		Str("booking_id", stored.ID).
		Str("slot_id", slotID).
		Str("service_id", b.ServiceID).
		Msg("booking stored")
	return true, nil
}
