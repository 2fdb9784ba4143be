// Package slots builds the booking window and the daily slot grid.
package slots

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bookingdesk/internal/model"
)

// DaySchedule describes the daily service window.
type DaySchedule struct {
	StartTime    string // "09:00"
	EndTime      string // "17:00"
	SlotDuration int    // minutes
	Location     *time.Location
}

// DefaultSchedule is 09:00-17:00 in hourly slots, local time.
func DefaultSchedule() DaySchedule {
	return DaySchedule{
		StartTime:    "09:00",
		EndTime:      "17:00",
		SlotDuration: 60,
		Location:     time.Local,
	}
}

func (s DaySchedule) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s DaySchedule) slotDuration() time.Duration {
	if s.SlotDuration <= 0 {
		return model.DefaultSlotDuration
	}
	return time.Duration(s.SlotDuration) * time.Minute
}

// Bounds returns the start and end of the service window on date.
func (s DaySchedule) Bounds(date time.Time) (start, end time.Time, err error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.location())
	start, err = parseTimeOnDate(day, s.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse start time: %w", err)
	}
	end, err = parseTimeOnDate(day, s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse end time: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end time %s is not after start time %s", s.EndTime, s.StartTime)
	}
	return start, end, nil
}

// SlotsPerDay returns how many whole slots fit into the window.
func (s DaySchedule) SlotsPerDay() int {
	start, end, err := s.Bounds(time.Now())
	if err != nil {
		return 0
	}
	return int(end.Sub(start) / s.slotDuration())
}

// Slot returns the slot of date with the given id, ignoring availability.
func (s DaySchedule) Slot(date time.Time, id string) (model.TimeSlot, bool) {
	start, end, err := s.Bounds(date)
	if err != nil {
		return model.TimeSlot{}, false
	}
	d := s.slotDuration()
	for cursor := start; !cursor.Add(d).After(end); cursor = cursor.Add(d) {
		if SlotID(cursor) == id {
			return model.TimeSlot{ID: id, Start: cursor, End: cursor.Add(d)}, true
		}
	}
	return model.TimeSlot{}, false
}

// BookingChecker checks if a slot is already taken.
type BookingChecker interface {
	IsSlotBooked(ctx context.Context, start, end time.Time) (bool, error)
}

// Generator is the reference availability provider: it tiles the daily
// window and asks the checker and the policy about each slot.
type Generator struct {
	schedule DaySchedule
	checker  BookingChecker
	policy   AvailabilityPolicy
	latency  time.Duration
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithChecker marks booked slots unavailable.
func WithChecker(c BookingChecker) Option {
	return func(g *Generator) { g.checker = c }
}

// WithPolicy sets the availability policy.
func WithPolicy(p AvailabilityPolicy) Option {
	return func(g *Generator) { g.policy = p }
}

// WithLatency delays every fetch, honouring context cancellation.
func WithLatency(d time.Duration) Option {
	return func(g *Generator) { g.latency = d }
}

// WithClock overrides time.Now for the past-slot check.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a new slot generator.
func NewGenerator(schedule DaySchedule, opts ...Option) *Generator {
	g := &Generator{
		schedule: schedule,
		policy:   AllOpen{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Schedule returns the daily schedule the generator tiles.
func (g *Generator) Schedule() DaySchedule {
	return g.schedule
}

// FetchSlots generates all slots for a date, ordered by start time.
func (g *Generator) FetchSlots(ctx context.Context, date time.Time) ([]model.TimeSlot, error) {
	if g.latency > 0 {
		timer := time.NewTimer(g.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	startTime, endTime, err := g.schedule.Bounds(date)
	if err != nil {
		return nil, err
	}

	slotDuration := g.schedule.slotDuration()
	now := g.now()
	var slots []model.TimeSlot

	for cursor := startTime; !cursor.Add(slotDuration).After(endTime); cursor = cursor.Add(slotDuration) {
		slotStart := cursor
		slotEnd := cursor.Add(slotDuration)
		id := SlotID(slotStart)

		booked := false
		if g.checker != nil {
			booked, err = g.checker.IsSlotBooked(ctx, slotStart, slotEnd)
			if err != nil {
				return nil, fmt.Errorf("check slot %s: %w", id, err)
			}
		}

		isPast := slotStart.Before(now)

		slots = append(slots, model.TimeSlot{
			ID:        id,
			Start:     slotStart,
			End:       slotEnd,
			Available: !booked && !isPast && g.policy.IsOpen(slotStart, id),
		})
	}

	return slots, nil
}

// SlotID names a slot after its start: "slot-9", or "slot-9-30" off the hour.
func SlotID(start time.Time) string {
	if start.Minute() == 0 {
		return fmt.Sprintf("slot-%d", start.Hour())
	}
	return fmt.Sprintf("slot-%d-%02d", start.Hour(), start.Minute())
}

// GetAvailableSlots returns only available slots.
func GetAvailableSlots(slots []model.TimeSlot) []model.TimeSlot {
	var available []model.TimeSlot
	for _, s := range slots {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

// CheckContract verifies that slots for date honour the provider contract:
// one slot per granule of the schedule, ascending, contiguous, fixed length.
func CheckContract(date time.Time, slots []model.TimeSlot, schedule DaySchedule) error {
	start, end, err := schedule.Bounds(date)
	if err != nil {
		return err
	}
	d := schedule.slotDuration()
	want := int(end.Sub(start) / d)
	if len(slots) != want {
		return fmt.Errorf("expected %d slots, got %d", want, len(slots))
	}

	cursor := start
	for i, s := range slots {
		if !s.Start.Equal(cursor) {
			return fmt.Errorf("slot %d (%s): starts at %s, expected %s", i, s.ID, s.Start.Format(time.RFC3339), cursor.Format(time.RFC3339))
		}
		if s.Duration() != d {
			return fmt.Errorf("slot %d (%s): lasts %s, expected %s", i, s.ID, s.Duration(), d)
		}
		cursor = s.End
	}
	return nil
}

func parseTimeOnDate(date time.Time, timeStr string) (time.Time, error) {
	parts := strings.Split(timeStr, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", timeStr)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour: %w", err)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute: %w", err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}
