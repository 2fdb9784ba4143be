package slots

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookingdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockChecker implements BookingChecker for testing
type mockChecker struct {
	bookedSlots map[string]bool // key: "HH:MM"
	err         error
}

func (m *mockChecker) IsSlotBooked(ctx context.Context, start, end time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.bookedSlots[start.Format("15:04")], nil
}

type closedPolicy map[string]bool

func (p closedPolicy) IsOpen(_ time.Time, id string) bool { return !p[id] }

func utcSchedule() DaySchedule {
	s := DefaultSchedule()
	s.Location = time.UTC
	return s
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func TestFetchSlotsDefaultDay(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(utcSchedule(), fixedClock(date.AddDate(0, 0, -1)))

	slots, err := g.FetchSlots(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, slots, 8)

	for i, s := range slots {
		hour := 9 + i
		assert.Equal(t, SlotID(time.Date(2024, 1, 2, hour, 0, 0, 0, time.UTC)), s.ID)
		assert.Equal(t, hour, s.Start.Hour())
		assert.Equal(t, time.Hour, s.Duration())
		assert.True(t, s.Available)
	}
	assert.Equal(t, "slot-9", slots[0].ID)
	assert.Equal(t, "slot-16", slots[7].ID)
	assert.Equal(t, "16:00-17:00", slots[7].Label())

	require.NoError(t, CheckContract(date, slots, utcSchedule()))
}

func TestFetchSlotsMarksBookedAndClosed(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(utcSchedule(),
		fixedClock(date.AddDate(0, 0, -1)),
		WithChecker(&mockChecker{bookedSlots: map[string]bool{"10:00": true}}),
		WithPolicy(closedPolicy{"slot-14": true}),
	)

	slots, err := g.FetchSlots(context.Background(), date)
	require.NoError(t, err)

	available := GetAvailableSlots(slots)
	assert.Len(t, available, 6)

	s, ok := model.FindSlot(slots, "slot-10")
	require.True(t, ok)
	assert.False(t, s.Available)

	s, ok = model.FindSlot(slots, "slot-14")
	require.True(t, ok)
	assert.False(t, s.Available)
}

func TestFetchSlotsPastSlotsUnavailable(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(utcSchedule(), fixedClock(time.Date(2024, 1, 2, 12, 30, 0, 0, time.UTC)))

	slots, err := g.FetchSlots(context.Background(), date)
	require.NoError(t, err)

	for _, s := range slots {
		assert.Equal(t, s.Start.Hour() >= 13, s.Available, s.ID)
	}
}

func TestFetchSlotsCheckerError(t *testing.T) {
	g := NewGenerator(utcSchedule(), WithChecker(&mockChecker{err: errors.New("db down")}))

	_, err := g.FetchSlots(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestFetchSlotsLatencyHonoursContext(t *testing.T) {
	g := NewGenerator(utcSchedule(), WithLatency(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.FetchSlots(ctx, time.Now())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchSlotsHalfHourGrid(t *testing.T) {
	schedule := DaySchedule{StartTime: "09:00", EndTime: "11:00", SlotDuration: 30, Location: time.UTC}
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(schedule, fixedClock(date.AddDate(0, 0, -1)))

	slots, err := g.FetchSlots(context.Background(), date)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	assert.Equal(t, "slot-9", slots[0].ID)
	assert.Equal(t, "slot-9-30", slots[1].ID)
	assert.Equal(t, 4, schedule.SlotsPerDay())
}

func TestScheduleBoundsInvalid(t *testing.T) {
	_, _, err := DaySchedule{StartTime: "17:00", EndTime: "09:00"}.Bounds(time.Now())
	assert.Error(t, err)

	_, _, err = DaySchedule{StartTime: "nine", EndTime: "17:00"}.Bounds(time.Now())
	assert.Error(t, err)
}

func TestCheckContract(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	g := NewGenerator(utcSchedule(), fixedClock(date))
	good, err := g.FetchSlots(context.Background(), date)
	require.NoError(t, err)

	t.Run("too few", func(t *testing.T) {
		assert.Error(t, CheckContract(date, good[:7], utcSchedule()))
	})

	t.Run("out of order", func(t *testing.T) {
		swapped := append([]model.TimeSlot(nil), good...)
		swapped[0], swapped[1] = swapped[1], swapped[0]
		assert.Error(t, CheckContract(date, swapped, utcSchedule()))
	})

	t.Run("wrong length", func(t *testing.T) {
		short := append([]model.TimeSlot(nil), good...)
		short[3].End = short[3].Start.Add(45 * time.Minute)
		assert.Error(t, CheckContract(date, short, utcSchedule()))
	})
}

func TestRandomPolicyRate(t *testing.T) {
	p := NewRandomPolicy(0.7, 42)

	open := 0
	for i := 0; i < 1000; i++ {
		if p.IsOpen(time.Time{}, "slot-9") {
			open++
		}
	}
	assert.InDelta(t, 700, open, 80)
}

func TestMockSubmitter(t *testing.T) {
	m := &MockSubmitter{}
	ok, err := m.Submit(context.Background(), "slot-9", model.UserBooking{ServiceID: "1"})
	require.NoError(t, err)
	assert.True(t, ok)

	m.Delay = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err = m.Submit(ctx, "slot-9", model.UserBooking{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduleSlot(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	s, ok := utcSchedule().Slot(date, "slot-15")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), s.Start)
	assert.Equal(t, time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC), s.End)

	_, ok = utcSchedule().Slot(date, "slot-17")
	assert.False(t, ok)
}
