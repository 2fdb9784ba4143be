package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bookingdesk/internal/config"
	"bookingdesk/internal/model"
	"bookingdesk/internal/slots"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "bookings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func at(d, h int) time.Time {
	return time.Date(2024, 1, d, h, 0, 0, 0, time.UTC)
}

func TestCreateAndGetBooking(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	b := &model.StoredBooking{
		SlotID:      "slot-9",
		ServiceID:   "1",
		ClientName:  "Jane Doe",
		ClientEmail: "jane@example.com",
		Date:        at(2, 0),
		StartTime:   at(2, 9),
		EndTime:     at(2, 10),
	}
	require.NoError(t, db.CreateBooking(ctx, b))
	require.NotEmpty(t, b.ID)
	assert.Equal(t, model.StatusRequested, b.Status)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.ClientName)
	assert.True(t, got.StartTime.Equal(at(2, 9)))
	assert.True(t, got.EndTime.Equal(at(2, 10)))
	assert.Equal(t, "2024-01-02", got.Date.Format("2006-01-02"))

	_, err = db.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsSlotBookedAndCancel(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	b := &model.StoredBooking{
		SlotID: "slot-10", ServiceID: "2", ClientName: "A", ClientEmail: "a@example.com",
		Date: at(3, 0), StartTime: at(3, 10), EndTime: at(3, 11),
	}
	require.NoError(t, db.CreateBooking(ctx, b))

	booked, err := db.IsSlotBooked(ctx, at(3, 10), at(3, 11))
	require.NoError(t, err)
	assert.True(t, booked)

	booked, err = db.IsSlotBooked(ctx, at(3, 11), at(3, 12))
	require.NoError(t, err)
	assert.False(t, booked, "adjacent slot is free")

	require.NoError(t, db.CancelBooking(ctx, b.ID))
	assert.ErrorIs(t, db.CancelBooking(ctx, b.ID), ErrNotFound)

	booked, err = db.IsSlotBooked(ctx, at(3, 10), at(3, 11))
	require.NoError(t, err)
	assert.False(t, booked)
}

func TestListBookings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, start := range []time.Time{at(5, 14), at(4, 9), at(6, 9)} {
		require.NoError(t, db.CreateBooking(ctx, &model.StoredBooking{
			SlotID: slots.SlotID(start), ServiceID: "1", ClientName: "C", ClientEmail: "c@example.com",
			Date: start, StartTime: start, EndTime: start.Add(time.Hour),
		}))
	}

	list, err := db.ListBookings(ctx, at(4, 0), at(6, 0))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "slot-9", list[0].SlotID)
	assert.Equal(t, "slot-14", list[1].SlotID)
}

func TestSubmitter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	schedule := slots.DaySchedule{StartTime: "09:00", EndTime: "17:00", SlotDuration: 60, Location: time.UTC}
	sub := NewSubmitter(db, schedule, nil)

	req := model.UserBooking{Name: "Jane", Email: "jane@example.com", ServiceID: "4", Date: at(8, 0), SlotID: "slot-11"}

	ok, err := sub.Submit(ctx, "slot-11", req)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sub.Submit(ctx, "slot-11", req)
	require.NoError(t, err)
	assert.False(t, ok, "second booking of the same slot is rejected")

	ok, err = sub.Submit(ctx, "slot-23", req)
	require.NoError(t, err)
	assert.False(t, ok, "unknown slot")

	list, err := db.ListBookings(ctx, at(8, 0), at(9, 0))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].StartTime.Equal(at(8, 11)))
	assert.Equal(t, "4", list[0].ServiceID)
}

func TestGeneratorUsesDBAsChecker(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	schedule := slots.DaySchedule{StartTime: "09:00", EndTime: "17:00", SlotDuration: 60, Location: time.UTC}

	ok, err := NewSubmitter(db, schedule, nil).Submit(ctx, "slot-13", model.UserBooking{
		Name: "J", Email: "j@example.com", ServiceID: "1", Date: at(9, 0),
	})
	require.NoError(t, err)
	require.True(t, ok)

	gen := slots.NewGenerator(schedule,
		slots.WithChecker(db),
		slots.WithClock(func() time.Time { return at(1, 0) }),
	)
	got, err := gen.FetchSlots(ctx, at(9, 0))
	require.NoError(t, err)

	s, found := model.FindSlot(got, "slot-13")
	require.True(t, found)
	assert.False(t, s.Available)
	assert.Len(t, slots.GetAvailableSlots(got), 7)
}

func TestBackup(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateBooking(ctx, &model.StoredBooking{
		SlotID: "slot-9", ServiceID: "1", ClientName: "B", ClientEmail: "b@example.com",
		Date: at(2, 0), StartTime: at(2, 9), EndTime: at(2, 10),
	}))

	dir := filepath.Join(t.TempDir(), "backups")
	logger := zerolog.Nop()
	svc := NewBackupService(db, config.BackupConfig{Enabled: true, Path: dir, RetentionDays: 7}, time.Hour, &logger)

	path, err := svc.PerformBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)

	restored, err := Open(path)
	require.NoError(t, err)
	defer restored.Close()
	list, err := restored.ListBookings(ctx, at(1, 0), at(3, 0))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	old := filepath.Join(dir, "backup_old.db")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	assert.NoFileExists(t, old)
	assert.FileExists(t, path)
}
