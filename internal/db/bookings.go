package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookingdesk/internal/model"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a booking does not exist.
var ErrNotFound = errors.New("booking not found")

const dateLayout = "2006-01-02"

// CreateBooking inserts b, assigning its id and timestamps.
func (db *DB) CreateBooking(ctx context.Context, b *model.StoredBooking) error {
	now := time.Now().UTC()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = model.StatusRequested
	}
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := db.ExecContext(ctx, `
		INSERT INTO bookings (id, slot_id, service_id, client_name, client_email, date,
		                      start_time, end_time, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.SlotID, b.ServiceID, b.ClientName, b.ClientEmail, b.Date.Format(dateLayout),
		b.StartTime.UTC(), b.EndTime.UTC(), b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetBooking returns a booking by id.
func (db *DB) GetBooking(ctx context.Context, id string) (*model.StoredBooking, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, slot_id, service_id, client_name, client_email, date,
		       start_time, end_time, status, created_at, updated_at
		FROM bookings WHERE id = ?`, id)

	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

// ListBookings returns bookings starting in [from, to), ordered by start.
func (db *DB) ListBookings(ctx context.Context, from, to time.Time) ([]model.StoredBooking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, slot_id, service_id, client_name, client_email, date,
		       start_time, end_time, status, created_at, updated_at
		FROM bookings
		WHERE start_time >= ? AND start_time < ?
		ORDER BY start_time, created_at`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var result []model.StoredBooking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

// CancelBooking marks a booking canceled.
func (db *DB) CancelBooking(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status != ?",
		model.StatusCanceled, time.Now().UTC(), id, model.StatusCanceled,
	)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsSlotBooked reports whether a live booking overlaps [start, end).
func (db *DB) IsSlotBooked(ctx context.Context, start, end time.Time) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE status != ? AND start_time < ? AND end_time > ?`,
		model.StatusCanceled, end.UTC(), start.UTC(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return count > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (*model.StoredBooking, error) {
	var (
		b    model.StoredBooking
		date string
	)
	if err := s.Scan(
		&b.ID, &b.SlotID, &b.ServiceID, &b.ClientName, &b.ClientEmail, &date,
		&b.StartTime, &b.EndTime, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	b.Date = d
	return &b, nil
}
