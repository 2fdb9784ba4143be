package model

import "time"

// UserBooking is the payload handed to a booking submitter. It is built
// only at submission time.
type UserBooking struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	ServiceID string    `json:"service_id"`
	Date      time.Time `json:"date"`
	SlotID    string    `json:"slot_id"`
}

// StoredBooking is a booking persisted by the sqlite submitter.
type StoredBooking struct {
	ID          string    `json:"id"`
	SlotID      string    `json:"slot_id"`
	ServiceID   string    `json:"service_id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	Date        time.Time `json:"date"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Booking statuses.
const (
	StatusRequested = "requested"
	StatusCanceled  = "canceled"
)

// Duration returns the booked interval length.
func (b *StoredBooking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// OverlapsWith reports whether two bookings share any instant.
// Intervals are half-open: [start, end).
func (b *StoredBooking) OverlapsWith(start, end time.Time) bool {
	return b.StartTime.Before(end) && start.Before(b.EndTime)
}
