// Package booking implements the availability selection flow and the
// booking modal that hosts it.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingdesk/internal/model"
)

// AvailabilityProvider returns the slots of one date, ascending by start.
// A failure returns an error and no slots.
type AvailabilityProvider interface {
	FetchSlots(ctx context.Context, date time.Time) ([]model.TimeSlot, error)
}

// BookingSubmitter accepts a booking request. It is not assumed to be
// idempotent; false with a nil error means the request was rejected.
type BookingSubmitter interface {
	Submit(ctx context.Context, slotID string, b model.UserBooking) (bool, error)
}

// ServiceLookup resolves service ids. *catalog.Catalog implements it.
type ServiceLookup interface {
	Get(id string) (model.Service, bool)
}

var (
	// ErrSubmissionRejected is returned when a submitter reports false.
	ErrSubmissionRejected = errors.New("booking rejected by submitter")
	// ErrModalOpen is returned when opening a modal that is already open.
	ErrModalOpen = errors.New("modal already open")
)

// FetchError wraps an availability failure for a date.
type FetchError struct {
	Date time.Time
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch slots for %s: %v", e.Date.Format("2006-01-02"), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SubmissionError wraps a failed booking submission.
type SubmissionError struct {
	SlotID string
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit booking for %s: %v", e.SlotID, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Recorder receives controller and modal measurements.
type Recorder interface {
	FetchObserved(outcome string, d time.Duration)
	SubmitObserved(outcome string, d time.Duration)
	ModalOpened()
	ModalClosed(reason string)
}

// Outcome labels passed to a Recorder.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

type nopRecorder struct{}

func (nopRecorder) FetchObserved(string, time.Duration)  {}
func (nopRecorder) SubmitObserved(string, time.Duration) {}
func (nopRecorder) ModalOpened()                         {}
func (nopRecorder) ModalClosed(string)                   {}
