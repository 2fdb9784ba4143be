package booking

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"bookingdesk/internal/model"
)

// State is the controller state.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateLoaded     State = "loaded"
	StateConfirming State = "confirming"
	StateConfirmed  State = "confirmed"
)

// Outcome is the result of the latest confirmation attempt.
type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeFailed    Outcome = "failed"
)

// Booker identifies the person booking. Nothing beyond its shape is verified.
type Booker struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Validate checks that a name is present and the email is well formed.
func (b Booker) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(b.Email) == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(b.Email)
	if err != nil || addr.Address != strings.TrimSpace(b.Email) {
		return errors.New("email is invalid")
	}
	return nil
}

// Snapshot is a copy of the selection state.
type Snapshot struct {
	State       State              `json:"state"`
	ServiceID   string             `json:"service_id,omitempty"`
	Service     *model.Service     `json:"service,omitempty"`
	Date        time.Time          `json:"date"`
	Window      []time.Time        `json:"window"`
	Slots       []model.TimeSlot   `json:"slots"`
	Loading     bool               `json:"loading"`
	SlotID      string             `json:"slot_id,omitempty"`
	Outcome     Outcome            `json:"outcome"`
	FetchError  string             `json:"fetch_error,omitempty"`
	SubmitError string             `json:"submit_error,omitempty"`
	Booking     *model.UserBooking `json:"booking,omitempty"`
}

// ChosenSlot returns the chosen slot if it is part of the held sequence.
func (s Snapshot) ChosenSlot() (model.TimeSlot, bool) {
	if s.SlotID == "" {
		return model.TimeSlot{}, false
	}
	return model.FindSlot(s.Slots, s.SlotID)
}
