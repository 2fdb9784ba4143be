package model

import "time"

// DefaultSlotDuration is the appointment granularity.
const DefaultSlotDuration = 60 * time.Minute

// TimeSlot is a bookable interval on one date. A change in availability
// produces a new TimeSlot; values are never updated in place.
type TimeSlot struct {
	ID        string    `json:"id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"is_available"`
}

// Duration returns End - Start.
func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Label formats the slot as "09:00-10:00".
func (s TimeSlot) Label() string {
	return s.Start.Format("15:04") + "-" + s.End.Format("15:04")
}

// FindSlot returns the slot with the given id.
func FindSlot(slots []TimeSlot, id string) (TimeSlot, bool) {
	for _, s := range slots {
		if s.ID == id {
			return s, true
		}
	}
	return TimeSlot{}, false
}
