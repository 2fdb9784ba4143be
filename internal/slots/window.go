package slots

import "time"

// DefaultWindowDays is the length of the rolling booking window.
const DefaultWindowDays = 14

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Window returns n consecutive calendar dates starting at today's date.
// Dates are midnights in today's location; AddDate keeps them aligned
// across DST changes.
func Window(today time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	start := StartOfDay(today)
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return dates
}

// InWindow reports whether date's calendar day is one of the window dates.
func InWindow(window []time.Time, date time.Time) bool {
	for _, d := range window {
		if SameDay(d, date) {
			return true
		}
	}
	return false
}
