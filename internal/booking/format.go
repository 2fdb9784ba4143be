package booking

import (
	"fmt"
	"strings"

	"bookingdesk/internal/catalog"
	"bookingdesk/internal/model"
)

// FormatConfirmation renders a confirmed booking for the owner.
func FormatConfirmation(svc model.Service, b model.UserBooking, slot model.TimeSlot) string {
	var sb strings.Builder
	sb.WriteString("New booking request\n")
	fmt.Fprintf(&sb, "Service: %s (%s, $%.2f)\n", svc.Name, catalog.FormatDuration(svc.DurationMinutes), svc.Price)
	fmt.Fprintf(&sb, "Date: %s\n", b.Date.Format("Mon, 02 Jan 2006"))
	if !slot.Start.IsZero() {
		fmt.Fprintf(&sb, "Time: %s\n", slot.Label())
	} else {
		fmt.Fprintf(&sb, "Slot: %s\n", b.SlotID)
	}
	fmt.Fprintf(&sb, "Client: %s <%s>", b.Name, b.Email)
	return sb.String()
}
