package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"bookingdesk/internal/audit"
	"bookingdesk/internal/metrics"
	"bookingdesk/internal/model"
)

// MaxExportDaysRange bounds admin listing and export periods.
const MaxExportDaysRange = 366

// BookingsResponse is the response for GET /api/admin/bookings.
type BookingsResponse struct {
	Bookings []model.StoredBooking `json:"bookings"`
	Period   struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"period"`
}

// GET /api/admin/bookings?from=&to=
func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_bookings")

	from, to, err := s.exportPeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bookings, err := s.deps.Bookings.ListBookings(r.Context(), from, to)
	if err != nil {
		zerologCtx(r).Error().Err(err).Msg("list bookings failed")
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []model.StoredBooking{}
	}

	resp := BookingsResponse{Bookings: bookings}
	resp.Period.From = from.Format(dateLayout)
	resp.Period.To = to.AddDate(0, 0, -1).Format(dateLayout)
	writeJSON(w, http.StatusOK, resp)
}

// handleAdminExport streams the bookings of the period as an xlsx workbook.
// GET /api/admin/bookings.xlsx?from=&to=
func (s *HTTPServer) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_export")

	from, to, err := s.exportPeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	n, err := audit.ExportBookings(r.Context(), s.deps.Bookings, s.deps.Catalog, from, to, &buf)
	if err != nil {
		zerologCtx(r).Error().Err(err).Msg("export bookings failed")
		writeError(w, http.StatusInternalServerError, "failed to export bookings")
		return
	}

	name := fmt.Sprintf("bookings_%s_%s.xlsx", from.Format(dateLayout), to.AddDate(0, 0, -1).Format(dateLayout))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Booking-Count", fmt.Sprint(n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// exportPeriod parses the inclusive from/to dates into [from, to+1d).
// Without parameters it covers the current booking window.
func (s *HTTPServer) exportPeriod(r *http.Request) (from, to time.Time, err error) {
	q := r.URL.Query()
	window := s.window()

	from = s.today()
	if q.Get("from") != "" {
		if from, err = s.parseDate(q.Get("from")); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from format; expected YYYY-MM-DD")
		}
	}

	last := from
	if len(window) > 0 {
		last = window[len(window)-1]
	}
	if q.Get("to") != "" {
		if last, err = s.parseDate(q.Get("to")); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to format; expected YYYY-MM-DD")
		}
	}

	if from.After(last) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must be before or equal to to")
	}
	to = last.AddDate(0, 0, 1)
	if to.Sub(from) > MaxExportDaysRange*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("date range exceeds maximum of %d days", MaxExportDaysRange)
	}
	return from, to, nil
}
