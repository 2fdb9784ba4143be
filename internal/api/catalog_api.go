package api

import (
	"errors"
	"fmt"
	"net/http"

	"bookingdesk/internal/booking"
	"bookingdesk/internal/catalog"
	"bookingdesk/internal/metrics"
	"bookingdesk/internal/model"
	"bookingdesk/internal/remote"
)

// ServicesResponse is the response for GET /api/services.
type ServicesResponse struct {
	Services []model.Service `json:"services"`
}

// GroupedServicesResponse is the response for GET /api/services/grouped.
type GroupedServicesResponse struct {
	Groups []catalog.Group `json:"groups"`
}

// WindowResponse is the response for GET /api/window.
type WindowResponse struct {
	Today string   `json:"today"`
	Dates []string `json:"dates"`
}

// handleServices lists the catalog, optionally filtered by category.
// GET /api/services
func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("services")

	services := s.deps.Catalog.List()
	if cat := r.URL.Query().Get("category"); cat != "" {
		services = s.deps.Catalog.ByCategory(model.Category(cat))
	}
	if services == nil {
		services = []model.Service{}
	}
	writeJSON(w, http.StatusOK, ServicesResponse{Services: services})
}

// GET /api/services/grouped
func (s *HTTPServer) handleServicesGrouped(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("services_grouped")

	groups := s.deps.Catalog.Grouped()
	if groups == nil {
		groups = []catalog.Group{}
	}
	writeJSON(w, http.StatusOK, GroupedServicesResponse{Groups: groups})
}

// GET /api/window
func (s *HTTPServer) handleWindow(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("window")

	window := s.window()
	dates := make([]string, 0, len(window))
	for _, d := range window {
		dates = append(dates, d.Format(dateLayout))
	}
	writeJSON(w, http.StatusOK, WindowResponse{Today: s.today().Format(dateLayout), Dates: dates})
}

// handleSlots exposes the availability provider.
// GET /api/slots?date=YYYY-MM-DD
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")

	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := s.parseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slotList, err := s.deps.Provider.FetchSlots(r.Context(), date)
	if err != nil {
		zerologCtx(r).Error().Err(err).Str("date", raw).Msg("fetch slots failed")
		writeError(w, http.StatusBadGateway, "failed to fetch slots")
		return
	}
	if slotList == nil {
		slotList = []model.TimeSlot{}
	}
	writeJSON(w, http.StatusOK, remote.SlotsResponse{Date: raw, Slots: slotList})
}

// handleBook exposes the booking submitter.
// POST /api/book
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")

	var req remote.BookRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateBookRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.deps.Submitter.Submit(r.Context(), req.SlotID, req.Booking)
	if err != nil {
		zerologCtx(r).Error().Err(err).Str("slot_id", req.SlotID).Msg("submit booking failed")
		writeJSON(w, http.StatusBadGateway, remote.BookResponse{Success: false, Error: "booking could not be submitted"})
		return
	}
	writeJSON(w, http.StatusOK, remote.BookResponse{Success: ok})
}

func validateBookRequest(req *remote.BookRequest) error {
	if req.SlotID == "" {
		return errors.New("slot_id is required")
	}
	if req.Booking.SlotID != "" && req.Booking.SlotID != req.SlotID {
		return fmt.Errorf("booking.slot_id %q does not match slot_id %q", req.Booking.SlotID, req.SlotID)
	}
	if req.Booking.ServiceID == "" {
		return errors.New("booking.service_id is required")
	}
	if req.Booking.Date.IsZero() {
		return errors.New("booking.date is required")
	}
	if err := (booking.Booker{Name: req.Booking.Name, Email: req.Booking.Email}).Validate(); err != nil {
		return fmt.Errorf("booking: %w", err)
	}
	req.Booking.SlotID = req.SlotID
	return nil
}
