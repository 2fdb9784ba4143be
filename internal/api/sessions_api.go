package api

import (
	"net/http"

	"bookingdesk/internal/booking"
	"bookingdesk/internal/metrics"
)

// OpenSessionRequest is the optional body for POST /api/sessions.
type OpenSessionRequest struct {
	ServiceID string `json:"service_id,omitempty"`
}

// DateRequest is the body for POST /api/sessions/{id}/date.
type DateRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}

// ServiceRequest is the body for POST /api/sessions/{id}/service.
type ServiceRequest struct {
	ServiceID string `json:"service_id"`
}

// SlotRequest is the body for POST /api/sessions/{id}/slot.
type SlotRequest struct {
	SlotID string `json:"slot_id"`
}

// handleOpenSession opens a booking modal and waits for its first fetch.
// POST /api/sessions
func (s *HTTPServer) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("session_open")

	var req OpenSessionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess, err := s.deps.Sessions.Open(req.ServiceID)
	if err != nil {
		zerologCtx(r).Error().Err(err).Msg("open booking session failed")
		writeError(w, http.StatusInternalServerError, "failed to open session")
		return
	}
	sess.Controller().Wait()

	zerologCtx(r).Info().Str("session_id", sess.ID).Str("service_id", req.ServiceID).Msg("booking session opened")
	writeJSON(w, http.StatusCreated, sess.View())
}

// GET /api/sessions/{id}
func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("session_get")

	sess, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// POST /api/sessions/{id}/date
func (s *HTTPServer) handleSessionDate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("session_date")

	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var req DateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	s.applyEvent(w, sess, func(c *booking.Controller) bool { return c.SelectDate(date) })
}

// POST /api/sessions/{id}/service
func (s *HTTPServer) handleSessionService(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("session_service")

	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var req ServiceRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	s.applyEvent(w, sess, func(c *booking.Controller) bool { return c.SelectService(req.ServiceID) })
}

// POST /api/sessions/{id}/slot
func (s *HTTPServer) handleSessionSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("session_slot")

	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var req SlotRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SlotID == "" {
		writeError(w, http.StatusBadRequest, "slot_id is required")
		return
	}

	s.applyEvent(w, sess, func(c *booking.Controller) bool { return c.ClickSlot(req.SlotID) })
}

// handleSessionConfirm submits the booking and waits for the outcome.
// POST /api/sessions/{id}/confirm
func (s *HTTPServer) handleSessionConfirm(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("session_confirm")

	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var booker booking.Booker
	if err := decodeJSON(r, &booker, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := booker.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.applyEvent(w, sess, func(c *booking.Controller) bool { return c.Confirm(booker) })
}

// handleCloseSession closes the modal with the given reason.
// DELETE /api/sessions/{id}?reason=close-button|backdrop
func (s *HTTPServer) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("session_close")

	reason, ok := booking.ParseCloseReason(r.URL.Query().Get("reason"))
	if !ok {
		writeError(w, http.StatusBadRequest, "reason must be close-button or backdrop")
		return
	}

	sess, closed := s.deps.Sessions.Close(r.PathValue("id"), reason)
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if !closed {
		writeJSON(w, http.StatusGone, sess.View())
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

// applyEvent runs one controller event. A rejected event answers 409 with
// the unchanged snapshot; an accepted one waits for its async work.
func (s *HTTPServer) applyEvent(w http.ResponseWriter, sess *booking.Session, fn func(*booking.Controller) bool) {
	c := sess.Controller()
	if !fn(c) {
		writeJSON(w, http.StatusConflict, sess.View())
		return
	}
	c.Wait()
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *HTTPServer) lookupSession(w http.ResponseWriter, r *http.Request) (*booking.Session, bool) {
	sess, ok := s.deps.Sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// openSession is lookupSession for mutating endpoints: a closed session
// answers 410 with its final view.
func (s *HTTPServer) openSession(w http.ResponseWriter, r *http.Request) (*booking.Session, bool) {
	sess, ok := s.lookupSession(w, r)
	if !ok {
		return nil, false
	}
	if sess.Closed() {
		writeJSON(w, http.StatusGone, sess.View())
		return nil, false
	}
	return sess, true
}
