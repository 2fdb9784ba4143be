// Package api serves the booking desk over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"bookingdesk/internal/audit"
	"bookingdesk/internal/booking"
	"bookingdesk/internal/catalog"
	"bookingdesk/internal/slots"

	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// Config configures the HTTP server.
type Config struct {
	Address    string
	APIKey     string
	RPS        float64
	Burst      int
	WindowDays int
	Location   *time.Location
	Now        func() time.Time
}

// Deps are the components the handlers drive.
type Deps struct {
	Catalog   *catalog.Catalog
	Provider  booking.AvailabilityProvider
	Submitter booking.BookingSubmitter
	Sessions  *booking.SessionStore
	Bookings  audit.BookingLister
}

// HTTPServer exposes the catalog, the provider and submitter contracts,
// booking sessions and the admin export.
type HTTPServer struct {
	server *http.Server
	cfg    Config
	deps   Deps
	logger *zerolog.Logger
}

// NewHTTPServer wires routes and middleware.
func NewHTTPServer(cfg Config, deps Deps, logger *zerolog.Logger) *HTTPServer {
	if cfg.Address == "" {
		cfg.Address = ":8080"
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = slots.DefaultWindowDays
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &HTTPServer{cfg: cfg, deps: deps, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/services", s.handleServices)
	mux.HandleFunc("GET /api/services/grouped", s.handleServicesGrouped)
	mux.HandleFunc("GET /api/window", s.handleWindow)
	mux.HandleFunc("GET /api/slots", s.handleSlots)
	mux.HandleFunc("POST /api/book", s.handleBook)

	mux.HandleFunc("POST /api/sessions", s.handleOpenSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{id}/date", s.handleSessionDate)
	mux.HandleFunc("POST /api/sessions/{id}/service", s.handleSessionService)
	mux.HandleFunc("POST /api/sessions/{id}/slot", s.handleSessionSlot)
	mux.HandleFunc("POST /api/sessions/{id}/confirm", s.handleSessionConfirm)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleCloseSession)

	mux.Handle("GET /api/admin/bookings", s.requireAPIKey(http.HandlerFunc(s.handleAdminBookings)))
	mux.Handle("GET /api/admin/bookings.xlsx", s.requireAPIKey(http.HandlerFunc(s.handleAdminExport)))

	limiter := newIPLimiter(cfg.RPS, cfg.Burst)
	handler := s.recoverer(s.requestLogger(limiter.middleware(mux)))

	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) today() time.Time {
	return slots.StartOfDay(s.cfg.Now().In(s.cfg.Location))
}

func (s *HTTPServer) window() []time.Time {
	return slots.Window(s.today(), s.cfg.WindowDays)
}

func (s *HTTPServer) parseDate(v string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, v, s.cfg.Location)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON decodes a request body strictly. An empty body leaves v as is
// when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
