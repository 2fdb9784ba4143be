// Package google appends confirmed bookings to a Google Sheets ledger.
package google

import (
	"context"
	"fmt"
	"os"
	"time"

	"bookingdesk/internal/events"
	"bookingdesk/internal/metrics"

	"github.com/rs/zerolog"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ValuesAppender appends rows to a sheet range.
type ValuesAppender interface {
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error
}

type sheetsAppender struct {
	svc *sheets.Service
}

func (a sheetsAppender) Append(ctx context.Context, spreadsheetID, rng string, rows [][]interface{}) error {
	_, err := a.svc.Spreadsheets.Values.
		Append(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// NewAppender builds a Sheets API appender from a service account key file.
func NewAppender(ctx context.Context, credentialsFile string) (ValuesAppender, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := googleoauth.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return sheetsAppender{svc: svc}, nil
}

const maxBatch = 50

// SheetsSync queues one row per confirmed booking and appends them in
// batches from Run.
type SheetsSync struct {
	appender      ValuesAppender
	spreadsheetID string
	sheetName     string
	queue         chan []interface{}
	logger        *zerolog.Logger
}

// NewSheetsSync creates a ledger sync.
func NewSheetsSync(appender ValuesAppender, spreadsheetID, sheetName string, logger *zerolog.Logger) *SheetsSync {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetsSync{
		appender:      appender,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		queue:         make(chan []interface{}, 500),
		logger:        logger,
	}
}

// HandleBookingConfirmed is an events.EventHandler for booking.confirmed.
func (s *SheetsSync) HandleBookingConfirmed(e events.Event) error {
	var p events.BookingConfirmedPayload
	if err := e.Decode(&p); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	select {
	case s.queue <- bookingRowValues(p, e.CreatedAt):
	default:
		metrics.IncNotification("sheets", "dropped")
		s.logger.Warn().Str("session_id", p.SessionID).Msg("sheets queue full, row dropped")
	}
	return nil
}

// Run appends queued rows until ctx is done.
func (s *SheetsSync) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case row := <-s.queue:
			rows := [][]interface{}{row}
		drain:
			for len(rows) < maxBatch {
				select {
				case r := <-s.queue:
					rows = append(rows, r)
				default:
					break drain
				}
			}
			s.flush(ctx, rows)
		}
	}
}

func (s *SheetsSync) flush(ctx context.Context, rows [][]interface{}) {
	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.appender.Append(callCtx, s.spreadsheetID, s.sheetName+"!A1", rows); err != nil {
		metrics.IncNotification("sheets", "failed")
		s.logger.Error().Err(err).Int("rows", len(rows)).Msg("sheets append failed")
		return
	}
	metrics.IncNotification("sheets", "sent")
	s.logger.Debug().Int("rows", len(rows)).Msg("bookings appended to sheet")
}

func bookingRowValues(p events.BookingConfirmedPayload, at time.Time) []interface{} {
	slot := p.Booking.SlotID
	if !p.Slot.Start.IsZero() {
		slot = p.Slot.Label()
	}
	return []interface{}{
		p.SessionID,
		p.Booking.Date.Format("2006-01-02"),
		slot,
		p.Service.Name,
		p.Service.Price,
		p.Booking.Name,
		p.Booking.Email,
		at.Format("2006-01-02 15:04:05"),
	}
}
