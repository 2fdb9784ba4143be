package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"bookingdesk/internal/model"
)

// BookingLister lists stored bookings starting in [from, to).
type BookingLister interface {
	ListBookings(ctx context.Context, from, to time.Time) ([]model.StoredBooking, error)
}

// ServiceLookup resolves service ids to names and prices.
type ServiceLookup interface {
	Get(id string) (model.Service, bool)
}

var bookingColumns = []string{
	"ID", "Date", "Start", "End", "Service", "Price", "Client", "Email", "Status", "Created",
}

// ExportBookings writes bookings in [from, to) to out, one sheet per
// month. It returns the number of exported bookings.
func ExportBookings(ctx context.Context, lister BookingLister, services ServiceLookup, from, to time.Time, out io.Writer) (int, error) {
	bookings, err := lister.ListBookings(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}

	wb := newWorkbook()
	defer wb.close()

	sheet := ""
	for _, b := range bookings {
		if name := b.StartTime.Format("2006-01"); name != sheet {
			if err := wb.addSheet(name); err != nil {
				return 0, err
			}
			if err := wb.writeHeader(bookingColumns); err != nil {
				return 0, err
			}
			sheet = name
		}
		if err := wb.writeRow(bookingRow(b, services)); err != nil {
			return 0, fmt.Errorf("write booking %s: %w", b.ID, err)
		}
	}

	if sheet == "" {
		if err := wb.addSheet("Bookings"); err != nil {
			return 0, err
		}
		if err := wb.writeHeader(bookingColumns); err != nil {
			return 0, err
		}
	}

	if err := wb.save(out); err != nil {
		return 0, fmt.Errorf("save workbook: %w", err)
	}
	return len(bookings), nil
}

func bookingRow(b model.StoredBooking, services ServiceLookup) []interface{} {
	name, price := b.ServiceID, 0.0
	if services != nil {
		if svc, ok := services.Get(b.ServiceID); ok {
			name, price = svc.Name, svc.Price
		}
	}
	return []interface{}{
		b.ID,
		b.StartTime.Format("2006-01-02"),
		b.StartTime.Format("15:04"),
		b.EndTime.Format("15:04"),
		name,
		price,
		b.ClientName,
		b.ClientEmail,
		b.Status,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
