// Package export pushes finished bookings to external sinks. Sinks are
// best-effort: a failed append is logged by the caller and never fails the
// call that produced the booking.
package export

import (
	"context"
	"log/slog"
	"time"
)

// Row is one finished booking in export order.
type Row struct {
	PatientName string
	PhoneNumber string
	Doctor      string
	Date        string
	Time        string
	BookedAt    time.Time
}

type Exporter interface {
	Append(ctx context.Context, row Row) error
}

// LogExporter records rows to the structured log. It is the fallback sink
// when no spreadsheet is configured, and keeps finished bookings visible in
// local development.
type LogExporter struct {
	log *slog.Logger
}

func NewLogExporter(log *slog.Logger) *LogExporter {
	return &LogExporter{log: log}
}

func (e *LogExporter) Append(_ context.Context, row Row) error {
	e.log.Info("booking exported",
		slog.String("patient_name", row.PatientName),
		slog.String("phone_number", row.PhoneNumber),
		slog.String("doctor", row.Doctor),
		slog.String("date", row.Date),
		slog.String("time", row.Time),
		slog.Time("booked_at", row.BookedAt),
	)
	return nil
}
