package export

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"hospital-voice-agent/internal/config"
)

const defaultRange = "Sheet1!A:F"

// SheetsExporter appends one row per finished booking to a Google Sheet.
type SheetsExporter struct {
	svc           *sheets.Service
	spreadsheetID string
	writeRange    string
}

func NewSheetsExporter(ctx context.Context, cfg config.SheetsConfig) (*SheetsExporter, error) {
	svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init sheets client: %w", err)
	}
	writeRange := cfg.Range
	if writeRange == "" {
		writeRange = defaultRange
	}
	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		writeRange:    writeRange,
	}, nil
}

func (e *SheetsExporter) Append(ctx context.Context, row Row) error {
	values := &sheets.ValueRange{
		Values: [][]any{{
			row.PatientName,
			row.PhoneNumber,
			row.Doctor,
			row.Date,
			row.Time,
			row.BookedAt.Format(time.RFC3339),
		}},
	}
	_, err := e.svc.Spreadsheets.Values.
		Append(e.spreadsheetID, e.writeRange, values).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append booking row: %w", err)
	}
	return nil
}
