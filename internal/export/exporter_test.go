package export

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLogExporterAppend(t *testing.T) {
	var buf strings.Builder
	e := NewLogExporter(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := e.Append(context.Background(), Row{
		PatientName: "John Smith",
		PhoneNumber: "+15551112222",
		Doctor:      "Smith",
		Date:        "Monday",
		Time:        "10:00 AM",
		BookedAt:    time.Date(2025, 9, 1, 10, 2, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"booking exported", "John Smith", "+15551112222", "10:00 AM"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q: %s", want, out)
		}
	}
}
