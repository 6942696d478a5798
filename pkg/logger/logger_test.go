package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewTagsServiceAndEnv(t *testing.T) {
	l := New("prod")
	if l == nil {
		t.Fatalf("expected logger")
	}
	if l.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("prod logger must not emit debug")
	}
	if !New("dev").Enabled(context.Background(), slog.LevelDebug) {
		t.Fatalf("dev logger must emit debug")
	}
}

func TestFromFallsBackToDefault(t *testing.T) {
	if From(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger on bare context")
	}

	l := New("local")
	ctx := With(context.Background(), l)
	if From(ctx) != l {
		t.Fatalf("expected logger stored in context")
	}
}
