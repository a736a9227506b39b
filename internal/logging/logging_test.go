package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"":      slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Errorf("expected error for unknown level")
	}
}

func TestNewWithLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithLevel(&buf, slog.LevelWarn, true)
	l.Info("hidden")
	l.Warn("shown", "node", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"node":3`) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := NewWithLevel(&bytes.Buffer{}, slog.LevelInfo, false)
	if got := FromContext(NewContext(context.Background(), l)); got != l {
		t.Fatalf("logger not stored in context")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
}
