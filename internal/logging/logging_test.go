package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{" error ", slog.LevelError},
		{"garbage", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("WARN", &buf)

	log.Info("quiet", "key", "value")
	if buf.Len() != 0 {
		t.Fatalf("info record emitted below level: %q", buf.String())
	}

	log.Warn("loud", "key", "value")
	out := buf.String()
	if !strings.Contains(out, "loud") || !strings.Contains(out, "key=value") {
		t.Errorf("unexpected log output: %q", out)
	}
}
