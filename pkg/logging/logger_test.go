package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  log.Level
	}{
		{"debug", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"nonsense", log.InfoLevel},
		{"", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := New(&bytes.Buffer{}, tt.level)
			if l.GetLevel() != tt.want {
				t.Errorf("New(%q) level = %v, want %v", tt.level, l.GetLevel(), tt.want)
			}
		})
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info("hidden")
	l.Warn("stash directory missing", "path", "/srv/stash")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "stash directory missing") || !strings.Contains(out, "/srv/stash") {
		t.Errorf("expected warn message with fields, got %q", out)
	}
	if !strings.Contains(out, "stasher") {
		t.Errorf("expected prefix in output, got %q", out)
	}
}

func TestGet_ReturnsSameLogger(t *testing.T) {
	if Get() != Get() {
		t.Error("Get() should return the process-wide logger")
	}
}
