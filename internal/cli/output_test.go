package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"RFC3339 с наносекундами", "2026-08-31T12:04:05.123456Z", "2026-08-31 12:04:05"},
		{"смещение приводится к UTC", "2026-08-31T15:04:05+03:00", "2026-08-31 12:04:05"},
		{"пустое значение", "", ""},
		{"неразбираемое значение проходит как есть", "soon", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatTime(tt.in); got != tt.want {
				t.Errorf("formatTime(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTableFillsEmptyCells(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{w: &buf, errW: &buf}

	out.Table(
		[]string{"ID", "STATUS", "FINISHED"},
		[][]string{{"run-1", "RUNNING", ""}},
	)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[2], "-") {
		t.Errorf("empty cell not dashed: %q", lines[2])
	}
}
