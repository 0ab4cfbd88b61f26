package commands

import (
	"testing"
	"time"
)

func TestExtractTimestamp(t *testing.T) {
	tests := []struct {
		name string
		line string
		want time.Time
	}{
		{
			name: "text format",
			line: "[2026-01-15 10:30:45] [INFO] Upload session created",
			want: time.Date(2026, 1, 15, 10, 30, 45, 0, time.Local),
		},
		{
			name: "json format",
			line: `{"time":"2026-01-15T10:30:45.123Z","level":"INFO","msg":"Upload session created"}`,
			want: time.Date(2026, 1, 15, 10, 30, 45, 123000000, time.UTC),
		},
		{
			name: "json format with offset",
			line: `{"time":"2026-01-15T10:30:45+02:00","level":"WARN","msg":"x"}`,
			want: time.Date(2026, 1, 15, 10, 30, 45, 0, time.FixedZone("", 2*3600)),
		},
		{
			name: "no timestamp",
			line: "plain line without any timestamp",
			want: time.Time{},
		},
		{
			name: "malformed bracket",
			line: "[not a timestamp] something",
			want: time.Time{},
		},
		{
			name: "empty line",
			line: "",
			want: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTimestamp(tt.line)
			if !got.Equal(tt.want) {
				t.Errorf("extractTimestamp(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}
