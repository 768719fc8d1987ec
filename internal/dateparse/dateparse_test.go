package dateparse

import (
	"testing"
	"time"
)

// Wednesday 2026-03-11.
var ref = time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC)

func TestParseFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"today", "2026-03-11"},
		{"yesterday", "2026-03-10"},
		{"tomorrow", "2026-03-12"},
		{"last week", "2026-03-04"},
		{"lastweek", "2026-03-04"},
		{"last month", "2026-02-11"},
		{"start of month", "2026-03-01"},
		{"som", "2026-03-01"},
		{"monday", "2026-03-09"},
		{"wednesday", "2026-03-04"}, // same weekday means a week back
		{"friday", "2026-03-06"},
		{"-3", "2026-03-08"},
		{"+2", "2026-03-13"},
		{"2026-01-15", "2026-01-15"},
		{"  TODAY  ", "2026-03-11"},
		{"someday", ""},
		{"2026-13-40", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseFrom(tt.input, ref); got != tt.want {
			t.Errorf("ParseFrom(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseUsesNow(t *testing.T) {
	if got := Parse("today"); got != time.Now().Format("2006-01-02") {
		t.Errorf("Parse(today) = %q", got)
	}
}
