package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveMeetingWindow(t *testing.T) {
	// Tuesday morning.
	now := time.Date(2025, 3, 11, 9, 30, 45, 0, time.UTC)

	tests := []struct {
		name       string
		expression string
		dayRef     string
		wantDay    int
		wantStart  int
		wantEnd    int
	}{
		{
			name:       "afternoon range tomorrow",
			expression: "4-5pm",
			dayRef:     "tomorrow",
			wantDay:    12,
			wantStart:  16,
			wantEnd:    17,
		},
		{
			name:       "range with no day ref defaults to tomorrow",
			expression: "4-5pm",
			wantDay:    12,
			wantStart:  16,
			wantEnd:    17,
		},
		{
			name:       "morning range today",
			expression: "9-10am",
			dayRef:     "today",
			wantDay:    11,
			wantStart:  9,
			wantEnd:    10,
		},
		{
			name:       "next week shifts seven days",
			expression: "2-3pm",
			dayRef:     "next_week",
			wantDay:    18,
			wantStart:  14,
			wantEnd:    15,
		},
		{
			name:       "noon boundary",
			expression: "12-1pm",
			wantDay:    12,
			wantStart:  12,
			wantEnd:    13,
		},
		{
			name:      "unparseable expression falls back to defaults",
			wantDay:   12,
			wantStart: 16,
			wantEnd:   17,
		},
		{
			name:       "prose expression falls back to defaults",
			expression: "sometime in the afternoon",
			wantDay:    12,
			wantStart:  16,
			wantEnd:    17,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ResolveMeetingWindow(tt.expression, tt.dayRef, now, 16, 17)

			assert.Equal(t, tt.wantDay, w.Start.Day())
			assert.Equal(t, tt.wantStart, w.Start.Hour())
			assert.Equal(t, tt.wantEnd, w.End.Hour())
			assert.Equal(t, 0, w.Start.Minute())
			assert.Equal(t, 0, w.Start.Second())
			assert.Equal(t, 0, w.End.Minute())
			assert.Equal(t, now.Location(), w.Start.Location())
		})
	}
}

func TestParseWindowHours(t *testing.T) {
	tests := []struct {
		expression string
		start, end int
		ok         bool
	}{
		{"4-5pm", 16, 17, true},
		{"4 - 5 pm", 16, 17, true},
		{"9-10am", 9, 10, true},
		{"12-1am", 0, 1, true},
		{"tomorrow", 0, 0, false},
		{"", 0, 0, false},
		{"13-14pm", 0, 0, false},
	}
	for _, tt := range tests {
		start, end, ok := parseWindowHours(tt.expression)
		assert.Equal(t, tt.ok, ok, tt.expression)
		if tt.ok {
			assert.Equal(t, tt.start, start, tt.expression)
			assert.Equal(t, tt.end, end, tt.expression)
		}
	}
}
