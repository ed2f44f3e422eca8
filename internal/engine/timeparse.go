package engine

import (
	"regexp"
	"strconv"
	"time"
)

// windowPattern recognizes the single supported shorthand: "4-5pm". The
// meridiem applies to both ends. Anything else falls back to the default
// window; this is a deliberate simplification, not a scheduling NLP engine.
var windowPattern = regexp.MustCompile(`(\d{1,2})\s*-\s*(\d{1,2})\s*([ap])m`)

// MeetingWindow is a concrete start/end pair resolved from request text.
type MeetingWindow struct {
	Start time.Time
	End   time.Time
}

// ResolveMeetingWindow turns a timing expression plus day reference into a
// concrete window. The day defaults to tomorrow; "today" and "next_week"
// shift it. Unparseable expressions yield the configured default hours.
// Minutes and seconds are always zeroed.
func ResolveMeetingWindow(expression, dayRef string, now time.Time, defaultStartHour, defaultEndHour int) MeetingWindow {
	startHour, endHour, ok := parseWindowHours(expression)
	if !ok {
		startHour, endHour = defaultStartHour, defaultEndHour
	}

	day := now.AddDate(0, 0, 1)
	switch dayRef {
	case "today":
		day = now
	case "next_week":
		day = now.AddDate(0, 0, 7)
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, now.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, now.Location())
	return MeetingWindow{Start: start, End: end}
}

// parseWindowHours extracts 24h start/end hours from a "4-5pm" shorthand.
func parseWindowHours(expression string) (int, int, bool) {
	m := windowPattern.FindStringSubmatch(expression)
	if m == nil {
		return 0, 0, false
	}
	startHour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	endHour, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	if startHour < 1 || startHour > 12 || endHour < 1 || endHour > 12 {
		return 0, 0, false
	}
	if m[3] == "p" {
		if startHour != 12 {
			startHour += 12
		}
		if endHour != 12 {
			endHour += 12
		}
	} else {
		if startHour == 12 {
			startHour = 0
		}
		if endHour == 12 {
			endHour = 0
		}
	}
	return startHour, endHour, true
}
