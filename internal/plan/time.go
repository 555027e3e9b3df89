package plan

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the only serialization used for calendar dates.
const DateLayout = "2006-01-02"

// MinutesPerDay is the number of minutes in a day.
const MinutesPerDay = 24 * 60

// ParseClock converts "HH:MM" to minutes since midnight.
// "24:00" is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTimeFormat
	}
	if s == "24:00" {
		return MinutesPerDay, nil
	}
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, ErrInvalidTimeFormat
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatClock converts minutes since midnight to "HH:MM".
// Values are clamped to [00:00, 24:00].
func FormatClock(m int) string {
	if m < 0 {
		m = 0
	}
	if m > MinutesPerDay {
		m = MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// FormatDuration renders minutes the way plans display them, e.g. "1 hour 30 minutes".
func FormatDuration(minutes int) string {
	if minutes <= 0 {
		return "0 minutes"
	}
	hours := minutes / 60
	mins := minutes % 60

	var parts []string
	switch {
	case hours == 1:
		parts = append(parts, "1 hour")
	case hours > 1:
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	switch {
	case mins == 1:
		parts = append(parts, "1 minute")
	case mins > 1:
		parts = append(parts, fmt.Sprintf("%d minutes", mins))
	}
	return strings.Join(parts, " ")
}

// ParseDate parses a YYYY-MM-DD calendar date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be in YYYY-MM-DD format", s)
	}
	return d, nil
}

// CalendarDate returns the calendar date of t (in t's location) at midnight UTC,
// together with t's offset from UTC in minutes.
func CalendarDate(t time.Time) (time.Time, int) {
	_, offset := t.Zone()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), offset / 60
}
