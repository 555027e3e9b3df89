// Package dateutil resolves user supplied dates into calendar dates.
//
// Calendar dates are always midnight UTC carrying the local year, month and day
// (see plan.CalendarDate), so a plan created late in the evening stays on the
// day the user saw.
package dateutil

import (
	"errors"
	"strings"
	"time"

	"github.com/javiermolinar/dayplan/internal/plan"
)

// Validation errors.
var (
	ErrInvalidDateFormat  = errors.New("date must be YYYY-MM-DD, today, yesterday, tomorrow or a weekday")
	ErrEndDateBeforeStart = errors.New("end date must be on or after start date")
)

var weekdayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether the calendar date d is inside the range.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Today returns the calendar date of now and its UTC offset in minutes.
func Today(now time.Time) (time.Time, int) {
	return plan.CalendarDate(now)
}

// Resolve parses s relative to now. Accepted inputs, case-insensitive:
//   - "" or "today"
//   - "yesterday", "tomorrow"
//   - a weekday name, "next-<weekday>": the next occurrence after today
//   - "last-<weekday>": the previous occurrence before today
//   - "YYYY-MM-DD"
//
// Past dates are allowed; history is browsable.
func Resolve(s string, now time.Time) (time.Time, error) {
	today, _ := plan.CalendarDate(now)
	input := strings.ToLower(strings.TrimSpace(s))

	switch input {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}

	if name, ok := strings.CutPrefix(input, "next-"); ok {
		if wd, ok := weekdayMap[name]; ok {
			return nextWeekday(today, wd), nil
		}
		return time.Time{}, ErrInvalidDateFormat
	}
	if name, ok := strings.CutPrefix(input, "last-"); ok {
		if wd, ok := weekdayMap[name]; ok {
			return lastWeekday(today, wd), nil
		}
		return time.Time{}, ErrInvalidDateFormat
	}
	if wd, ok := weekdayMap[input]; ok {
		return nextWeekday(today, wd), nil
	}

	d, err := time.Parse(plan.DateLayout, input)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return d, nil
}

// NewDateRange resolves both ends of a range. An empty from means days-1 days
// before to; an empty to means today.
func NewDateRange(from, to string, days int, now time.Time) (DateRange, error) {
	end, err := Resolve(to, now)
	if err != nil {
		return DateRange{}, err
	}

	var start time.Time
	if strings.TrimSpace(from) == "" {
		if days < 1 {
			days = 1
		}
		start = end.AddDate(0, 0, -(days - 1))
	} else {
		start, err = Resolve(from, now)
		if err != nil {
			return DateRange{}, err
		}
	}

	if end.Before(start) {
		return DateRange{}, ErrEndDateBeforeStart
	}
	return DateRange{From: start, To: end}, nil
}

// LastDays returns the range of the n calendar days ending today.
func LastDays(n int, now time.Time) DateRange {
	if n < 1 {
		n = 1
	}
	today, _ := plan.CalendarDate(now)
	return DateRange{From: today.AddDate(0, 0, -(n - 1)), To: today}
}

func nextWeekday(today time.Time, target time.Weekday) time.Time {
	days := int(target) - int(today.Weekday())
	if days <= 0 {
		days += 7
	}
	return today.AddDate(0, 0, days)
}

func lastWeekday(today time.Time, target time.Weekday) time.Time {
	days := int(today.Weekday()) - int(target)
	if days <= 0 {
		days += 7
	}
	return today.AddDate(0, 0, -days)
}
