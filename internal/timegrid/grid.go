// Package timegrid lays a day out as fixed-duration slots and places tasks on them.
package timegrid

import (
	"errors"
	"fmt"
	"time"

	"github.com/javiermolinar/dayplan/internal/plan"
)

// ErrInvalidWindow is matched by every *InvalidWindowError.
var ErrInvalidWindow = errors.New("invalid time grid window")

// Night hours are shaded differently in the views.
const (
	nightEndMinutes   = 6 * 60
	nightStartMinutes = 22 * 60
)

// InvalidWindowError reports malformed grid parameters.
type InvalidWindowError struct {
	Start       string
	End         string
	SlotMinutes int
	Reason      string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid time grid window %s-%s/%dm: %s", e.Start, e.End, e.SlotMinutes, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidWindow) match.
func (e *InvalidWindowError) Is(target error) bool {
	return target == ErrInvalidWindow
}

// Window describes the part of the day a grid covers.
type Window struct {
	Start       string // "HH:MM"
	End         string // "HH:MM", "24:00" for end of day
	SlotMinutes int
}

// Preset windows.
var (
	DefaultWindow = Window{Start: "06:00", End: "22:00", SlotMinutes: 30}
	FullDayWindow = Window{Start: "00:00", End: "24:00", SlotMinutes: 30}
)

// Slot is one fixed-duration unit of the grid.
type Slot struct {
	Index       int
	Minutes     int    // minutes since midnight
	Time        string // "HH:MM"
	Label       string // "9:30 AM"
	HourLabel   string // "9 AM"
	IsHourStart bool
	IsNight     bool
}

// Generate returns the ordered slots covering [start, end).
func Generate(start, end string, slotMinutes int) ([]Slot, error) {
	startMin, endMin, err := parseWindow(start, end, slotMinutes)
	if err != nil {
		return nil, err
	}

	count := (endMin - startMin) / slotMinutes
	slots := make([]Slot, 0, count)
	for i := 0; i < count; i++ {
		m := startMin + i*slotMinutes
		clock := time.Date(2000, 1, 1, m/60, m%60, 0, 0, time.UTC)
		slots = append(slots, Slot{
			Index:       i,
			Minutes:     m,
			Time:        plan.FormatClock(m),
			Label:       clock.Format("3:04 PM"),
			HourLabel:   clock.Format("3 PM"),
			IsHourStart: m%60 == 0,
			IsNight:     m < nightEndMinutes || m >= nightStartMinutes,
		})
	}
	return slots, nil
}

func parseWindow(start, end string, slotMinutes int) (int, int, error) {
	invalid := func(reason string) error {
		return &InvalidWindowError{Start: start, End: end, SlotMinutes: slotMinutes, Reason: reason}
	}

	startMin, err := plan.ParseClock(start)
	if err != nil {
		return 0, 0, invalid("start must be HH:MM")
	}
	endMin, err := plan.ParseClock(end)
	if err != nil {
		return 0, 0, invalid("end must be HH:MM")
	}
	if slotMinutes <= 0 {
		return 0, 0, invalid("slot duration must be positive")
	}
	if endMin <= startMin {
		return 0, 0, invalid("end must be after start")
	}
	if (endMin-startMin)%slotMinutes != 0 {
		return 0, 0, invalid("window is not a multiple of the slot duration")
	}
	return startMin, endMin, nil
}

// Grid is a generated window of slots.
type Grid struct {
	Window   Window
	Slots    []Slot
	startMin int
	endMin   int
}

// New generates the grid for a window.
func New(w Window) (Grid, error) {
	slots, err := Generate(w.Start, w.End, w.SlotMinutes)
	if err != nil {
		return Grid{}, err
	}
	startMin, _ := plan.ParseClock(w.Start)
	endMin, _ := plan.ParseClock(w.End)
	return Grid{Window: w, Slots: slots, startMin: startMin, endMin: endMin}, nil
}

// Len returns the number of slots.
func (g Grid) Len() int {
	return len(g.Slots)
}

// SlotMinutes returns the slot duration.
func (g Grid) SlotMinutes() int {
	return g.Window.SlotMinutes
}

// SlotIndex returns the slot containing the given minute of the day.
// A minute between boundaries belongs to the slot that starts at or before it.
func (g Grid) SlotIndex(minutes int) (int, bool) {
	if g.Window.SlotMinutes <= 0 || minutes < g.startMin || minutes >= g.endMin {
		return -1, false
	}
	return (minutes - g.startMin) / g.Window.SlotMinutes, true
}

// Contains reports whether the minute falls inside the window.
func (g Grid) Contains(minutes int) bool {
	_, ok := g.SlotIndex(minutes)
	return ok
}
