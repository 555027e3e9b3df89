// Package plan defines the core domain types for dayplan.
package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrEmptyTitle        = errors.New("title cannot be empty")
	ErrInvalidPriority   = errors.New("priority must be HIGH, MEDIUM or LOW")
	ErrInvalidTimeFormat = errors.New("time must be in HH:MM format")
	ErrEndBeforeStart    = errors.New("end time must be after start time")
)

// Domain errors.
var (
	ErrPlanNotFound = errors.New("plan not found")
	ErrTaskNotFound = errors.New("task not found")
)

// Priority ranks a task within its plan.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// ParsePriority parses a priority, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", ErrInvalidPriority
	}
	return p, nil
}

// PriorityForRank assigns a priority from a task's position in the suggested order.
// The first third is HIGH, the second third MEDIUM and the rest LOW.
func PriorityForRank(index, total int) Priority {
	if total <= 0 {
		return PriorityLow
	}
	ratio := float64(index) / float64(total)
	switch {
	case ratio < 0.33:
		return PriorityHigh
	case ratio < 0.66:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Task is a single scheduled activity owned by a Plan.
type Task struct {
	ID          string
	PlanID      string
	Title       string
	Description string
	StartTime   string // "HH:MM"
	EndTime     string // "HH:MM"
	Duration    string // human readable, derived from start/end
	Priority    Priority
	Completed   bool
}

// StartMinutes returns the start time in minutes since midnight.
func (t Task) StartMinutes() (int, error) {
	return ParseClock(t.StartTime)
}

// EndMinutes returns the end time in minutes since midnight.
func (t Task) EndMinutes() (int, error) {
	return ParseClock(t.EndTime)
}

// DurationMinutes returns end minus start in minutes, or 0 if either time is invalid.
func (t Task) DurationMinutes() int {
	start, err1 := t.StartMinutes()
	end, err2 := t.EndMinutes()
	if err1 != nil || err2 != nil {
		return 0
	}
	return end - start
}

// IsHighPriority reports whether the task carries HIGH priority.
func (t Task) IsHighPriority() bool {
	return t.Priority == PriorityHigh
}

// Plan is the set of scheduled tasks for one calendar date.
type Plan struct {
	ID          string
	Date        time.Time // calendar date at midnight UTC
	TZOffset    int       // minutes east of UTC where the plan was created
	Explanation string
	Tasks       []Task // sorted by StartTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DateKey returns the plan's date as YYYY-MM-DD.
func (p *Plan) DateKey() string {
	return p.Date.Format(DateLayout)
}

// Task returns the task with the given id.
func (p *Plan) Task(id string) (Task, bool) {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// TaskInput holds the fields needed to create a task in bulk.
type TaskInput struct {
	Title       string
	Description string
	StartTime   string
	EndTime     string
	Duration    string
	Priority    Priority
}

// Validate checks the input and fills in a derived duration when missing.
func (in *TaskInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrEmptyTitle
	}
	if !in.Priority.Valid() {
		return ErrInvalidPriority
	}

	start, err := ParseClock(in.StartTime)
	if err != nil {
		return fmt.Errorf("start time: %w", err)
	}
	end, err := ParseClock(in.EndTime)
	if err != nil {
		return fmt.Errorf("end time: %w", err)
	}
	if end <= start {
		return ErrEndBeforeStart
	}

	if strings.TrimSpace(in.Duration) == "" {
		in.Duration = FormatDuration(end - start)
	}
	return nil
}
