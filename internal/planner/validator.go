package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/javiermolinar/dayplan/internal/llm"
	"github.com/javiermolinar/dayplan/internal/plan"
)

// ValidationError represents a single validation error for a suggested task.
type ValidationError struct {
	TaskIndex int    // Index of the task in the suggestion
	Field     string // "content", "startTime", "endTime"
	Message   string
}

// String returns a formatted error message.
func (e ValidationError) String() string {
	return fmt.Sprintf("Task %d: %s - %s", e.TaskIndex, e.Field, e.Message)
}

// ValidationResult contains the result of validating a suggestion.
// Warnings never block saving.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []string
}

// FormatErrors returns the errors as feedback for the model.
func (r ValidationResult) FormatErrors() string {
	if len(r.Errors) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Your response had these errors:\n")
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "- %s\n", e.String())
	}
	b.WriteString("\nPlease correct these issues and respond again with valid JSON.")
	return b.String()
}

// Validator checks suggested tasks against the submitted titles.
type Validator struct {
	titles []string
}

// NewValidator creates a Validator for the titles that were submitted.
func NewValidator(titles []string) *Validator {
	return &Validator{titles: titles}
}

type timedTask struct {
	index      int
	content    string
	start, end int
}

// Validate checks field formats, then reports overlaps and titles the
// model left out as warnings.
func (v *Validator) Validate(tasks []llm.SuggestedTask) ValidationResult {
	var result ValidationResult
	timed := make([]timedTask, 0, len(tasks))

	for i, t := range tasks {
		if strings.TrimSpace(t.Content) == "" {
			result.Errors = append(result.Errors, ValidationError{
				TaskIndex: i,
				Field:     "content",
				Message:   "must not be empty",
			})
		}

		start, startErr := plan.ParseClock(t.StartTime)
		if startErr != nil {
			result.Errors = append(result.Errors, ValidationError{
				TaskIndex: i,
				Field:     "startTime",
				Message:   fmt.Sprintf("'%s' is invalid (must be HH:MM format, 00:00-23:59)", t.StartTime),
			})
		}
		end, endErr := plan.ParseClock(t.EndTime)
		if endErr != nil {
			result.Errors = append(result.Errors, ValidationError{
				TaskIndex: i,
				Field:     "endTime",
				Message:   fmt.Sprintf("'%s' is invalid (must be HH:MM format, up to 24:00)", t.EndTime),
			})
		}
		if startErr != nil || endErr != nil {
			continue
		}
		if end <= start {
			result.Errors = append(result.Errors, ValidationError{
				TaskIndex: i,
				Field:     "endTime",
				Message:   fmt.Sprintf("end time '%s' must be after start time '%s'", t.EndTime, t.StartTime),
			})
			continue
		}
		timed = append(timed, timedTask{index: i, content: t.Content, start: start, end: end})
	}

	result.Warnings = append(result.Warnings, overlapWarnings(timed)...)
	result.Warnings = append(result.Warnings, v.missingTitles(tasks)...)
	result.Valid = len(result.Errors) == 0
	return result
}

func overlapWarnings(tasks []timedTask) []string {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].start < tasks[j].start
	})

	var warnings []string
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks) && tasks[j].start < tasks[i].end; j++ {
			warnings = append(warnings, fmt.Sprintf("%q (%s-%s) overlaps %q (%s-%s)",
				tasks[j].content, plan.FormatClock(tasks[j].start), plan.FormatClock(tasks[j].end),
				tasks[i].content, plan.FormatClock(tasks[i].start), plan.FormatClock(tasks[i].end)))
		}
	}
	return warnings
}

func (v *Validator) missingTitles(tasks []llm.SuggestedTask) []string {
	scheduled := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		scheduled[normalize(t.Content)] = true
	}

	var warnings []string
	for _, title := range v.titles {
		if !scheduled[normalize(title)] {
			warnings = append(warnings, fmt.Sprintf("%q was not scheduled", title))
		}
	}
	return warnings
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
