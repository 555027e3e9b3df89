package plan

import (
	"context"
	"time"
)

// Repository defines the storage interface for plans and their tasks.
// Dates passed in are calendar dates at midnight UTC (see CalendarDate).
type Repository interface {
	// FindPlanByDate returns the plan for a date, or nil if there is none.
	FindPlanByDate(ctx context.Context, date time.Time) (*Plan, error)

	// GetPlan retrieves a plan and its tasks by ID.
	// Returns ErrPlanNotFound if it does not exist.
	GetPlan(ctx context.Context, id string) (*Plan, error)

	// ListPlans returns plans with dates in [from, to], newest first, with tasks.
	ListPlans(ctx context.Context, from, to time.Time) ([]*Plan, error)

	// PagePlans returns up to limit plans dated on or before to, newest first,
	// skipping the first offset, along with how many such plans exist.
	PagePlans(ctx context.Context, to time.Time, offset, limit int) ([]*Plan, int, error)

	// UpsertPlan creates the plan for a date or replaces its explanation.
	UpsertPlan(ctx context.Context, date time.Time, tzOffset int, explanation string) (*Plan, error)

	// DeleteTasks removes every task owned by the plan.
	DeleteTasks(ctx context.Context, planID string) error

	// CreateTasks adds tasks to a plan and returns how many were created.
	CreateTasks(ctx context.Context, planID string, tasks []TaskInput) (int, error)

	// ReplacePlan upserts the plan for a date and replaces all of its tasks
	// atomically. Nothing is written if any step fails.
	ReplacePlan(ctx context.Context, date time.Time, tzOffset int, explanation string, tasks []TaskInput) (*Plan, error)

	// UpdateTaskCompleted sets a task's completion flag.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateTaskCompleted(ctx context.Context, taskID string, completed bool) error

	// DeletePlan removes a plan and, by cascade, its tasks.
	DeletePlan(ctx context.Context, id string) error

	// Close releases any resources held by the repository.
	Close() error
}

// Toggler confirms completion toggles against a Repository.
type Toggler struct {
	Repo Repository
}

// ToggleTaskCompletion stores the negation of current, the value the task had
// before the user toggled it.
func (t Toggler) ToggleTaskCompletion(ctx context.Context, taskID string, current bool) error {
	return t.Repo.UpdateTaskCompleted(ctx, taskID, !current)
}
