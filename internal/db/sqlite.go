// Package db provides SQLite storage implementation.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/javiermolinar/dayplan/internal/plan"
)

var _ plan.Repository = (*SQLite)(nil)

// SQLite implements plan.Repository using SQLite.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite repository and runs migrations.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// dsn enables foreign keys on every pooled connection so deletes cascade.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

const planColumns = `id, date, tz_offset, explanation, created_at, updated_at`

const taskColumns = `id, plan_id, title, description, start_time, end_time, duration, priority, completed`

// FindPlanByDate returns the plan for a calendar date, or nil if none exists.
func (s *SQLite) FindPlanByDate(ctx context.Context, date time.Time) (*plan.Plan, error) {
	p, err := scanPlan(s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE date = ?`, formatDate(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	if err := loadTasks(ctx, s.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPlan retrieves a plan and its tasks by ID.
func (s *SQLite) GetPlan(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := scanPlan(s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, plan.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	if err := loadTasks(ctx, s.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPlans returns plans dated within [from, to], newest first.
func (s *SQLite) ListPlans(ctx context.Context, from, to time.Time) ([]*plan.Plan, error) {
	return s.queryPlans(ctx,
		`SELECT `+planColumns+` FROM plans WHERE date >= ? AND date <= ? ORDER BY date DESC`,
		formatDate(from), formatDate(to))
}

// PagePlans returns one page of plans dated on or before to, newest first.
func (s *SQLite) PagePlans(ctx context.Context, to time.Time, offset, limit int) ([]*plan.Plan, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans WHERE date <= ?`, formatDate(to)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting plans: %w", err)
	}
	if total == 0 || limit <= 0 || offset >= total {
		return nil, total, nil
	}

	plans, err := s.queryPlans(ctx,
		`SELECT `+planColumns+` FROM plans WHERE date <= ? ORDER BY date DESC LIMIT ? OFFSET ?`,
		formatDate(to), limit, max(offset, 0))
	if err != nil {
		return nil, 0, err
	}
	return plans, total, nil
}

// queryPlans runs a plan query and loads the tasks of every row.
func (s *SQLite) queryPlans(ctx context.Context, query string, args ...any) ([]*plan.Plan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plans []*plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("closing rows: %w", err)
	}

	for _, p := range plans {
		if err := loadTasks(ctx, s.db, p); err != nil {
			return nil, err
		}
	}
	return plans, nil
}

// UpsertPlan creates the plan for a date or updates its explanation.
func (s *SQLite) UpsertPlan(ctx context.Context, date time.Time, tzOffset int, explanation string) (*plan.Plan, error) {
	p, err := s.upsertPlan(ctx, s.db, date, tzOffset, explanation)
	if err != nil {
		return nil, err
	}
	if err := loadTasks(ctx, s.db, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLite) upsertPlan(ctx context.Context, q querier, date time.Time, tzOffset int, explanation string) (*plan.Plan, error) {
	now := s.now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO plans (id, date, tz_offset, explanation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			tz_offset = excluded.tz_offset,
			explanation = excluded.explanation,
			updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query,
		uuid.NewString(), formatDate(date), tzOffset, explanation, now, now,
	); err != nil {
		return nil, fmt.Errorf("upserting plan: %w", err)
	}

	p, err := scanPlan(q.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE date = ?`, formatDate(date)))
	if err != nil {
		return nil, fmt.Errorf("reading upserted plan: %w", err)
	}
	return p, nil
}

// DeleteTasks removes every task of a plan.
func (s *SQLite) DeleteTasks(ctx context.Context, planID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("deleting tasks: %w", err)
	}
	return nil
}

// CreateTasks adds multiple tasks in a batch using a transaction.
func (s *SQLite) CreateTasks(ctx context.Context, planID string, tasks []plan.TaskInput) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := s.insertTasks(ctx, tx, planID, tasks)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return n, nil
}

func (s *SQLite) insertTasks(ctx context.Context, tx *sql.Tx, planID string, tasks []plan.TaskInput) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := s.now().UTC().Format(time.RFC3339)
	for i := range tasks {
		in := tasks[i]
		if err := in.Validate(); err != nil {
			return 0, fmt.Errorf("task %q: %w", in.Title, err)
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), planID, in.Title, in.Description,
			in.StartTime, in.EndTime, in.Duration, string(in.Priority), false, now,
		); err != nil {
			return 0, fmt.Errorf("inserting task %q: %w", in.Title, err)
		}
	}
	return len(tasks), nil
}

// ReplacePlan upserts the plan for a date and replaces its tasks in one transaction.
func (s *SQLite) ReplacePlan(ctx context.Context, date time.Time, tzOffset int, explanation string, tasks []plan.TaskInput) (*plan.Plan, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p, err := s.upsertPlan(ctx, tx, date, tzOffset, explanation)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE plan_id = ?`, p.ID); err != nil {
		return nil, fmt.Errorf("deleting old tasks: %w", err)
	}
	if _, err := s.insertTasks(ctx, tx, p.ID, tasks); err != nil {
		return nil, err
	}
	if err := loadTasks(ctx, tx, p); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return p, nil
}

// UpdateTaskCompleted sets a task's completion flag.
func (s *SQLite) UpdateTaskCompleted(ctx context.Context, taskID string, completed bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE tasks SET completed = ? WHERE id = ?`, completed, taskID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", taskID, plan.ErrTaskNotFound)
	}
	return nil
}

// DeletePlan removes a plan; its tasks are removed by cascade.
func (s *SQLite) DeletePlan(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("plan %s: %w", id, plan.ErrPlanNotFound)
	}
	return nil
}

// Close releases database resources.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*plan.Plan, error) {
	var (
		p         plan.Plan
		date      string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&p.ID, &date, &p.TZOffset, &p.Explanation, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if p.Date, err = plan.ParseDate(date); err != nil {
		return nil, fmt.Errorf("parsing plan date: %w", err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated at: %w", err)
	}
	return &p, nil
}

func loadTasks(ctx context.Context, q querier, p *plan.Plan) error {
	rows, err := q.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE plan_id = ? ORDER BY start_time, title`, p.ID)
	if err != nil {
		return fmt.Errorf("querying tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	p.Tasks = []plan.Task{}
	for rows.Next() {
		var (
			t        plan.Task
			priority string
		)
		if err := rows.Scan(
			&t.ID, &t.PlanID, &t.Title, &t.Description,
			&t.StartTime, &t.EndTime, &t.Duration, &priority, &t.Completed,
		); err != nil {
			return fmt.Errorf("scanning task: %w", err)
		}
		t.Priority = plan.Priority(priority)
		p.Tasks = append(p.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating tasks: %w", err)
	}
	return nil
}

// formatDate is the single serialization used for plan dates.
func formatDate(d time.Time) string {
	return d.Format(plan.DateLayout)
}
