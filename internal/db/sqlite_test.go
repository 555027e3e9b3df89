package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/javiermolinar/dayplan/internal/plan"
)

var testDate = time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)

func sampleTasks() []plan.TaskInput {
	return []plan.TaskInput{
		{Title: "Review PRs", StartTime: "14:00", EndTime: "15:00", Priority: plan.PriorityLow},
		{Title: "Write unit tests", Description: "Cover the grid", StartTime: "09:00", EndTime: "11:00", Priority: plan.PriorityHigh},
		{Title: "Standup", StartTime: "11:00", EndTime: "11:15", Duration: "15 minutes", Priority: plan.PriorityMedium},
	}
}

func TestUpsertPlan_CreatesAndUpdates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.UpsertPlan(ctx, testDate, 60, "first")
	if err != nil {
		t.Fatalf("UpsertPlan failed: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected ID to be set")
	}
	if !p.Date.Equal(testDate) || p.TZOffset != 60 || p.Explanation != "first" {
		t.Errorf("got plan %+v", p)
	}

	again, err := repo.UpsertPlan(ctx, testDate, 120, "second")
	if err != nil {
		t.Fatalf("UpsertPlan failed: %v", err)
	}
	if again.ID != p.ID {
		t.Errorf("upsert created a new plan: %s != %s", again.ID, p.ID)
	}
	if again.Explanation != "second" || again.TZOffset != 120 {
		t.Errorf("upsert did not update: %+v", again)
	}
}

func TestFindPlanByDate_Missing(t *testing.T) {
	repo := newTestRepo(t)

	p, err := repo.FindPlanByDate(context.Background(), testDate)
	if err != nil {
		t.Fatalf("FindPlanByDate failed: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil plan, got %+v", p)
	}
}

func TestCreateTasks_OrderedByStart(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.UpsertPlan(ctx, testDate, 0, "")
	if err != nil {
		t.Fatalf("UpsertPlan failed: %v", err)
	}

	n, err := repo.CreateTasks(ctx, p.ID, sampleTasks())
	if err != nil {
		t.Fatalf("CreateTasks failed: %v", err)
	}
	if n != 3 {
		t.Errorf("created %d tasks, want 3", n)
	}

	got, err := repo.FindPlanByDate(ctx, testDate)
	if err != nil {
		t.Fatalf("FindPlanByDate failed: %v", err)
	}
	if len(got.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(got.Tasks))
	}

	wantOrder := []string{"Write unit tests", "Standup", "Review PRs"}
	for i, want := range wantOrder {
		if got.Tasks[i].Title != want {
			t.Errorf("task %d = %q, want %q", i, got.Tasks[i].Title, want)
		}
		if got.Tasks[i].PlanID != p.ID {
			t.Errorf("task %d plan id = %q, want %q", i, got.Tasks[i].PlanID, p.ID)
		}
	}

	first := got.Tasks[0]
	if first.Description != "Cover the grid" || first.Priority != plan.PriorityHigh {
		t.Errorf("first task = %+v", first)
	}
	if first.Duration != "2 hours" {
		t.Errorf("derived duration = %q, want 2 hours", first.Duration)
	}
	if got.Tasks[1].Duration != "15 minutes" {
		t.Errorf("provided duration = %q, want 15 minutes", got.Tasks[1].Duration)
	}
}

func TestCreateTasks_InvalidRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, _ := repo.UpsertPlan(ctx, testDate, 0, "")
	tasks := append(sampleTasks(), plan.TaskInput{Title: "Broken", StartTime: "10:00", EndTime: "09:00", Priority: plan.PriorityLow})

	_, err := repo.CreateTasks(ctx, p.ID, tasks)
	if !errors.Is(err, plan.ErrEndBeforeStart) {
		t.Fatalf("CreateTasks error = %v, want ErrEndBeforeStart", err)
	}

	got, _ := repo.GetPlan(ctx, p.ID)
	if len(got.Tasks) != 0 {
		t.Errorf("expected no tasks after failed batch, got %d", len(got.Tasks))
	}
}

func TestReplacePlan_ReplacesTasks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.ReplacePlan(ctx, testDate, 0, "v1", sampleTasks())
	if err != nil {
		t.Fatalf("ReplacePlan failed: %v", err)
	}
	if len(first.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(first.Tasks))
	}

	second, err := repo.ReplacePlan(ctx, testDate, 0, "v2", []plan.TaskInput{
		{Title: "Only task", StartTime: "08:00", EndTime: "09:00", Priority: plan.PriorityHigh},
	})
	if err != nil {
		t.Fatalf("ReplacePlan failed: %v", err)
	}
	if second.ID != first.ID {
		t.Error("regenerating a date must keep the same plan")
	}
	if second.Explanation != "v2" {
		t.Errorf("explanation = %q, want v2", second.Explanation)
	}
	if len(second.Tasks) != 1 || second.Tasks[0].Title != "Only task" {
		t.Errorf("tasks = %+v, want only the new task", second.Tasks)
	}
}

func TestReplacePlan_AllOrNothing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.ReplacePlan(ctx, testDate, 0, "v1", sampleTasks()); err != nil {
		t.Fatalf("ReplacePlan failed: %v", err)
	}

	_, err := repo.ReplacePlan(ctx, testDate, 0, "v2", []plan.TaskInput{
		{Title: "Good", StartTime: "08:00", EndTime: "09:00", Priority: plan.PriorityHigh},
		{Title: "", StartTime: "09:00", EndTime: "10:00", Priority: plan.PriorityHigh},
	})
	if !errors.Is(err, plan.ErrEmptyTitle) {
		t.Fatalf("ReplacePlan error = %v, want ErrEmptyTitle", err)
	}

	got, err := repo.FindPlanByDate(ctx, testDate)
	if err != nil {
		t.Fatalf("FindPlanByDate failed: %v", err)
	}
	if got.Explanation != "v1" || len(got.Tasks) != 3 {
		t.Errorf("failed replace leaked: explanation %q, %d tasks", got.Explanation, len(got.Tasks))
	}

	// A failed first generation writes nothing at all.
	other := testDate.AddDate(0, 0, 1)
	_, err = repo.ReplacePlan(ctx, other, 0, "x", []plan.TaskInput{{Title: "Bad", StartTime: "9", EndTime: "10:00", Priority: plan.PriorityLow}})
	if err == nil {
		t.Fatal("expected error")
	}
	if p, _ := repo.FindPlanByDate(ctx, other); p != nil {
		t.Errorf("expected no plan for %s, got %+v", other.Format(plan.DateLayout), p)
	}
}

func TestUpdateTaskCompleted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, _ := repo.ReplacePlan(ctx, testDate, 0, "", sampleTasks())
	id := p.Tasks[0].ID

	if err := repo.UpdateTaskCompleted(ctx, id, true); err != nil {
		t.Fatalf("UpdateTaskCompleted failed: %v", err)
	}
	got, _ := repo.GetPlan(ctx, p.ID)
	task, _ := got.Task(id)
	if !task.Completed {
		t.Error("expected task to be completed")
	}

	if err := repo.UpdateTaskCompleted(ctx, id, false); err != nil {
		t.Fatalf("UpdateTaskCompleted failed: %v", err)
	}
	got, _ = repo.GetPlan(ctx, p.ID)
	task, _ = got.Task(id)
	if task.Completed {
		t.Error("expected task to be not completed")
	}

	if err := repo.UpdateTaskCompleted(ctx, "missing", true); !errors.Is(err, plan.ErrTaskNotFound) {
		t.Errorf("UpdateTaskCompleted error = %v, want ErrTaskNotFound", err)
	}
}

func TestToggler_AgainstSQLite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, _ := repo.ReplacePlan(ctx, testDate, 0, "", sampleTasks())
	id := p.Tasks[0].ID

	toggler := plan.Toggler{Repo: repo}
	if err := toggler.ToggleTaskCompletion(ctx, id, false); err != nil {
		t.Fatalf("ToggleTaskCompletion failed: %v", err)
	}
	got, _ := repo.GetPlan(ctx, p.ID)
	if task, _ := got.Task(id); !task.Completed {
		t.Error("expected completed after toggling from false")
	}
}

func TestDeletePlan_Cascades(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, _ := repo.ReplacePlan(ctx, testDate, 0, "", sampleTasks())
	taskID := p.Tasks[0].ID

	if err := repo.DeletePlan(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlan failed: %v", err)
	}

	if _, err := repo.GetPlan(ctx, p.ID); !errors.Is(err, plan.ErrPlanNotFound) {
		t.Errorf("GetPlan error = %v, want ErrPlanNotFound", err)
	}
	if err := repo.UpdateTaskCompleted(ctx, taskID, true); !errors.Is(err, plan.ErrTaskNotFound) {
		t.Errorf("task survived plan deletion: %v", err)
	}
	if err := repo.DeletePlan(ctx, p.ID); !errors.Is(err, plan.ErrPlanNotFound) {
		t.Errorf("second DeletePlan error = %v, want ErrPlanNotFound", err)
	}
}

func TestDeleteTasks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, _ := repo.ReplacePlan(ctx, testDate, 0, "", sampleTasks())
	if err := repo.DeleteTasks(ctx, p.ID); err != nil {
		t.Fatalf("DeleteTasks failed: %v", err)
	}
	got, err := repo.GetPlan(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if len(got.Tasks) != 0 {
		t.Errorf("got %d tasks, want 0", len(got.Tasks))
	}
}

func TestListPlans_NewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d := testDate.AddDate(0, 0, i)
		if _, err := repo.ReplacePlan(ctx, d, 0, d.Format(plan.DateLayout), sampleTasks()[:1]); err != nil {
			t.Fatalf("ReplacePlan failed: %v", err)
		}
	}

	plans, err := repo.ListPlans(ctx, testDate.AddDate(0, 0, 1), testDate.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("ListPlans failed: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("got %d plans, want 3", len(plans))
	}
	want := []string{"2025-01-12", "2025-01-11", "2025-01-10"}
	for i, w := range want {
		if plans[i].DateKey() != w {
			t.Errorf("plan %d date = %s, want %s", i, plans[i].DateKey(), w)
		}
		if len(plans[i].Tasks) != 1 {
			t.Errorf("plan %d has %d tasks, want 1", i, len(plans[i].Tasks))
		}
	}
}

func TestPagePlans(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d := testDate.AddDate(0, 0, i)
		if _, err := repo.ReplacePlan(ctx, d, 0, "", sampleTasks()[:2]); err != nil {
			t.Fatalf("ReplacePlan failed: %v", err)
		}
	}
	to := testDate.AddDate(0, 0, 3) // excludes 2025-01-13

	tests := []struct {
		name   string
		offset int
		limit  int
		want   []string
	}{
		{name: "first page", offset: 0, limit: 2, want: []string{"2025-01-12", "2025-01-11"}},
		{name: "last partial page", offset: 2, limit: 2, want: []string{"2025-01-10", "2025-01-09"}},
		{name: "past the end", offset: 4, limit: 2, want: nil},
		{name: "zero limit", offset: 0, limit: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plans, total, err := repo.PagePlans(ctx, to, tt.offset, tt.limit)
			if err != nil {
				t.Fatalf("PagePlans failed: %v", err)
			}
			if total != 4 {
				t.Errorf("total = %d, want 4", total)
			}
			if len(plans) != len(tt.want) {
				t.Fatalf("got %d plans, want %d", len(plans), len(tt.want))
			}
			for i, w := range tt.want {
				if plans[i].DateKey() != w {
					t.Errorf("plan %d date = %s, want %s", i, plans[i].DateKey(), w)
				}
				if len(plans[i].Tasks) != 2 {
					t.Errorf("plan %d has %d tasks, want 2", i, len(plans[i].Tasks))
				}
			}
		})
	}
}

func TestPlanDatesRoundTripStrictly(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Plan created just before midnight two hours east of UTC.
	local := time.Date(2025, 3, 10, 23, 45, 0, 0, time.FixedZone("EET", 2*60*60))
	date, offset := plan.CalendarDate(local)

	p, err := repo.UpsertPlan(ctx, date, offset, "")
	if err != nil {
		t.Fatalf("UpsertPlan failed: %v", err)
	}
	if p.DateKey() != "2025-03-10" {
		t.Errorf("DateKey() = %s, want 2025-03-10", p.DateKey())
	}
	if p.TZOffset != 120 {
		t.Errorf("TZOffset = %d, want 120", p.TZOffset)
	}
	if p.Date.Location() != time.UTC {
		t.Errorf("Date location = %v, want UTC", p.Date.Location())
	}
}

func newTestRepo(t *testing.T) *SQLite {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	repo, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create test repo: %v", err)
	}

	t.Cleanup(func() {
		_ = repo.Close()
	})

	return repo
}
