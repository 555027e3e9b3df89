package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // registers the "sqlite" driver used below

	"github.com/javiermolinar/dayplan/internal/plan"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

// newTestStore runs the gorm repository against a file-backed SQLite database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "plans.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	gdb, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	s, err := New(gdb)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func morning() []plan.TaskInput {
	return []plan.TaskInput{
		{Title: "Inbox zero", StartTime: "11:00", EndTime: "11:30", Priority: plan.PriorityLow},
		{Title: "Design review", StartTime: "09:30", EndTime: "10:30", Priority: plan.PriorityHigh},
		{Title: "Breakfast", StartTime: "08:00", EndTime: "08:30", Priority: plan.PriorityMedium},
	}
}

func TestStore_ReplacePlanOrdersTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.ReplacePlan(ctx, day, -120, "Meetings late.", morning())
	if err != nil {
		t.Fatalf("ReplacePlan() error = %v", err)
	}
	if p.DateKey() != "2025-03-14" || p.TZOffset != -120 || p.Explanation != "Meetings late." {
		t.Errorf("plan = %+v", p)
	}

	want := []string{"Breakfast", "Design review", "Inbox zero"}
	if len(p.Tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(p.Tasks), len(want))
	}
	for i, title := range want {
		if p.Tasks[i].Title != title || p.Tasks[i].PlanID != p.ID {
			t.Errorf("task %d = %+v, want %s", i, p.Tasks[i], title)
		}
	}

	found, err := s.FindPlanByDate(ctx, day)
	if err != nil {
		t.Fatalf("FindPlanByDate() error = %v", err)
	}
	if found == nil || found.ID != p.ID || len(found.Tasks) != 3 {
		t.Errorf("FindPlanByDate() = %+v", found)
	}
}

func TestStore_ReplacePlanKeepsIDAndSwapsTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _ := s.ReplacePlan(ctx, day, 0, "v1", morning())
	second, err := s.ReplacePlan(ctx, day, 60, "v2", []plan.TaskInput{
		{Title: "Walk", StartTime: "07:00", EndTime: "07:45", Priority: plan.PriorityLow},
	})
	if err != nil {
		t.Fatalf("ReplacePlan() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert on %s created plan %s, want %s", day.Format(plan.DateLayout), second.ID, first.ID)
	}
	if second.Explanation != "v2" || second.TZOffset != 60 {
		t.Errorf("plan not updated: %+v", second)
	}
	if len(second.Tasks) != 1 || second.Tasks[0].Title != "Walk" {
		t.Errorf("tasks = %+v", second.Tasks)
	}
}

func TestStore_ReplacePlanRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplacePlan(ctx, day, 0, "kept", morning()); err != nil {
		t.Fatalf("ReplacePlan() error = %v", err)
	}

	bad := []plan.TaskInput{
		{Title: "Fine", StartTime: "06:00", EndTime: "07:00", Priority: plan.PriorityHigh},
		{Title: "Backwards", StartTime: "12:00", EndTime: "11:00", Priority: plan.PriorityHigh},
	}
	if _, err := s.ReplacePlan(ctx, day, 30, "lost", bad); !errors.Is(err, plan.ErrEndBeforeStart) {
		t.Fatalf("ReplacePlan() error = %v, want ErrEndBeforeStart", err)
	}

	got, err := s.FindPlanByDate(ctx, day)
	if err != nil {
		t.Fatalf("FindPlanByDate() error = %v", err)
	}
	if got.Explanation != "kept" || got.TZOffset != 0 || len(got.Tasks) != 3 {
		t.Errorf("failed replace leaked: %+v", got)
	}

	next := day.AddDate(0, 0, 1)
	if _, err := s.ReplacePlan(ctx, next, 0, "none", bad); err == nil {
		t.Fatal("ReplacePlan() expected error")
	}
	if p, _ := s.FindPlanByDate(ctx, next); p != nil {
		t.Errorf("failed first replace wrote %+v", p)
	}
}

func TestStore_UpsertPlanOnConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.UpsertPlan(ctx, day, 0, "draft")
	if err != nil {
		t.Fatalf("UpsertPlan() error = %v", err)
	}
	if _, err := s.CreateTasks(ctx, created.ID, morning()[:1]); err != nil {
		t.Fatalf("CreateTasks() error = %v", err)
	}

	updated, err := s.UpsertPlan(ctx, day, 330, "final")
	if err != nil {
		t.Fatalf("UpsertPlan() error = %v", err)
	}
	if updated.ID != created.ID || updated.Explanation != "final" || updated.TZOffset != 330 {
		t.Errorf("upsert = %+v, want same plan updated", updated)
	}
	if len(updated.Tasks) != 1 {
		t.Errorf("upsert touched tasks: %+v", updated.Tasks)
	}
}

func TestStore_UpdateTaskCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.ReplacePlan(ctx, day, 0, "", morning())
	id := p.Tasks[0].ID

	tests := []struct {
		name      string
		taskID    string
		completed bool
		wantErr   error
	}{
		{name: "complete", taskID: id, completed: true},
		{name: "unchanged value", taskID: id, completed: true},
		{name: "reopen", taskID: id, completed: false},
		{name: "missing task", taskID: "no-such-task", completed: true, wantErr: plan.ErrTaskNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpdateTaskCompleted(ctx, tt.taskID, tt.completed)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UpdateTaskCompleted() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			got, _ := s.GetPlan(ctx, p.ID)
			if task, _ := got.Task(id); task.Completed != tt.completed {
				t.Errorf("completed = %v, want %v", task.Completed, tt.completed)
			}
		})
	}
}

func TestStore_DeletePlanRemovesTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.ReplacePlan(ctx, day, 0, "", morning())
	other, _ := s.ReplacePlan(ctx, day.AddDate(0, 0, 1), 0, "", morning()[:1])

	if err := s.DeletePlan(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlan() error = %v", err)
	}
	if _, err := s.GetPlan(ctx, p.ID); !errors.Is(err, plan.ErrPlanNotFound) {
		t.Errorf("GetPlan() error = %v, want ErrPlanNotFound", err)
	}

	var orphans int64
	if err := s.db.Model(&taskRecord{}).Where("plan_id = ?", p.ID).Count(&orphans).Error; err != nil {
		t.Fatalf("counting tasks: %v", err)
	}
	if orphans != 0 {
		t.Errorf("%d tasks survived their plan", orphans)
	}

	kept, err := s.GetPlan(ctx, other.ID)
	if err != nil || len(kept.Tasks) != 1 {
		t.Errorf("other plan affected: %+v, %v", kept, err)
	}

	if err := s.DeletePlan(ctx, p.ID); !errors.Is(err, plan.ErrPlanNotFound) {
		t.Errorf("second DeletePlan() error = %v, want ErrPlanNotFound", err)
	}
}

func TestStore_DeleteTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, _ := s.ReplacePlan(ctx, day, 0, "still here", morning())
	if err := s.DeleteTasks(ctx, p.ID); err != nil {
		t.Fatalf("DeleteTasks() error = %v", err)
	}
	got, err := s.GetPlan(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlan() error = %v", err)
	}
	if got.Explanation != "still here" || len(got.Tasks) != 0 {
		t.Errorf("after DeleteTasks = %+v", got)
	}
}

func TestStore_ListAndPagePlans(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := s.ReplacePlan(ctx, day.AddDate(0, 0, -i), 0, "", morning()[:2]); err != nil {
			t.Fatalf("ReplacePlan() error = %v", err)
		}
	}

	listed, err := s.ListPlans(ctx, day.AddDate(0, 0, -2), day)
	if err != nil {
		t.Fatalf("ListPlans() error = %v", err)
	}
	wantList := []string{"2025-03-14", "2025-03-13", "2025-03-12"}
	if len(listed) != len(wantList) {
		t.Fatalf("ListPlans() returned %d plans, want %d", len(listed), len(wantList))
	}
	for i, w := range wantList {
		if listed[i].DateKey() != w || len(listed[i].Tasks) != 2 {
			t.Errorf("plan %d = %s with %d tasks", i, listed[i].DateKey(), len(listed[i].Tasks))
		}
	}

	page, total, err := s.PagePlans(ctx, day.AddDate(0, 0, -1), 1, 5)
	if err != nil {
		t.Fatalf("PagePlans() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	wantPage := []string{"2025-03-12", "2025-03-11"}
	if len(page) != len(wantPage) {
		t.Fatalf("PagePlans() returned %d plans, want %d", len(page), len(wantPage))
	}
	for i, w := range wantPage {
		if page[i].DateKey() != w || len(page[i].Tasks) != 2 {
			t.Errorf("page plan %d = %s with %d tasks", i, page[i].DateKey(), len(page[i].Tasks))
		}
	}

	empty, total, err := s.PagePlans(ctx, day, 10, 5)
	if err != nil || len(empty) != 0 || total != 4 {
		t.Errorf("PagePlans() past the end = %d plans, total %d, err %v", len(empty), total, err)
	}
}

func TestStore_FindPlanByDateMissing(t *testing.T) {
	s := newTestStore(t)
	p, err := s.FindPlanByDate(context.Background(), day)
	if err != nil || p != nil {
		t.Errorf("FindPlanByDate() = %+v, %v; want nil, nil", p, err)
	}
}
