package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/javiermolinar/dayplan/internal/plan"
)

type memCache struct {
	mu      sync.Mutex
	data    map[string]string
	failGet bool
}

// ctxCache rejects calls made with a finished context, like a network client.
type ctxCache struct {
	*memCache
}

func (c ctxCache) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.memCache.Incr(ctx, key)
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]string)}
}

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return "", errors.New("connection refused")
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

type countingRepo struct {
	plan.Repository
	finds int
	gets  int
	plan  *plan.Plan
}

func (r *countingRepo) FindPlanByDate(_ context.Context, date time.Time) (*plan.Plan, error) {
	r.finds++
	if r.plan == nil || !r.plan.Date.Equal(date) {
		return nil, nil
	}
	cp := *r.plan
	cp.Tasks = append([]plan.Task(nil), r.plan.Tasks...)
	return &cp, nil
}

func (r *countingRepo) GetPlan(_ context.Context, id string) (*plan.Plan, error) {
	r.gets++
	if r.plan == nil || r.plan.ID != id {
		return nil, plan.ErrPlanNotFound
	}
	cp := *r.plan
	cp.Tasks = append([]plan.Task(nil), r.plan.Tasks...)
	return &cp, nil
}

func (r *countingRepo) UpdateTaskCompleted(_ context.Context, id string, completed bool) error {
	for i := range r.plan.Tasks {
		if r.plan.Tasks[i].ID == id {
			r.plan.Tasks[i].Completed = completed
			return nil
		}
	}
	return plan.ErrTaskNotFound
}

var day = time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)

func seededRepo() *countingRepo {
	return &countingRepo{plan: &plan.Plan{
		ID:          "p1",
		Date:        day,
		TZOffset:    60,
		Explanation: "why",
		Tasks: []plan.Task{
			{ID: "t1", PlanID: "p1", Title: "Write", StartTime: "09:00", EndTime: "10:00", Priority: plan.PriorityHigh},
		},
	}}
}

func TestFindPlanByDate_ServesFromCache(t *testing.T) {
	repo := seededRepo()
	c := New(repo, newMemCache(), 0, nil)
	ctx := context.Background()

	first, err := c.FindPlanByDate(ctx, day)
	if err != nil {
		t.Fatalf("FindPlanByDate() unexpected error: %v", err)
	}
	second, err := c.FindPlanByDate(ctx, day)
	if err != nil {
		t.Fatalf("FindPlanByDate() unexpected error: %v", err)
	}

	if repo.finds != 1 {
		t.Errorf("repository called %d times, want 1", repo.finds)
	}
	if second.ID != first.ID || second.DateKey() != "2025-01-09" || second.TZOffset != 60 {
		t.Errorf("cached plan = %+v", second)
	}
	if len(second.Tasks) != 1 || second.Tasks[0].Priority != plan.PriorityHigh {
		t.Errorf("cached tasks = %+v", second.Tasks)
	}
}

func TestWriteInvalidates(t *testing.T) {
	repo := seededRepo()
	c := New(repo, newMemCache(), time.Minute, nil)
	ctx := context.Background()

	if _, err := c.GetPlan(ctx, "p1"); err != nil {
		t.Fatalf("GetPlan() unexpected error: %v", err)
	}
	if err := c.UpdateTaskCompleted(ctx, "t1", true); err != nil {
		t.Fatalf("UpdateTaskCompleted() unexpected error: %v", err)
	}

	p, err := c.GetPlan(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPlan() unexpected error: %v", err)
	}
	if !p.Tasks[0].Completed {
		t.Error("stale plan served after write")
	}
	if repo.gets != 2 {
		t.Errorf("repository called %d times, want 2", repo.gets)
	}
}

func TestWriteInvalidatesAfterCancel(t *testing.T) {
	repo := seededRepo()
	c := New(repo, ctxCache{newMemCache()}, time.Minute, nil)

	if _, err := c.GetPlan(context.Background(), "p1"); err != nil {
		t.Fatalf("GetPlan() unexpected error: %v", err)
	}

	// The write lands but the caller is already gone.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.UpdateTaskCompleted(ctx, "t1", true); err != nil {
		t.Fatalf("UpdateTaskCompleted() unexpected error: %v", err)
	}

	p, err := c.GetPlan(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetPlan() unexpected error: %v", err)
	}
	if !p.Tasks[0].Completed {
		t.Error("stale plan served after a write with a cancelled context")
	}
}

func TestMissesAreNotCached(t *testing.T) {
	repo := seededRepo()
	c := New(repo, newMemCache(), 0, nil)
	ctx := context.Background()

	other := day.AddDate(0, 0, 1)
	for i := 0; i < 2; i++ {
		p, err := c.FindPlanByDate(ctx, other)
		if err != nil || p != nil {
			t.Fatalf("FindPlanByDate() = %v, %v", p, err)
		}
	}
	if repo.finds != 2 {
		t.Errorf("repository called %d times, want 2", repo.finds)
	}

	if _, err := c.GetPlan(ctx, "missing"); !errors.Is(err, plan.ErrPlanNotFound) {
		t.Errorf("GetPlan() error = %v, want ErrPlanNotFound", err)
	}
}

func TestCacheFailureFallsThrough(t *testing.T) {
	repo := seededRepo()
	mc := newMemCache()
	mc.failGet = true
	c := New(repo, mc, 0, nil)

	p, err := c.FindPlanByDate(context.Background(), day)
	if err != nil {
		t.Fatalf("FindPlanByDate() unexpected error: %v", err)
	}
	if p == nil || p.ID != "p1" {
		t.Errorf("got %+v, want plan p1", p)
	}
}
