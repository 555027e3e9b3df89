// Package cache provides a read-through plan cache in front of a plan.Repository.
//
// Cached entries are keyed by a generation number that every write bumps, so a
// completion toggle or a regenerated plan is never served stale, even from
// another server sharing the same Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/javiermolinar/dayplan/internal/plan"
)

// ErrMiss is returned by Cache.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// DefaultTTL bounds how long an entry lives without writes.
const DefaultTTL = 10 * time.Minute

const invalidateTimeout = 2 * time.Second

const (
	keyPrefix     = "dayplan:"
	generationKey = keyPrefix + "generation"
)

// Cache is the key-value store behind the repository.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// Repository caches FindPlanByDate and GetPlan of the wrapped repository.
// Cache failures are logged and fall through to the wrapped repository.
type Repository struct {
	plan.Repository
	cache  Cache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

var _ plan.Repository = (*Repository)(nil)

// New wraps repo with a cache. A non-positive ttl uses DefaultTTL.
func New(repo plan.Repository, c Cache, ttl time.Duration, logger *zap.SugaredLogger) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Repository{Repository: repo, cache: c, ttl: ttl, logger: logger}
}

// cachedPlan is the JSON form of a cached plan.
type cachedPlan struct {
	ID          string       `json:"id"`
	Date        string       `json:"date"`
	TZOffset    int          `json:"tzOffset"`
	Explanation string       `json:"explanation"`
	Tasks       []cachedTask `json:"tasks"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type cachedTask struct {
	ID          string `json:"id"`
	PlanID      string `json:"planId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Duration    string `json:"duration"`
	Priority    string `json:"priority"`
	Completed   bool   `json:"completed"`
}

func encode(p *plan.Plan) (string, error) {
	c := cachedPlan{
		ID:          p.ID,
		Date:        p.DateKey(),
		TZOffset:    p.TZOffset,
		Explanation: p.Explanation,
		Tasks:       make([]cachedTask, 0, len(p.Tasks)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, t := range p.Tasks {
		c.Tasks = append(c.Tasks, cachedTask{
			ID: t.ID, PlanID: t.PlanID, Title: t.Title, Description: t.Description,
			StartTime: t.StartTime, EndTime: t.EndTime, Duration: t.Duration,
			Priority: string(t.Priority), Completed: t.Completed,
		})
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(s string) (*plan.Plan, error) {
	var c cachedPlan
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, err
	}
	date, err := plan.ParseDate(c.Date)
	if err != nil {
		return nil, err
	}
	p := &plan.Plan{
		ID:          c.ID,
		Date:        date,
		TZOffset:    c.TZOffset,
		Explanation: c.Explanation,
		Tasks:       make([]plan.Task, 0, len(c.Tasks)),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, t := range c.Tasks {
		p.Tasks = append(p.Tasks, plan.Task{
			ID: t.ID, PlanID: t.PlanID, Title: t.Title, Description: t.Description,
			StartTime: t.StartTime, EndTime: t.EndTime, Duration: t.Duration,
			Priority: plan.Priority(t.Priority), Completed: t.Completed,
		})
	}
	return p, nil
}

func (r *Repository) generation(ctx context.Context) (string, bool) {
	gen, err := r.cache.Get(ctx, generationKey)
	if errors.Is(err, ErrMiss) {
		return "0", true
	}
	if err != nil {
		r.logger.Warnw("reading cache generation", "err", err)
		return "", false
	}
	return gen, true
}

func (r *Repository) lookup(ctx context.Context, key string, load func() (*plan.Plan, error)) (*plan.Plan, error) {
	gen, ok := r.generation(ctx)
	if !ok {
		return load()
	}
	full := planKey(gen, key)

	if s, err := r.cache.Get(ctx, full); err == nil {
		if p, err := decode(s); err == nil {
			return p, nil
		}
		r.logger.Warnw("discarding undecodable cache entry", "key", full)
	} else if !errors.Is(err, ErrMiss) {
		r.logger.Warnw("reading cache", "key", full, "err", err)
	}

	p, err := load()
	if err != nil || p == nil {
		return p, err
	}
	if s, err := encode(p); err == nil {
		if err := r.cache.Set(ctx, full, s, r.ttl); err != nil {
			r.logger.Warnw("writing cache", "key", full, "err", err)
		}
	}
	return p, nil
}

// invalidate bumps the generation so every cached entry is bypassed. It runs
// even when ctx was cancelled after the write reached the repository.
func (r *Repository) invalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()
	if _, err := r.cache.Incr(ctx, generationKey); err != nil {
		r.logger.Warnw("invalidating cache", "err", err)
	}
}

// FindPlanByDate serves the plan for a date from cache when possible.
func (r *Repository) FindPlanByDate(ctx context.Context, date time.Time) (*plan.Plan, error) {
	return r.lookup(ctx, "date:"+date.Format(plan.DateLayout), func() (*plan.Plan, error) {
		return r.Repository.FindPlanByDate(ctx, date)
	})
}

// GetPlan serves a plan by id from cache when possible.
func (r *Repository) GetPlan(ctx context.Context, id string) (*plan.Plan, error) {
	return r.lookup(ctx, "id:"+id, func() (*plan.Plan, error) {
		return r.Repository.GetPlan(ctx, id)
	})
}

// UpsertPlan writes through and invalidates.
func (r *Repository) UpsertPlan(ctx context.Context, date time.Time, tzOffset int, explanation string) (*plan.Plan, error) {
	defer r.invalidate(ctx)
	return r.Repository.UpsertPlan(ctx, date, tzOffset, explanation)
}

// DeleteTasks writes through and invalidates.
func (r *Repository) DeleteTasks(ctx context.Context, planID string) error {
	defer r.invalidate(ctx)
	return r.Repository.DeleteTasks(ctx, planID)
}

// CreateTasks writes through and invalidates.
func (r *Repository) CreateTasks(ctx context.Context, planID string, tasks []plan.TaskInput) (int, error) {
	defer r.invalidate(ctx)
	return r.Repository.CreateTasks(ctx, planID, tasks)
}

// ReplacePlan writes through and invalidates.
func (r *Repository) ReplacePlan(ctx context.Context, date time.Time, tzOffset int, explanation string, tasks []plan.TaskInput) (*plan.Plan, error) {
	defer r.invalidate(ctx)
	return r.Repository.ReplacePlan(ctx, date, tzOffset, explanation, tasks)
}

// UpdateTaskCompleted writes through and invalidates.
func (r *Repository) UpdateTaskCompleted(ctx context.Context, taskID string, completed bool) error {
	defer r.invalidate(ctx)
	return r.Repository.UpdateTaskCompleted(ctx, taskID, completed)
}

// DeletePlan writes through and invalidates.
func (r *Repository) DeletePlan(ctx context.Context, id string) error {
	defer r.invalidate(ctx)
	return r.Repository.DeletePlan(ctx, id)
}

func planKey(gen, key string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, gen, key)
}
