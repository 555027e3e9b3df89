// Package gormstore implements plan.Repository on MySQL through gorm, for
// deployments that share one database between several servers.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/javiermolinar/dayplan/internal/plan"
)

var _ plan.Repository = (*Store)(nil)

// Store implements plan.Repository using gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to MySQL and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return New(db)
}

// New wraps an existing gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&planRecord{}, &taskRecord{}); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

func orderedTasks(db *gorm.DB) *gorm.DB {
	return db.Order("start_time, title")
}

func (s *Store) find(ctx context.Context, db *gorm.DB, query string, arg any) (*plan.Plan, error) {
	var rec planRecord
	err := db.WithContext(ctx).Preload("Tasks", orderedTasks).Where(query, arg).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return rec.toPlan()
}

// FindPlanByDate returns the plan for a calendar date, or nil if none exists.
func (s *Store) FindPlanByDate(ctx context.Context, date time.Time) (*plan.Plan, error) {
	p, err := s.find(ctx, s.db, "date = ?", date.Format(plan.DateLayout))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	return p, nil
}

// GetPlan retrieves a plan and its tasks by ID.
func (s *Store) GetPlan(ctx context.Context, id string) (*plan.Plan, error) {
	p, err := s.find(ctx, s.db, "id = ?", id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, plan.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying plan: %w", err)
	}
	return p, nil
}

// ListPlans returns plans dated within [from, to], newest first.
func (s *Store) ListPlans(ctx context.Context, from, to time.Time) ([]*plan.Plan, error) {
	var recs []planRecord
	err := s.db.WithContext(ctx).
		Preload("Tasks", orderedTasks).
		Where("date >= ? AND date <= ?", from.Format(plan.DateLayout), to.Format(plan.DateLayout)).
		Order("date DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	return toPlans(recs)
}

// PagePlans returns one page of plans dated on or before to, newest first.
func (s *Store) PagePlans(ctx context.Context, to time.Time, offset, limit int) ([]*plan.Plan, int, error) {
	scope := s.db.WithContext(ctx).Model(&planRecord{}).Where("date <= ?", to.Format(plan.DateLayout))

	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting plans: %w", err)
	}
	if total == 0 || limit <= 0 || int64(offset) >= total {
		return nil, int(total), nil
	}

	var recs []planRecord
	err := s.db.WithContext(ctx).
		Preload("Tasks", orderedTasks).
		Where("date <= ?", to.Format(plan.DateLayout)).
		Order("date DESC").
		Limit(limit).
		Offset(max(offset, 0)).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("querying plans: %w", err)
	}

	plans, err := toPlans(recs)
	if err != nil {
		return nil, 0, err
	}
	return plans, int(total), nil
}

// UpsertPlan creates the plan for a date or updates its explanation.
func (s *Store) UpsertPlan(ctx context.Context, date time.Time, tzOffset int, explanation string) (*plan.Plan, error) {
	if err := upsert(ctx, s.db, date, tzOffset, explanation); err != nil {
		return nil, err
	}
	p, err := s.find(ctx, s.db, "date = ?", date.Format(plan.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("reading upserted plan: %w", err)
	}
	return p, nil
}

func upsert(ctx context.Context, db *gorm.DB, date time.Time, tzOffset int, explanation string) error {
	rec := planRecord{
		ID:          uuid.NewString(),
		Date:        date.Format(plan.DateLayout),
		TZOffset:    tzOffset,
		Explanation: explanation,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"tz_offset", "explanation", "updated_at"}),
	}).Omit("Tasks").Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upserting plan: %w", err)
	}
	return nil
}

// DeleteTasks removes every task of a plan.
func (s *Store) DeleteTasks(ctx context.Context, planID string) error {
	if err := s.db.WithContext(ctx).Where("plan_id = ?", planID).Delete(&taskRecord{}).Error; err != nil {
		return fmt.Errorf("deleting tasks: %w", err)
	}
	return nil
}

// CreateTasks adds tasks to a plan in one batch.
func (s *Store) CreateTasks(ctx context.Context, planID string, tasks []plan.TaskInput) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	records, err := taskRecords(planID, tasks, uuid.NewString)
	if err != nil {
		return 0, err
	}
	if err := s.db.WithContext(ctx).Create(&records).Error; err != nil {
		return 0, fmt.Errorf("inserting tasks: %w", err)
	}
	return len(records), nil
}

// ReplacePlan upserts the plan for a date and replaces its tasks in one transaction.
func (s *Store) ReplacePlan(ctx context.Context, date time.Time, tzOffset int, explanation string, tasks []plan.TaskInput) (*plan.Plan, error) {
	var result *plan.Plan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsert(ctx, tx, date, tzOffset, explanation); err != nil {
			return err
		}

		var rec planRecord
		if err := tx.Where("date = ?", date.Format(plan.DateLayout)).First(&rec).Error; err != nil {
			return fmt.Errorf("reading upserted plan: %w", err)
		}
		if err := tx.Where("plan_id = ?", rec.ID).Delete(&taskRecord{}).Error; err != nil {
			return fmt.Errorf("deleting old tasks: %w", err)
		}

		records, err := taskRecords(rec.ID, tasks, uuid.NewString)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return fmt.Errorf("inserting tasks: %w", err)
			}
		}

		p, err := s.find(ctx, tx, "id = ?", rec.ID)
		if err != nil {
			return fmt.Errorf("reading plan: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateTaskCompleted sets a task's completion flag.
func (s *Store) UpdateTaskCompleted(ctx context.Context, taskID string, completed bool) error {
	res := s.db.WithContext(ctx).Model(&taskRecord{}).Where("id = ?", taskID).Update("completed", completed)
	if res.Error != nil {
		return fmt.Errorf("updating task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows when the value is unchanged.
		var count int64
		if err := s.db.WithContext(ctx).Model(&taskRecord{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
			return fmt.Errorf("checking task: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("task %s: %w", taskID, plan.ErrTaskNotFound)
		}
	}
	return nil
}

// DeletePlan removes a plan and its tasks in one transaction. The foreign key
// cascades as well; deleting the tasks first keeps databases without enforced
// foreign keys consistent.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", id).Delete(&taskRecord{}).Error; err != nil {
			return fmt.Errorf("deleting tasks: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&planRecord{})
		if res.Error != nil {
			return fmt.Errorf("deleting plan: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("plan %s: %w", id, plan.ErrPlanNotFound)
		}
		return nil
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
