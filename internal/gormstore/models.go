package gormstore

import (
	"time"

	"github.com/javiermolinar/dayplan/internal/plan"
)

type planRecord struct {
	ID          string       `gorm:"type:varchar(36);primaryKey"`
	Date        string       `gorm:"type:char(10);uniqueIndex"`
	TZOffset    int          `gorm:"not null;default:0"`
	Explanation string       `gorm:"type:text"`
	Tasks       []taskRecord `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (planRecord) TableName() string { return "plans" }

type taskRecord struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	PlanID      string `gorm:"type:varchar(36);index:idx_tasks_plan_start,priority:1"`
	Title       string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"type:text"`
	StartTime   string `gorm:"type:char(5);index:idx_tasks_plan_start,priority:2"`
	EndTime     string `gorm:"type:char(5)"`
	Duration    string `gorm:"type:varchar(64)"`
	Priority    string `gorm:"type:varchar(6)"`
	Completed   bool   `gorm:"default:false"`
	CreatedAt   time.Time
}

func (taskRecord) TableName() string { return "tasks" }

func (r planRecord) toPlan() (*plan.Plan, error) {
	date, err := plan.ParseDate(r.Date)
	if err != nil {
		return nil, err
	}
	p := &plan.Plan{
		ID:          r.ID,
		Date:        date,
		TZOffset:    r.TZOffset,
		Explanation: r.Explanation,
		Tasks:       make([]plan.Task, 0, len(r.Tasks)),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, t := range r.Tasks {
		p.Tasks = append(p.Tasks, t.toTask())
	}
	return p, nil
}

func toPlans(recs []planRecord) ([]*plan.Plan, error) {
	plans := make([]*plan.Plan, 0, len(recs))
	for _, r := range recs {
		p, err := r.toPlan()
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (r taskRecord) toTask() plan.Task {
	return plan.Task{
		ID:          r.ID,
		PlanID:      r.PlanID,
		Title:       r.Title,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Duration:    r.Duration,
		Priority:    plan.Priority(r.Priority),
		Completed:   r.Completed,
	}
}

// taskRecords validates inputs and converts them to rows.
func taskRecords(planID string, inputs []plan.TaskInput, newID func() string) ([]taskRecord, error) {
	records := make([]taskRecord, 0, len(inputs))
	for i := range inputs {
		in := inputs[i]
		if err := in.Validate(); err != nil {
			return nil, err
		}
		records = append(records, taskRecord{
			ID:          newID(),
			PlanID:      planID,
			Title:       in.Title,
			Description: in.Description,
			StartTime:   in.StartTime,
			EndTime:     in.EndTime,
			Duration:    in.Duration,
			Priority:    string(in.Priority),
		})
	}
	return records, nil
}
