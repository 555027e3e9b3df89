// Package planner turns a list of task titles into a stored day plan.
// It coordinates the AI suggester, validation with feedback retries, and the repository.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/javiermolinar/dayplan/internal/dateutil"
	"github.com/javiermolinar/dayplan/internal/llm"
	"github.com/javiermolinar/dayplan/internal/plan"
)

var (
	// ErrNoTasks is returned when no non-blank title was submitted.
	ErrNoTasks = errors.New("no tasks to plan")

	// ErrMalformedAIResponse is returned when every attempt produced an unusable reply.
	ErrMalformedAIResponse = errors.New("AI response could not be used")
)

// DefaultMaxRetries is the number of extra attempts after an unusable reply.
const DefaultMaxRetries = 1

// Suggester requests a schedule for a conversation.
type Suggester interface {
	SuggestWithMessages(ctx context.Context, messages []llm.Message) (*llm.Suggestion, string, error)
}

// Planner generates and stores plans.
type Planner struct {
	suggester  Suggester
	repo       plan.Repository
	maxRetries int
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// Option configures a Planner.
type Option func(*Planner)

// WithMaxRetries sets how many extra attempts follow an unusable reply.
func WithMaxRetries(n int) Option {
	return func(p *Planner) {
		if n >= 0 {
			p.maxRetries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

// New creates a Planner.
func New(suggester Suggester, repo plan.Repository, opts ...Option) *Planner {
	p := &Planner{
		suggester:  suggester,
		repo:       repo,
		maxRetries: DefaultMaxRetries,
		logger:     zap.NewNop().Sugar(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request is the input for Generate.
type Request struct {
	Date     time.Time // calendar date; zero means today
	TZOffset int       // minutes east of UTC, used when Date is set
	Titles   []string
}

// Result describes a generated plan.
type Result struct {
	PlanID       string
	TasksCreated int
	Explanation  string
	Warnings     []string
	Attempts     int
	Plan         *plan.Plan
}

// Generate asks for a schedule and replaces the plan for the requested date.
// Nothing is written unless a reply passes validation.
func (p *Planner) Generate(ctx context.Context, req Request) (*Result, error) {
	titles := cleanTitles(req.Titles)
	if len(titles) == 0 {
		return nil, ErrNoTasks
	}

	date, tzOffset := p.resolveDate(req)

	inputs := make([]llm.TitleInput, len(titles))
	for i, title := range titles {
		inputs[i] = llm.TitleInput{ID: strconv.Itoa(i + 1), Content: title}
	}
	messages := llm.BuildMessages(inputs)
	validator := NewValidator(titles)

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		suggestion, raw, err := p.suggester.SuggestWithMessages(ctx, messages)

		var feedback string
		switch {
		case err == nil:
			validation := validator.Validate(suggestion.Tasks)
			if validation.Valid {
				return p.save(ctx, date, tzOffset, suggestion, validation.Warnings, attempt+1)
			}
			lastErr = fmt.Errorf("%d invalid task fields", len(validation.Errors))
			feedback = validation.FormatErrors()
		case errors.Is(err, llm.ErrMalformedResponse):
			lastErr = err
			feedback = fmt.Sprintf("Your response could not be used: %v\n\nPlease respond again with a single valid JSON object in the requested format.", err)
		default:
			return nil, fmt.Errorf("AI planning (attempt %d): %w", attempt+1, err)
		}

		p.logger.Warnw("unusable schedule reply", "attempt", attempt+1, "date", date.Format(plan.DateLayout), "error", lastErr)

		if attempt < p.maxRetries {
			messages = append(messages,
				llm.Message{Role: llm.RoleAssistant, Content: raw},
				llm.Message{Role: llm.RoleUser, Content: feedback},
			)
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrMalformedAIResponse, p.maxRetries+1, lastErr)
}

func (p *Planner) save(ctx context.Context, date time.Time, tzOffset int, s *llm.Suggestion, warnings []string, attempts int) (*Result, error) {
	total := len(s.Tasks)
	tasks := make([]plan.TaskInput, 0, total)
	for i, t := range s.Tasks {
		tasks = append(tasks, toTaskInput(t, plan.PriorityForRank(i, total)))
	}

	saved, err := p.repo.ReplacePlan(ctx, date, tzOffset, s.Explanation, tasks)
	if err != nil {
		return nil, fmt.Errorf("saving plan: %w", err)
	}

	p.logger.Infow("plan generated",
		"date", saved.DateKey(),
		"plan_id", saved.ID,
		"tasks", len(saved.Tasks),
		"attempts", attempts,
		"warnings", len(warnings),
	)

	return &Result{
		PlanID:       saved.ID,
		TasksCreated: len(saved.Tasks),
		Explanation:  saved.Explanation,
		Warnings:     warnings,
		Attempts:     attempts,
		Plan:         saved,
	}, nil
}

func (p *Planner) resolveDate(req Request) (time.Time, int) {
	if req.Date.IsZero() {
		return dateutil.Today(p.now())
	}
	d := req.Date
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), req.TZOffset
}

// toTaskInput derives the duration when the model left it out.
func toTaskInput(t llm.SuggestedTask, priority plan.Priority) plan.TaskInput {
	in := plan.TaskInput{
		Title:       t.Content,
		Description: t.Description,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		Duration:    t.Duration,
		Priority:    priority,
	}
	if in.Duration == "" {
		start, _ := plan.ParseClock(t.StartTime)
		end, _ := plan.ParseClock(t.EndTime)
		in.Duration = plan.FormatDuration(end - start)
	}
	return in
}

func cleanTitles(titles []string) []string {
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SplitTitles splits free text into one title per non-blank line.
func SplitTitles(text string) []string {
	return cleanTitles(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}
