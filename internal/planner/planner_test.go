package planner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/javiermolinar/dayplan/internal/db"
	"github.com/javiermolinar/dayplan/internal/llm"
	"github.com/javiermolinar/dayplan/internal/plan"
)

// scriptedClient returns replies in order and records each conversation.
type scriptedClient struct {
	replies []string
	err     error
	calls   [][]llm.Message
}

func (c *scriptedClient) Chat(_ context.Context, messages []llm.Message) (string, error) {
	c.calls = append(c.calls, append([]llm.Message(nil), messages...))
	if c.err != nil {
		return "", c.err
	}
	if len(c.calls) > len(c.replies) {
		return "", errors.New("unexpected call")
	}
	return c.replies[len(c.calls)-1], nil
}

const goodReply = `{
  "explanation": "Writing first while fresh, email after.",
  "tasks": [
    {"content": "Write report", "description": "Draft it.", "startTime": "09:00", "endTime": "10:30", "duration": "1.5 hours"},
    {"content": "Email", "description": "Inbox zero.", "startTime": "10:30", "endTime": "11:00"},
    {"content": "Gym", "startTime": "18:00", "endTime": "19:00"}
  ]
}`

var (
	planDate = time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	titles   = []string{"Write report", "  ", "Email", "Gym"}
)

func newRepo(t *testing.T) *db.SQLite {
	t.Helper()
	repo, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newPlanner(client llm.Client, repo plan.Repository, opts ...Option) *Planner {
	return New(llm.NewSuggester(client), repo, opts...)
}

func TestGenerate_Success(t *testing.T) {
	repo := newRepo(t)
	client := &scriptedClient{replies: []string{goodReply}}
	p := newPlanner(client, repo)

	res, err := p.Generate(context.Background(), Request{Date: planDate, TZOffset: 120, Titles: titles})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.TasksCreated != 3 || res.Attempts != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.Explanation != "Writing first while fresh, email after." {
		t.Errorf("Explanation = %q", res.Explanation)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}

	stored, err := repo.FindPlanByDate(context.Background(), planDate)
	if err != nil || stored == nil {
		t.Fatalf("FindPlanByDate() = %v, %v", stored, err)
	}
	if stored.ID != res.PlanID || stored.TZOffset != 120 {
		t.Errorf("stored plan = %+v", stored)
	}

	want := []struct {
		title    string
		priority plan.Priority
		duration string
	}{
		{"Write report", plan.PriorityHigh, "1.5 hours"},
		{"Email", plan.PriorityMedium, "30 minutes"},
		{"Gym", plan.PriorityLow, "1 hour"},
	}
	for i, w := range want {
		got := stored.Tasks[i]
		if got.Title != w.title || got.Priority != w.priority || got.Duration != w.duration {
			t.Errorf("task %d = %+v, want %+v", i, got, w)
		}
	}

	// Blank titles are not sent.
	if strings.Contains(client.calls[0][1].Content, `"content": "  "`) {
		t.Error("blank title sent to the model")
	}
}

func TestGenerate_DefaultsToToday(t *testing.T) {
	repo := newRepo(t)
	loc := time.FixedZone("EET", 2*60*60)
	now := time.Date(2025, 1, 15, 23, 30, 0, 0, loc)
	p := newPlanner(&scriptedClient{replies: []string{goodReply}}, repo, WithClock(func() time.Time { return now }))

	res, err := p.Generate(context.Background(), Request{Titles: titles})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Plan.DateKey() != "2025-01-15" || res.Plan.TZOffset != 120 {
		t.Errorf("plan date = %s offset %d, want 2025-01-15 offset 120", res.Plan.DateKey(), res.Plan.TZOffset)
	}
}

func TestGenerate_NoTasks(t *testing.T) {
	client := &scriptedClient{}
	p := newPlanner(client, newRepo(t))

	for _, in := range [][]string{nil, {}, {"", "   ", "\t"}} {
		if _, err := p.Generate(context.Background(), Request{Date: planDate, Titles: in}); !errors.Is(err, ErrNoTasks) {
			t.Errorf("Generate(%q) error = %v, want ErrNoTasks", in, err)
		}
	}
	if len(client.calls) != 0 {
		t.Errorf("model called %d times for empty input", len(client.calls))
	}
}

func TestGenerate_RetriesWithFeedback(t *testing.T) {
	repo := newRepo(t)
	client := &scriptedClient{replies: []string{"Sorry, here you go: {oops", goodReply}}
	p := newPlanner(client, repo)

	res, err := p.Generate(context.Background(), Request{Date: planDate, Titles: titles})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", res.Attempts)
	}
	if len(client.calls) != 2 {
		t.Fatalf("model called %d times, want 2", len(client.calls))
	}

	retry := client.calls[1]
	if len(retry) != 4 {
		t.Fatalf("retry conversation has %d messages, want 4", len(retry))
	}
	if retry[2].Role != llm.RoleAssistant || retry[2].Content != "Sorry, here you go: {oops" {
		t.Errorf("assistant echo = %+v", retry[2])
	}
	if retry[3].Role != llm.RoleUser || !strings.Contains(retry[3].Content, "valid JSON") {
		t.Errorf("feedback = %+v", retry[3])
	}
}

func TestGenerate_ExhaustedWritesNothing(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	// An existing plan must survive a failed regeneration.
	if _, err := repo.ReplacePlan(ctx, planDate, 0, "old", []plan.TaskInput{
		{Title: "Keep me", StartTime: "08:00", EndTime: "09:00", Priority: plan.PriorityHigh},
	}); err != nil {
		t.Fatalf("seeding plan: %v", err)
	}

	client := &scriptedClient{replies: []string{
		`{"explanation": "x", "tasks": []}`,
		`{"explanation": "x"}`,
		`not json`,
	}}
	p := newPlanner(client, repo, WithMaxRetries(2))

	_, err := p.Generate(ctx, Request{Date: planDate, Titles: titles})
	if !errors.Is(err, ErrMalformedAIResponse) {
		t.Fatalf("Generate() error = %v, want ErrMalformedAIResponse", err)
	}
	if len(client.calls) != 3 {
		t.Errorf("model called %d times, want 3", len(client.calls))
	}

	stored, _ := repo.FindPlanByDate(ctx, planDate)
	if stored.Explanation != "old" || len(stored.Tasks) != 1 || stored.Tasks[0].Title != "Keep me" {
		t.Errorf("existing plan modified: %+v", stored)
	}
}

func TestGenerate_ZeroRetries(t *testing.T) {
	client := &scriptedClient{replies: []string{"nope"}}
	p := newPlanner(client, newRepo(t), WithMaxRetries(0))

	if _, err := p.Generate(context.Background(), Request{Date: planDate, Titles: titles}); !errors.Is(err, ErrMalformedAIResponse) {
		t.Fatalf("Generate() error = %v, want ErrMalformedAIResponse", err)
	}
	if len(client.calls) != 1 {
		t.Errorf("model called %d times, want 1", len(client.calls))
	}
}

func TestGenerate_TransportErrorNotRetried(t *testing.T) {
	boom := errors.New("503 service unavailable")
	client := &scriptedClient{err: boom}
	p := newPlanner(client, newRepo(t), WithMaxRetries(3))

	_, err := p.Generate(context.Background(), Request{Date: planDate, Titles: titles})
	if !errors.Is(err, boom) {
		t.Fatalf("Generate() error = %v, want transport error", err)
	}
	if errors.Is(err, ErrMalformedAIResponse) {
		t.Error("transport error reported as malformed")
	}
	if len(client.calls) != 1 {
		t.Errorf("model called %d times, want 1", len(client.calls))
	}
}

func TestGenerate_Regenerates(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	second := `{"explanation": "Just one thing.", "tasks": [{"content": "Gym", "startTime": "07:00", "endTime": "08:00"}]}`
	client := &scriptedClient{replies: []string{goodReply, second}}
	p := newPlanner(client, repo)

	first, err := p.Generate(ctx, Request{Date: planDate, Titles: titles})
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}
	res, err := p.Generate(ctx, Request{Date: planDate, Titles: []string{"Gym"}})
	if err != nil {
		t.Fatalf("second Generate() error = %v", err)
	}
	if res.PlanID != first.PlanID {
		t.Errorf("plan id changed on regeneration: %s != %s", res.PlanID, first.PlanID)
	}
	if res.TasksCreated != 1 || res.Plan.Tasks[0].Priority != plan.PriorityHigh {
		t.Errorf("regenerated plan = %+v", res.Plan)
	}
}

func TestGenerate_WarningsDoNotBlock(t *testing.T) {
	overlapping := `{"explanation": "x", "tasks": [
		{"content": "Write report", "startTime": "09:00", "endTime": "10:30"},
		{"content": "Email", "startTime": "10:00", "endTime": "10:45"}
	]}`
	p := newPlanner(&scriptedClient{replies: []string{overlapping}}, newRepo(t))

	res, err := p.Generate(context.Background(), Request{Date: planDate, Titles: titles})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("warnings = %v, want overlap and missing Gym", res.Warnings)
	}
}

func TestSplitTitles(t *testing.T) {
	got := SplitTitles("Write report\r\n\n  Email  \nGym\n")
	want := []string{"Write report", "Email", "Gym"}
	if len(got) != len(want) {
		t.Fatalf("SplitTitles() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitTitles()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
