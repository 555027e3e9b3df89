package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/javiermolinar/dayplan/internal/plan"
)

// ErrMalformedResponse is returned when the model reply does not match the
// expected schedule shape.
var ErrMalformedResponse = errors.New("malformed AI response")

// TitleInput is one task title submitted for scheduling.
type TitleInput struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// SuggestedTask is one scheduled task proposed by the model.
type SuggestedTask struct {
	Content     string
	Description string
	StartTime   string // "HH:MM"
	EndTime     string // "HH:MM"
	Duration    string // may be empty
}

// Suggestion is a validated model reply.
type Suggestion struct {
	Explanation string
	Tasks       []SuggestedTask
}

const systemPrompt = `You are an expert productivity assistant.

Given a list of short task titles, do the following:
1. Prioritize the tasks and schedule them realistically through the day, most important first.
2. For each task, return:
   - "content": the task title
   - "description": a short description (1-2 sentences)
   - "startTime" and "endTime" in 24-hour format (HH:MM), with startTime before endTime
   - "duration": a human-readable duration like "1 hour" or "45 minutes"
3. Provide a short paragraph explaining why you scheduled and prioritized the tasks
   this way (time of day, urgency, natural groupings).

Respond with a single JSON object and nothing else:

{
  "explanation": "string",
  "tasks": [
    {
      "content": "string",
      "description": "string",
      "startTime": "HH:MM",
      "endTime": "HH:MM",
      "duration": "string"
    }
  ]
}`

// Suggester asks an LLM for a schedule and validates its reply.
type Suggester struct {
	client  Client
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// SuggesterOption configures a Suggester.
type SuggesterOption func(*Suggester)

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) SuggesterOption {
	return func(s *Suggester) {
		s.timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.SugaredLogger) SuggesterOption {
	return func(s *Suggester) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSuggester creates a Suggester backed by client.
func NewSuggester(client Client, opts ...SuggesterOption) *Suggester {
	s := &Suggester{client: client, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildMessages returns the conversation that starts a scheduling request.
func BuildMessages(titles []TitleInput) []Message {
	payload, _ := json.MarshalIndent(titles, "", "  ")
	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: "Here are the tasks:\n" + string(payload)},
	}
}

// SuggestSchedule asks the model to schedule titles.
func (s *Suggester) SuggestSchedule(ctx context.Context, titles []TitleInput) (*Suggestion, error) {
	suggestion, _, err := s.SuggestWithMessages(ctx, BuildMessages(titles))
	return suggestion, err
}

// SuggestWithMessages sends an existing conversation and validates the reply.
// The raw reply is returned even when validation fails so callers can feed it
// back to the model.
func (s *Suggester) SuggestWithMessages(ctx context.Context, messages []Message) (*Suggestion, string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.client.Chat(ctx, messages)
	if err != nil {
		return nil, "", fmt.Errorf("requesting schedule: %w", err)
	}
	s.logger.Debugw("schedule reply received", "elapsed", time.Since(start), "bytes", len(raw))

	suggestion, err := ParseSuggestion(raw)
	if err != nil {
		return nil, raw, err
	}
	return suggestion, raw, nil
}

// ParseSuggestion validates an untyped model reply before reading any field.
// Every violation wraps ErrMalformedResponse.
func ParseSuggestion(raw string) (*Suggestion, error) {
	doc := strings.TrimSpace(extractJSON(raw))
	if !gjson.Valid(doc) {
		return nil, malformed("reply is not valid JSON")
	}
	root := gjson.Parse(doc)
	if !root.IsObject() {
		return nil, malformed("reply must be a JSON object")
	}

	explanation := root.Get("explanation")
	if explanation.Type != gjson.String {
		return nil, malformed(`"explanation" must be a string`)
	}

	tasks := root.Get("tasks")
	if !tasks.IsArray() {
		return nil, malformed(`"tasks" must be an array`)
	}
	items := tasks.Array()
	if len(items) == 0 {
		return nil, malformed(`"tasks" must not be empty`)
	}

	out := &Suggestion{
		Explanation: explanation.String(),
		Tasks:       make([]SuggestedTask, 0, len(items)),
	}
	for i, item := range items {
		t, err := parseTask(item)
		if err != nil {
			return nil, malformed(fmt.Sprintf("task %d: %s", i, err))
		}
		out.Tasks = append(out.Tasks, t)
	}
	return out, nil
}

func parseTask(item gjson.Result) (SuggestedTask, error) {
	if !item.IsObject() {
		return SuggestedTask{}, errors.New("must be an object")
	}

	required := func(field string) (string, error) {
		v := item.Get(field)
		if v.Type != gjson.String || strings.TrimSpace(v.Str) == "" {
			return "", fmt.Errorf("%q must be a non-empty string", field)
		}
		return strings.TrimSpace(v.Str), nil
	}
	optional := func(field string) (string, error) {
		v := item.Get(field)
		switch v.Type {
		case gjson.Null:
			return "", nil
		case gjson.String:
			return strings.TrimSpace(v.Str), nil
		default:
			return "", fmt.Errorf("%q must be a string", field)
		}
	}

	var t SuggestedTask
	var err error
	if t.Content, err = required("content"); err != nil {
		return t, err
	}
	if t.StartTime, err = required("startTime"); err != nil {
		return t, err
	}
	if t.EndTime, err = required("endTime"); err != nil {
		return t, err
	}
	if t.Description, err = optional("description"); err != nil {
		return t, err
	}
	if t.Duration, err = optional("duration"); err != nil {
		return t, err
	}

	start, err := plan.ParseClock(t.StartTime)
	if err != nil {
		return t, fmt.Errorf("startTime %q must be HH:MM", t.StartTime)
	}
	end, err := plan.ParseClock(t.EndTime)
	if err != nil {
		return t, fmt.Errorf("endTime %q must be HH:MM", t.EndTime)
	}
	if end <= start {
		return t, fmt.Errorf("endTime %s must be after startTime %s", t.EndTime, t.StartTime)
	}
	return t, nil
}

func malformed(detail string) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, detail)
}
