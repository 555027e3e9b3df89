// Package tui provides the terminal view of a day's plan.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/javiermolinar/dayplan/internal/dateutil"
	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/planner"
	"github.com/javiermolinar/dayplan/internal/taskstore"
	"github.com/javiermolinar/dayplan/internal/timegrid"
	"github.com/javiermolinar/dayplan/internal/tui/theme"
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModePrompt
)

// Generator creates plans from task titles.
type Generator interface {
	Generate(ctx context.Context, req planner.Request) (*planner.Result, error)
}

// Windows holds the default and full day grid windows.
type Windows struct {
	Default timegrid.Window
	Full    timegrid.Window
}

// Model is the main TUI model.
type Model struct {
	// Dependencies
	repo      plan.Repository
	generator Generator
	confirmer taskstore.Confirmer
	logger    *zap.SugaredLogger
	now       func() time.Time
	copyText  func(string) error

	styles *Styles
	keys   keyMap
	help   help.Model
	prompt textinput.Model

	grid     timegrid.Grid
	fullGrid timegrid.Grid
	full     bool

	confirmTimeout time.Duration

	// State
	date     time.Time
	plan     *plan.Plan
	store    *taskstore.Store
	snapshot taskstore.Snapshot
	cursor   int // index into snapshot.Tasks
	mode     Mode
	loading  bool
	planning bool
	failures map[string]string // last reported error per task

	// Terminal dimensions
	width        int
	height       int
	scrollOffset int

	// Messages
	statusMsg string
	statusErr bool
	err       error
}

// ModelOption configures optional model behavior.
type ModelOption func(*Model)

// WithLogger sets the logger used by the model and its task store.
func WithLogger(logger *zap.SugaredLogger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTheme selects a theme by name.
func WithTheme(name string) ModelOption {
	return func(m *Model) {
		t, err := theme.Load(name)
		if err != nil {
			return
		}
		m.styles = NewStyles(t)
	}
}

// WithDate shows the plan of the given calendar date instead of today.
func WithDate(date time.Time) ModelOption {
	return func(m *Model) {
		m.date = date
	}
}

// WithClock overrides the clock used to resolve today.
func WithClock(now func() time.Time) ModelOption {
	return func(m *Model) {
		m.now = now
	}
}

// WithConfirmTimeout bounds each toggle confirmation.
func WithConfirmTimeout(d time.Duration) ModelOption {
	return func(m *Model) {
		m.confirmTimeout = d
	}
}

// WithConfirmer overrides how toggles are persisted. It defaults to the repository.
func WithConfirmer(c taskstore.Confirmer) ModelOption {
	return func(m *Model) {
		m.confirmer = c
	}
}

// WithClipboard overrides how the plan summary is copied.
func WithClipboard(fn func(string) error) ModelOption {
	return func(m *Model) {
		m.copyText = fn
	}
}

// New creates a new TUI model. The generator may be nil, which disables planning.
func New(repo plan.Repository, generator Generator, windows Windows, opts ...ModelOption) (Model, error) {
	grid, err := timegrid.New(windows.Default)
	if err != nil {
		return Model{}, fmt.Errorf("default window: %w", err)
	}
	fullGrid, err := timegrid.New(windows.Full)
	if err != nil {
		return Model{}, fmt.Errorf("full window: %w", err)
	}

	ti := textinput.New()
	ti.Placeholder = "Write report; Gym; Call mom"
	ti.Prompt = "Plan: "
	ti.CharLimit = 1024

	t, _ := theme.Load(theme.DefaultName)
	m := Model{
		repo:      repo,
		generator: generator,
		confirmer: plan.Toggler{Repo: repo},
		logger:    zap.NewNop().Sugar(),
		now:       time.Now,
		copyText:  clipboard.WriteAll,
		styles:    NewStyles(t),
		keys:      newKeyMap(),
		help:      help.New(),
		prompt:    ti,
		grid:      grid,
		fullGrid:  fullGrid,
		failures:  make(map[string]string),
		loading:   true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	if m.date.IsZero() {
		m.date, _ = dateutil.Today(m.now())
	}
	return m, nil
}

// Init loads the plan.
func (m Model) Init() tea.Cmd {
	return loadPlan(m.repo, m.date, nil)
}

// Run starts the TUI and blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok && fm.store != nil {
		fm.store.Wait()
	}
	return err
}

// activeGrid returns the grid currently on screen.
func (m Model) activeGrid() timegrid.Grid {
	if m.full {
		return m.fullGrid
	}
	return m.grid
}

// selected returns the task under the cursor.
func (m Model) selected() (plan.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snapshot.Tasks) {
		return plan.Task{}, false
	}
	return m.snapshot.Tasks[m.cursor], true
}

// setPlan replaces the plan and its task store.
func (m *Model) setPlan(p *plan.Plan) {
	m.plan = p
	if m.store != nil {
		m.store.Close()
	}
	m.store = nil
	m.snapshot = taskstore.Snapshot{}
	m.failures = make(map[string]string)
	m.cursor = 0
	m.scrollOffset = 0
	if p == nil {
		return
	}
	m.store = taskstore.New(p.Tasks, m.confirmer,
		taskstore.WithLogger(m.logger),
		taskstore.WithConfirmTimeout(m.confirmTimeout),
	)
	m.refresh()
	m.focusFirstOpenTask()
}

// refresh copies the store state and reports new toggle failures.
func (m *Model) refresh() {
	if m.store == nil {
		return
	}
	m.snapshot = m.store.Snapshot()
	if m.cursor >= len(m.snapshot.Tasks) {
		m.cursor = max(len(m.snapshot.Tasks)-1, 0)
	}
	for _, t := range m.snapshot.Tasks {
		err := m.store.LastError(t.ID)
		if err == nil {
			delete(m.failures, t.ID)
			continue
		}
		if m.failures[t.ID] == err.Error() {
			continue
		}
		m.failures[t.ID] = err.Error()
		m.setStatus(fmt.Sprintf("Could not update %q: %v", t.Title, err), true)
	}
}

func (m *Model) focusFirstOpenTask() {
	for i, t := range m.snapshot.Tasks {
		if !t.Completed {
			m.cursor = i
			return
		}
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
}

// currentPlan returns the plan with the store's local task state.
func (m Model) currentPlan() *plan.Plan {
	if m.plan == nil {
		return nil
	}
	p := *m.plan
	p.Tasks = m.snapshot.Tasks
	return &p
}
