package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/planner"
	"github.com/javiermolinar/dayplan/internal/taskstore"
)

// planLoadedMsg carries the plan for the shown date. Plan is nil when none exists.
type planLoadedMsg struct {
	Plan *plan.Plan
	Err  error
}

// storeChangedMsg signals a task store state transition.
type storeChangedMsg struct {
	Store *taskstore.Store
}

// planGeneratedMsg carries the outcome of a planning request.
type planGeneratedMsg struct {
	Result *planner.Result
	Err    error
}

// loadPlan reads the plan for date. When prev is set it first waits for the
// toggles confirmed through it, so the reload includes them.
func loadPlan(repo plan.Repository, date time.Time, prev *taskstore.Store) tea.Cmd {
	return func() tea.Msg {
		if prev != nil {
			prev.Wait()
		}
		p, err := repo.FindPlanByDate(context.Background(), date)
		return planLoadedMsg{Plan: p, Err: err}
	}
}

// waitForChange blocks until the store signals a change or is closed.
// A closed store is no longer the model's, so its message is dropped.
func waitForChange(s *taskstore.Store) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-s.Changes():
		case <-s.Done():
		}
		return storeChangedMsg{Store: s}
	}
}

func generatePlan(g Generator, date time.Time, tzOffset int, titles []string) tea.Cmd {
	return func() tea.Msg {
		res, err := g.Generate(context.Background(), planner.Request{
			Date:     date,
			TZOffset: tzOffset,
			Titles:   titles,
		})
		return planGeneratedMsg{Result: res, Err: err}
	}
}

// splitPromptTitles splits the single line prompt on semicolons.
func splitPromptTitles(s string) []string {
	return planner.SplitTitles(strings.ReplaceAll(s, ";", "\n"))
}
