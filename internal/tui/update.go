package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/javiermolinar/dayplan/internal/dateutil"
	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/timegrid"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == ModePrompt {
			return m.handlePromptKeys(msg)
		}
		return m.handleNormalKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.prompt.Width = max(msg.Width-12, 10)
		m.ensureCursorVisible()
		return m, nil

	case planLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			m.setStatus(fmt.Sprintf("Error: %v", msg.Err), true)
			return m, nil
		}
		m.err = nil
		m.setPlan(msg.Plan)
		m.ensureCursorVisible()
		return m, waitForChange(m.store)

	case storeChangedMsg:
		if msg.Store != m.store {
			return m, nil
		}
		m.refresh()
		return m, waitForChange(m.store)

	case planGeneratedMsg:
		m.planning = false
		if msg.Err != nil {
			m.logger.Warnw("planning failed", "date", m.date.Format("2006-01-02"), "err", msg.Err)
			m.setStatus(fmt.Sprintf("Planning failed: %v", msg.Err), true)
			return m, nil
		}
		status := fmt.Sprintf("Planned %d tasks", msg.Result.TasksCreated)
		if n := len(msg.Result.Warnings); n > 0 {
			status += fmt.Sprintf(" (%d warnings)", n)
		}
		m.setStatus(status, false)
		m.loading = true
		return m, loadPlan(m.repo, m.date, m.store)
	}

	if m.mode == ModePrompt {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleNormalKeys handles keys while browsing the plan.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snapshot.Tasks)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}

	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.store.Toggle(t.ID, t.Completed); err != nil {
			m.setStatus(fmt.Sprintf("Error: %v", err), true)
			return m, nil
		}
		m.setStatus("", false)
		m.refresh()

	case key.Matches(msg, m.keys.Full):
		m.full = !m.full
		m.scrollOffset = 0
		m.ensureCursorVisible()

	case key.Matches(msg, m.keys.Copy):
		p := m.currentPlan()
		if p == nil {
			m.setStatus("Nothing to copy", false)
			return m, nil
		}
		if err := m.copyText(summaryText(p)); err != nil {
			m.setStatus(fmt.Sprintf("Copy failed: %v", err), true)
			return m, nil
		}
		m.setStatus("Copied plan to clipboard", false)

	case key.Matches(msg, m.keys.Plan):
		if m.generator == nil {
			m.setStatus("Planning is not configured", true)
			return m, nil
		}
		if m.planning {
			return m, nil
		}
		m.mode = ModePrompt
		m.prompt.Reset()
		focus := m.prompt.Focus()
		return m, tea.Batch(focus, textinput.Blink)

	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, loadPlan(m.repo, m.date, m.store)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// handlePromptKeys handles keys while typing task titles.
func (m Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.mode = ModeNormal
		m.prompt.Blur()
		return m, nil

	case tea.KeyEnter:
		titles := splitPromptTitles(m.prompt.Value())
		if len(titles) == 0 {
			m.setStatus("Enter at least one task, separated by ;", true)
			return m, nil
		}
		m.mode = ModeNormal
		m.prompt.Blur()
		m.planning = true
		m.setStatus(fmt.Sprintf("Planning %d tasks...", len(titles)), false)
		_, tzOffset := dateutil.Today(m.now())
		return m, generatePlan(m.generator, m.date, tzOffset, titles)
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// ensureCursorVisible scrolls the grid so the selected task's first row is shown.
func (m *Model) ensureCursorVisible() {
	rows := m.gridRows()
	g := m.activeGrid()
	if rows <= 0 || rows >= g.Len() {
		m.scrollOffset = 0
		return
	}
	m.scrollOffset = min(m.scrollOffset, g.Len()-rows)

	t, ok := m.selected()
	if !ok {
		return
	}
	pl, ok := timegrid.Place([]plan.Task{t}, g).Get(t.ID)
	if !ok || !pl.Placed {
		return
	}
	start := pl.StartSlot
	if start < m.scrollOffset {
		m.scrollOffset = start
	}
	if start >= m.scrollOffset+rows {
		m.scrollOffset = start - rows + 1
	}
}
