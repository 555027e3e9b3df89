package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/timegrid"
)

// defaultWidth is used before the first WindowSizeMsg.
const defaultWidth = 60

// View renders the TUI.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch {
	case m.loading && m.plan == nil:
		b.WriteString(m.styles.SubtitleStyle.Render("Loading..."))
		b.WriteString("\n")
	case m.plan == nil:
		b.WriteString(m.styles.SubtitleStyle.Render(fmt.Sprintf("No plan for %s. Press p to plan the day.", m.date.Format("Mon, Jan 2"))))
		b.WriteString("\n")
	default:
		for _, line := range m.renderGrid() {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	for _, line := range m.footerLines() {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.styles.TitleStyle.Render(m.date.Format("Monday, January 2, 2006"))
	g := m.activeGrid()
	sub := fmt.Sprintf("%s-%s", g.Window.Start, g.Window.End)
	if p := m.currentPlan(); p != nil {
		s := p.Stats()
		sub = fmt.Sprintf("%d/%d done (%d%%)  %s", s.Completed, s.Total, s.Percent(), sub)
	}
	return title + "  " + m.styles.SubtitleStyle.Render(sub)
}

// renderGrid renders the visible slot rows with task blocks on top.
func (m Model) renderGrid() []string {
	g := m.activeGrid()
	placements := timegrid.Place(m.snapshot.Tasks, g)

	// Overlapping tasks share rows; the later start wins.
	owner := make([]int, g.Len())
	for i := range owner {
		owner[i] = -1
	}
	for i, t := range m.snapshot.Tasks {
		pl, ok := placements.Get(t.ID)
		if !ok || !pl.Placed {
			continue
		}
		for r := pl.StartSlot; r < min(pl.EndSlot(), g.Len()); r++ {
			owner[r] = i
		}
	}

	from, to := 0, g.Len()
	if rows := m.gridRows(); rows > 0 && rows < g.Len() {
		from = m.scrollOffset
		to = min(from+rows, g.Len())
	}

	cellWidth := m.cellWidth()
	lines := make([]string, 0, to-from)
	for r := from; r < to; r++ {
		slot := g.Slots[r]
		label := ""
		if slot.IsHourStart {
			label = slot.Label
		}
		labelStyle := m.styles.HourLabelStyle
		if slot.IsNight {
			labelStyle = labelStyle.Inherit(m.styles.NightStyle)
		}

		var cell string
		if i := owner[r]; i >= 0 {
			t := m.snapshot.Tasks[i]
			pl, _ := placements.Get(t.ID)
			cell = m.renderTaskRow(t, r-pl.StartSlot, i == m.cursor, cellWidth)
		} else {
			cell = m.renderEmptyRow(slot, cellWidth)
		}
		lines = append(lines, labelStyle.Render(label)+" "+cell)
	}
	return lines
}

// renderTaskRow renders one row of a task block. row is the offset from the block's first row.
func (m Model) renderTaskRow(t plan.Task, row int, selected bool, width int) string {
	pending := m.snapshot.IsPending(t.ID)

	var text string
	switch row {
	case 0:
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}
		text = fmt.Sprintf("%s %s  %s-%s", check, t.Title, t.StartTime, t.EndTime)
		if pending {
			text += "  saving..."
		}
	case 1:
		text = t.Description
		if text == "" {
			text = t.Duration
		}
	}
	text = ansi.Truncate(" "+text, width, "…")
	return m.styles.TaskStyle(t, selected, pending).Width(width).Render(text)
}

func (m Model) renderEmptyRow(slot timegrid.Slot, width int) string {
	if slot.IsHourStart {
		return m.styles.HourLineStyle.Render(strings.Repeat("╌", width))
	}
	return m.styles.EmptyCellStyle.Render(strings.Repeat(" ", width))
}

func (m Model) footerLines() []string {
	var lines []string

	if m.plan != nil {
		placements := timegrid.Place(m.snapshot.Tasks, m.activeGrid())
		if n := len(placements.Unplaced()); n > 0 && !m.full {
			lines = append(lines, m.styles.WarningStyle.Render(fmt.Sprintf("%d task(s) fall outside the current view. Press f for the full day.", n)))
		} else if n > 0 {
			lines = append(lines, m.styles.WarningStyle.Render(fmt.Sprintf("%d task(s) have no valid time.", n)))
		}
	}

	if m.mode == ModePrompt {
		lines = append(lines, m.styles.PromptStyle.Render(m.prompt.View()))
	}

	if m.statusMsg != "" {
		style := m.styles.StatusStyle
		if m.statusErr {
			style = m.styles.ErrorStyle
		}
		lines = append(lines, style.Render(ansi.Truncate(m.statusMsg, m.lineWidth(), "…")))
	}

	lines = append(lines, m.styles.HelpStyle.Render(m.help.View(m.keys)))
	return lines
}

// gridRows returns how many slot rows fit on screen, or 0 when the height is unknown.
func (m Model) gridRows() int {
	if m.height <= 0 {
		return 0
	}
	// Header, blank line, blank line before the footer, and the footer itself.
	reserved := 3 + m.footerHeight()
	return max(m.height-reserved, 1)
}

func (m Model) footerHeight() int {
	h := 0
	for _, line := range m.footerLines() {
		h += lipgloss.Height(line)
	}
	return h
}

func (m Model) lineWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m Model) cellWidth() int {
	return max(m.lineWidth()-timeColumnWidth-1, 10)
}
