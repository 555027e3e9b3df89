package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/timegrid"
)

// labelWidth fits the longest hour label, "12 PM".
const labelWidth = 6

// PrintOpts configures plan printing behavior.
type PrintOpts struct {
	Width   int  // Maximum line width
	Verbose bool // Show descriptions and task IDs
}

func checkbox(t plan.Task) string {
	if t.Completed {
		return "[x]"
	}
	return "[ ]"
}

func priorityTag(p plan.Priority) string {
	if p == "" {
		return "[-]"
	}
	return formatPriority(p, "["+string(p)[:1]+"]")
}

// statsLine summarizes completion, e.g. "1/3 done (33%)".
func statsLine(s plan.Stats) string {
	return fmt.Sprintf("%d/%d done (%d%%)", s.Completed, s.Total, s.Percent())
}

// formatLabel colors a history status label.
func formatLabel(s plan.Stats) string {
	label := s.Label()
	switch label {
	case "Completed":
		return formatStats(label)
	case "Partial":
		return formatInsight(label)
	case "Empty":
		return formatMuted(label)
	default:
		return formatWarning(label)
	}
}

// PrintTaskRow prints a single task row with consistent formatting.
func PrintTaskRow(w io.Writer, t plan.Task, opts PrintOpts) {
	line := fmt.Sprintf("  %s %s-%s  %s  %s  %s",
		checkbox(t),
		t.StartTime,
		t.EndTime,
		priorityTag(t.Priority),
		t.Title,
		formatMuted(t.Duration),
	)
	fmt.Fprintln(w, truncate(line, opts.Width))
	if !opts.Verbose {
		return
	}
	if t.Description != "" {
		fmt.Fprintln(w, truncate("        "+t.Description, opts.Width))
	}
	fmt.Fprintln(w, "        "+formatMuted("id: "+t.ID))
}

// PrintPlan prints a plan's header and task list.
func PrintPlan(w io.Writer, p *plan.Plan, opts PrintOpts) {
	fmt.Fprintf(w, "=== %s ===  %s\n\n", formatHeader(p.Date.Format("Monday, January 2, 2006")), formatStats(statsLine(p.Stats())))
	for _, t := range p.Tasks {
		PrintTaskRow(w, t, opts)
	}
	if p.Explanation != "" {
		fmt.Fprintf(w, "\n%s\n", formatInsight(p.Explanation))
	}
}

// RenderGrid lays the plan's tasks out on the grid, one line per slot.
// Tasks outside the window are listed after the grid.
func RenderGrid(p *plan.Plan, g timegrid.Grid, width int) []string {
	placements := timegrid.Place(p.Tasks, g)

	// Overlapping tasks share rows; the later start wins.
	owner := make([]int, g.Len())
	for i := range owner {
		owner[i] = -1
	}
	for i, t := range p.Tasks {
		pl, ok := placements.Get(t.ID)
		if !ok || !pl.Placed {
			continue
		}
		for r := pl.StartSlot; r < min(pl.EndSlot(), g.Len()); r++ {
			owner[r] = i
		}
	}

	lines := make([]string, 0, g.Len()+2)
	for r, slot := range g.Slots {
		label := ""
		if slot.IsHourStart {
			label = slot.HourLabel
		}
		label = fmt.Sprintf("%*s ", labelWidth-1, label)
		if slot.IsNight {
			label = formatMuted(label)
		}

		var cell string
		if i := owner[r]; i >= 0 {
			t := p.Tasks[i]
			pl, _ := placements.Get(t.ID)
			if r == pl.StartSlot {
				cell = formatPriority(t.Priority, "┃ ") + fmt.Sprintf("%s %s  %s", checkbox(t), t.Title, formatMuted(t.StartTime+"-"+t.EndTime))
			} else {
				cell = formatPriority(t.Priority, "┃")
			}
		} else if slot.IsHourStart {
			cell = formatMuted(strings.Repeat("┄", max(width-labelWidth, 1)))
		}
		lines = append(lines, truncate(strings.TrimRight(label+cell, " "), width))
	}

	if unplaced := placements.Unplaced(); len(unplaced) > 0 {
		lines = append(lines, "", formatWarning(fmt.Sprintf("Outside %s-%s:", g.Window.Start, g.Window.End)))
		for _, id := range unplaced {
			t, _ := p.Task(id)
			lines = append(lines, truncate(fmt.Sprintf("  %s %s-%s %s", checkbox(t), t.StartTime, t.EndTime, t.Title), width))
		}
	}
	return lines
}

// truncate shortens s to width terminal cells, keeping escape sequences intact.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
