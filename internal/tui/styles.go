package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/tui/theme"
)

// timeColumnWidth fits the longest slot label, "12:30 PM".
const timeColumnWidth = 9

// Styles holds all lipgloss styles for the TUI, derived from a theme.
type Styles struct {
	palette *theme.Palette

	TitleStyle    lipgloss.Style
	SubtitleStyle lipgloss.Style

	// Time column
	HourLabelStyle lipgloss.Style
	NightStyle     lipgloss.Style

	// Empty rows
	EmptyCellStyle lipgloss.Style
	HourLineStyle  lipgloss.Style

	// Status line
	StatusStyle  lipgloss.Style
	WarningStyle lipgloss.Style
	ErrorStyle   lipgloss.Style

	PromptStyle lipgloss.Style
	HelpStyle   lipgloss.Style
}

// NewStyles creates a new Styles instance from a theme.
func NewStyles(t *theme.Theme) *Styles {
	p := theme.NewPalette(t)
	return &Styles{
		palette: p,

		TitleStyle:    lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		SubtitleStyle: lipgloss.NewStyle().Foreground(p.FgMuted),

		HourLabelStyle: lipgloss.NewStyle().Foreground(p.Fg).Width(timeColumnWidth),
		NightStyle:     lipgloss.NewStyle().Foreground(p.FgMuted).Background(p.Night),

		EmptyCellStyle: lipgloss.NewStyle().Foreground(p.FgMuted),
		HourLineStyle:  lipgloss.NewStyle().Foreground(p.BgHighlight),

		StatusStyle:  lipgloss.NewStyle().Foreground(p.Fg),
		WarningStyle: lipgloss.NewStyle().Foreground(p.Warning),
		ErrorStyle:   lipgloss.NewStyle().Bold(true).Foreground(p.TextOnWarning).Background(p.Warning).Padding(0, 1),

		PromptStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent).
			Padding(0, 1),
		HelpStyle: lipgloss.NewStyle().Foreground(p.FgMuted),
	}
}

// TaskStyle returns the block style of a task row.
func (s *Styles) TaskStyle(t plan.Task, selected, pending bool) lipgloss.Style {
	c := s.palette.Task(t.Priority)
	style := lipgloss.NewStyle().Foreground(c.Text).Background(c.Bg)
	switch {
	case pending:
		style = style.Background(c.DoneBg).Foreground(s.palette.FgMuted).Faint(true)
	case t.Completed:
		style = style.Background(c.DoneBg).Foreground(s.palette.FgMuted).Strikethrough(true)
	}
	if selected {
		style = style.Background(c.Selected).Bold(true)
	}
	return style
}
