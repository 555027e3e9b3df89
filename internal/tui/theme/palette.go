// Package theme provides color themes for the TUI.
package theme

import (
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/javiermolinar/dayplan/internal/plan"
)

// TaskColors holds the block colors for one priority.
type TaskColors struct {
	Bg       lipgloss.Color
	Selected lipgloss.Color // block under the cursor
	DoneBg   lipgloss.Color // completed or awaiting confirmation
	Text     lipgloss.Color
}

// Palette holds precomputed colors derived from a Theme.
type Palette struct {
	Bg          lipgloss.Color
	BgHighlight lipgloss.Color
	BgSelection lipgloss.Color
	Fg          lipgloss.Color
	FgMuted     lipgloss.Color
	Accent      lipgloss.Color
	Night       lipgloss.Color
	Warning     lipgloss.Color

	TextOnAccent  lipgloss.Color
	TextOnWarning lipgloss.Color

	tasks map[plan.Priority]TaskColors
}

// NewPalette derives a Palette from the provided Theme.
func NewPalette(t *Theme) *Palette {
	if t == nil {
		t, _ = Load(DefaultName)
	}

	light := luminance(t.Bg) > 0.55
	tasks := make(map[plan.Priority]TaskColors, 3)
	for _, p := range []plan.Priority{plan.PriorityHigh, plan.PriorityMedium, plan.PriorityLow} {
		open, done := blockShades(t.Priority(p), t.Bg, light)
		tasks[p] = TaskColors{
			Bg:       lipgloss.Color(open),
			Selected: lipgloss.Color(selectedShade(open, light)),
			DoneBg:   lipgloss.Color(done),
			Text:     lipgloss.Color(readableOn(open, t.Fg, t.Bg)),
		}
	}

	return &Palette{
		Bg:          lipgloss.Color(t.Bg),
		BgHighlight: lipgloss.Color(t.BgHighlight),
		BgSelection: lipgloss.Color(t.BgSelection),
		Fg:          lipgloss.Color(t.Fg),
		FgMuted:     lipgloss.Color(t.FgMuted),
		Accent:      lipgloss.Color(t.Accent),
		Night:       lipgloss.Color(t.Night),
		Warning:     lipgloss.Color(t.Warning),

		TextOnAccent:  lipgloss.Color(readableOn(t.Accent, t.Bg, t.Fg)),
		TextOnWarning: lipgloss.Color(readableOn(t.Warning, t.Bg, t.Fg)),

		tasks: tasks,
	}
}

// Task returns the block colors for a priority. Unknown priorities use MEDIUM.
func (p *Palette) Task(pr plan.Priority) TaskColors {
	if c, ok := p.tasks[pr]; ok {
		return c
	}
	return p.tasks[plan.PriorityMedium]
}

// blockShades returns the open and done backgrounds of a priority block.
// Light themes wash the accent into the background; dark themes dim it.
func blockShades(accent, bg string, light bool) (open, done string) {
	if light {
		return mix(accent, bg, 0.75), mix(accent, bg, 0.88)
	}
	return dim(accent, 0.50, 40), dim(accent, 0.30, 30)
}

// selectedShade nudges a block background away from the theme background.
func selectedShade(hex string, light bool) string {
	if light {
		return mix(hex, "#000000", 0.10)
	}
	return mix(hex, "#ffffff", 0.30)
}

// parse reads a "#rrggbb" color. Other forms, such as ANSI indexes, are rejected.
func parse(hex string) (colorful.Color, bool) {
	if len(hex) != 7 || hex[0] != '#' {
		return colorful.Color{}, false
	}
	c, err := colorful.Hex(hex)
	return c, err == nil
}

// dim scales every channel by factor, keeping each at least floor out of 255.
func dim(hex string, factor, floor float64) string {
	c, ok := parse(hex)
	if !ok {
		return hex
	}
	channel := func(v float64) float64 {
		return math.Max(v*factor, floor/255)
	}
	return colorful.Color{R: channel(c.R), G: channel(c.G), B: channel(c.B)}.Clamped().Hex()
}

// mix blends a toward b in RGB; t is clamped to [0, 1].
func mix(a, b string, t float64) string {
	ca, okA := parse(a)
	cb, okB := parse(b)
	if !okA || !okB {
		return a
	}
	return ca.BlendRgb(cb, math.Min(math.Max(t, 0), 1)).Clamped().Hex()
}

// readableOn picks the candidate with the highest contrast against bg.
// Ties go to the first candidate.
func readableOn(bg string, candidates ...string) string {
	best, bestRatio := "", -1.0
	for _, c := range candidates {
		if r := contrast(bg, c); r > bestRatio {
			best, bestRatio = c, r
		}
	}
	return best
}

// contrast is the WCAG contrast ratio of two colors.
func contrast(a, b string) float64 {
	hi, lo := luminance(a), luminance(b)
	if hi < lo {
		hi, lo = lo, hi
	}
	return (hi + 0.05) / (lo + 0.05)
}

// luminance is the WCAG relative luminance; unparseable colors count as black.
func luminance(hex string) float64 {
	c, ok := parse(hex)
	if !ok {
		return 0
	}
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}
