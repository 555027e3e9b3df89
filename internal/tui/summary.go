package tui

import (
	"fmt"
	"strings"

	"github.com/javiermolinar/dayplan/internal/plan"
)

// summaryText renders a plan as plain text for the clipboard.
func summaryText(p *plan.Plan) string {
	var b strings.Builder
	s := p.Stats()
	fmt.Fprintf(&b, "Plan for %s (%d/%d done)\n", p.Date.Format("Monday, January 2, 2006"), s.Completed, s.Total)
	for _, t := range p.Tasks {
		check := " "
		if t.Completed {
			check = "x"
		}
		fmt.Fprintf(&b, "[%s] %s-%s %s", check, t.StartTime, t.EndTime, t.Title)
		if t.Priority != "" {
			fmt.Fprintf(&b, " (%s)", t.Priority)
		}
		b.WriteString("\n")
	}
	if p.Explanation != "" {
		b.WriteString("\n")
		b.WriteString(p.Explanation)
	}
	return strings.TrimRight(b.String(), "\n")
}
