package web

import (
	"github.com/javiermolinar/dayplan/internal/plan"
	"github.com/javiermolinar/dayplan/internal/timegrid"
)

// slotHeight is the pixel height of one grid row in the HTML views.
const slotHeight = 60

// block is a placed task ready for rendering.
type block struct {
	Task   plan.Task
	Top    int
	Height int
}

// schedule is the template model of one day rendered on a grid.
type schedule struct {
	Plan       *plan.Plan
	Slots      []timegrid.Slot
	Blocks     []block
	Unplaced   []plan.Task
	Full       bool
	GridHeight int
	SlotHeight int
	Stats      plan.Stats
}

// CanExpand reports whether tasks are hidden by the current window.
func (s schedule) CanExpand() bool {
	return !s.Full && len(s.Unplaced) > 0
}

func buildSchedule(p *plan.Plan, g timegrid.Grid, full bool) schedule {
	s := schedule{
		Plan:       p,
		Slots:      g.Slots,
		Full:       full,
		GridHeight: g.Len() * slotHeight,
		SlotHeight: slotHeight,
	}
	if p == nil {
		return s
	}

	s.Stats = p.Stats()
	placements := timegrid.Place(p.Tasks, g)
	for _, t := range p.Tasks {
		pl, ok := placements.Get(t.ID)
		if !ok || !pl.Placed {
			continue
		}
		s.Blocks = append(s.Blocks, block{
			Task:   t,
			Top:    pl.Top(slotHeight),
			Height: pl.Height(slotHeight),
		})
	}
	for _, id := range placements.Unplaced() {
		if t, ok := p.Task(id); ok {
			s.Unplaced = append(s.Unplaced, t)
		}
	}
	return s
}
