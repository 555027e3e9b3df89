package timegrid

import (
	"sort"

	"github.com/javiermolinar/dayplan/internal/plan"
)

// Placement is where a task sits on a grid.
type Placement struct {
	TaskID    string
	StartSlot int // -1 when unplaced
	Span      int // always >= 1
	Placed    bool
}

// EndSlot returns the slot index just after the task.
func (p Placement) EndSlot() int {
	return p.StartSlot + p.Span
}

// Top returns the block offset for rows of the given height.
func (p Placement) Top(slotHeight int) int {
	return p.StartSlot * slotHeight
}

// Height returns the block height for rows of the given height, leaving room for a border.
func (p Placement) Height(slotHeight int) int {
	return p.Span*slotHeight - 2
}

// Placements maps task ids to their placement.
type Placements struct {
	byID     map[string]Placement
	unplaced []string
}

// Get returns the placement for a task id.
func (ps Placements) Get(id string) (Placement, bool) {
	p, ok := ps.byID[id]
	return p, ok
}

// Len returns the number of placed and unplaced tasks.
func (ps Placements) Len() int {
	return len(ps.byID)
}

// Unplaced returns the ids of tasks outside the grid window, ordered by start time.
func (ps Placements) Unplaced() []string {
	out := make([]string, len(ps.unplaced))
	copy(out, ps.unplaced)
	return out
}

// HasUnplaced reports whether any task falls outside the window.
// Views use it to offer expanding to the full day.
func (ps Placements) HasUnplaced() bool {
	return len(ps.unplaced) > 0
}

// All returns a copy of every placement keyed by task id.
func (ps Placements) All() map[string]Placement {
	out := make(map[string]Placement, len(ps.byID))
	for k, v := range ps.byID {
		out[k] = v
	}
	return out
}

// Place computes the start slot and span of every task on the grid.
// Overlapping tasks get independent placements.
func Place(tasks []plan.Task, g Grid) Placements {
	ps := Placements{byID: make(map[string]Placement, len(tasks))}
	starts := make(map[string]int, len(tasks))

	for _, t := range tasks {
		p := Placement{TaskID: t.ID, StartSlot: -1, Span: span(t, g.SlotMinutes())}

		start, err := t.StartMinutes()
		if err == nil {
			if idx, ok := g.SlotIndex(start); ok {
				p.StartSlot = idx
				p.Placed = true
			}
		}
		ps.byID[t.ID] = p
		starts[t.ID] = start
	}

	for id, p := range ps.byID {
		if !p.Placed {
			ps.unplaced = append(ps.unplaced, id)
		}
	}
	sort.Slice(ps.unplaced, func(i, j int) bool {
		a, b := ps.unplaced[i], ps.unplaced[j]
		if starts[a] != starts[b] {
			return starts[a] < starts[b]
		}
		return a < b
	})

	return ps
}

// span is ceil(duration / slot), never less than one slot.
func span(t plan.Task, slotMinutes int) int {
	if slotMinutes <= 0 {
		return 1
	}
	d := t.DurationMinutes()
	if d <= 0 {
		return 1
	}
	return (d + slotMinutes - 1) / slotMinutes
}
