package plan

// Stats summarizes completion for a plan.
type Stats struct {
	Total     int
	Completed int
}

// Percent returns the completion rate as a whole percentage.
func (s Stats) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return (s.Completed * 100) / s.Total
}

// Label returns a short status label for history listings.
func (s Stats) Label() string {
	switch pct := s.Percent(); {
	case s.Total == 0:
		return "Empty"
	case pct == 100:
		return "Completed"
	case pct >= 50:
		return "Partial"
	default:
		return "Incomplete"
	}
}

// Stats calculates completion statistics for the plan.
func (p *Plan) Stats() Stats {
	var s Stats
	for _, t := range p.Tasks {
		s.Total++
		if t.Completed {
			s.Completed++
		}
	}
	return s
}
