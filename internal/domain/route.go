package domain

import "time"

// Route is the optimal ordering for a single leg.
// Order runs from the leg's start to its end inclusive.
// It is immutable planning data and contains no side effects.
type Route struct {
	Order        []string `json:"order"`
	TotalSeconds float64  `json:"total_seconds"`
	PrettyTime   string   `json:"pretty_time"`
}

// Leg names one directed route computation of a group.
type Leg string

const (
	LegForward Leg = "forward"
	LegReturn  Leg = "return"
)

// Run is the audit record of one planning pass over the roster.
type Run struct {
	ID          string    `json:"id"`
	Destination string    `json:"destination"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Groups      []Group   `json:"groups"`
}

// FailedLegs counts legs across the run that ended in an error.
func (r *Run) FailedLegs() int {
	n := 0
	for i := range r.Groups {
		if r.Groups[i].BestRouteError != nil {
			n++
		}
		if r.Groups[i].BestReturnRouteError != nil {
			n++
		}
	}
	return n
}
