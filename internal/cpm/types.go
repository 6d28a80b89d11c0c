package cpm

import "github.com/joshharrison/crashpath/internal/graph"

// Epsilon is the tolerance used when comparing schedule times.
const Epsilon = 1e-6

// Durations assigns a working duration to activities. Activities without an
// entry are analysed at their normal duration.
type Durations map[graph.ActivityID]float64

// Result holds the complete critical path analysis.
type Result struct {
	Activities      map[graph.ActivityID]*Schedule
	CriticalPath    []graph.ActivityID // critical activities in topological order
	ProjectDuration float64
	Waves           []Wave // activities grouped by earliest start
	TopoOrder       []graph.ActivityID
}

// Schedule holds the timing of a single activity.
type Schedule struct {
	ActivityID graph.ActivityID `json:"id"`
	Duration   float64          `json:"duration"`
	ES         float64          `json:"earliest_start"`
	EF         float64          `json:"earliest_finish"`
	LS         float64          `json:"latest_start"`
	LF         float64          `json:"latest_finish"`
	TotalFloat float64          `json:"total_float"`
	FreeFloat  float64          `json:"free_float"`
	IsCritical bool             `json:"is_critical"`
	Wave       int              `json:"wave"`
}

// Wave is a group of activities sharing the same earliest start.
type Wave struct {
	Index       int                `json:"index"`
	Start       float64            `json:"start"`
	ActivityIDs []graph.ActivityID `json:"activity_ids"`
	IsCritical  bool               `json:"is_critical"` // true if the wave holds a critical activity
}

// Critical returns the set of critical activity ids.
func (r *Result) Critical() map[graph.ActivityID]bool {
	out := make(map[graph.ActivityID]bool, len(r.CriticalPath))
	for _, id := range r.CriticalPath {
		out[id] = true
	}
	return out
}

// Ordered returns the schedules in topological order.
func (r *Result) Ordered() []*Schedule {
	out := make([]*Schedule, 0, len(r.TopoOrder))
	for _, id := range r.TopoOrder {
		out = append(out, r.Activities[id])
	}
	return out
}

// CriticalEdge reports whether the edge from -> to lies on a longest path:
// both ends are critical and to starts the moment from finishes.
func (r *Result) CriticalEdge(from, to graph.ActivityID) bool {
	f, ok := r.Activities[from]
	if !ok || !f.IsCritical {
		return false
	}
	s, ok := r.Activities[to]
	if !ok || !s.IsCritical {
		return false
	}
	return nearlyEqual(f.EF, s.ES)
}
