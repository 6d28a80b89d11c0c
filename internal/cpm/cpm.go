package cpm

import (
	"math"
	"sort"

	"github.com/joshharrison/crashpath/internal/graph"
)

// NormalDurations returns every activity's normal duration.
func NormalDurations(g *graph.ActivityGraph) Durations {
	d := make(Durations, g.Len())
	for _, id := range g.IDs() {
		a, _ := g.Activity(id)
		d[id] = a.NormalDuration
	}
	return d
}

// Analyze performs critical path method analysis on an activity graph.
// durations overrides the normal duration of the activities it names; a nil
// map analyses the network as stored.
func Analyze(g *graph.ActivityGraph, durations Durations) (*Result, error) {
	for id, d := range durations {
		if !g.Has(id) {
			return nil, &graph.UnknownReferenceError{ID: id}
		}
		if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
			return nil, &graph.ValidationError{ID: id, Field: "duration", Reason: "must be a finite, non-negative number"}
		}
	}

	order := g.TopologicalOrder()
	result := &Result{
		Activities: make(map[graph.ActivityID]*Schedule, len(order)),
		TopoOrder:  order,
	}

	// Initialize schedules
	for _, id := range order {
		d, ok := durations[id]
		if !ok {
			a, _ := g.Activity(id)
			d = a.NormalDuration
		}
		result.Activities[id] = &Schedule{ActivityID: id, Duration: d}
	}

	// Forward pass: ES = max(EF of all predecessors)
	for _, id := range order {
		s := result.Activities[id]
		es := 0.0
		for _, pred := range g.Predecessors(id) {
			if ef := result.Activities[pred].EF; ef > es {
				es = ef
			}
		}
		s.ES = es
		s.EF = es + s.Duration
	}

	projectDuration := 0.0
	for _, s := range result.Activities {
		if s.EF > projectDuration {
			projectDuration = s.EF
		}
	}
	result.ProjectDuration = projectDuration

	// Backward pass in reverse topological order: LF = min(LS of successors)
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		s := result.Activities[id]

		succs := g.Successors(id)
		lf := projectDuration
		freeLimit := projectDuration
		for _, succ := range succs {
			ss := result.Activities[succ]
			if ss.LS < lf {
				lf = ss.LS
			}
			if ss.ES < freeLimit {
				freeLimit = ss.ES
			}
		}
		s.LF = lf
		s.LS = lf - s.Duration
		s.TotalFloat = s.LS - s.ES
		s.FreeFloat = freeLimit - s.EF
		s.IsCritical = nearlyEqual(s.EF, s.LF)
	}

	for _, id := range order {
		if result.Activities[id].IsCritical {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}

	result.Waves = computeWaves(result)

	return result, nil
}

// computeWaves groups activities by their earliest start time.
func computeWaves(result *Result) []Wave {
	// Bucket by ES, merging start times that differ only by rounding noise.
	starts := make([]float64, 0)
	groups := make(map[int][]graph.ActivityID)
	for _, id := range result.TopoOrder {
		es := result.Activities[id].ES
		idx := -1
		for i, s := range starts {
			if nearlyEqual(s, es) {
				idx = i
				break
			}
		}
		if idx < 0 {
			starts = append(starts, es)
			idx = len(starts) - 1
		}
		groups[idx] = append(groups[idx], id)
	}

	buckets := make([]int, len(starts))
	for i := range buckets {
		buckets[i] = i
	}
	sort.Slice(buckets, func(a, b int) bool { return starts[buckets[a]] < starts[buckets[b]] })

	waves := make([]Wave, len(buckets))
	for i, b := range buckets {
		ids := groups[b]
		sort.Slice(ids, func(x, y int) bool { return ids[x] < ids[y] })

		hasCritical := false
		for _, id := range ids {
			result.Activities[id].Wave = i
			if result.Activities[id].IsCritical {
				hasCritical = true
			}
		}

		// Critical activities first within a wave
		sort.SliceStable(ids, func(x, y int) bool {
			return result.Activities[ids[x]].IsCritical && !result.Activities[ids[y]].IsCritical
		})

		waves[i] = Wave{
			Index:       i,
			Start:       starts[b],
			ActivityIDs: ids,
			IsCritical:  hasCritical,
		}
	}

	return waves
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}
