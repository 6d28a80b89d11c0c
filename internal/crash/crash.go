// Package crash shortens an activity network toward a target duration by
// repeatedly crashing the critical activity with the lowest cost slope.
//
// The choice is greedy. When two or more critical paths run in parallel and
// share no activity, shortening one of them alone does not move the project
// duration, so the loop can stop at a longer duration than a joint cut would
// reach.
package crash

import (
	"math"

	"github.com/joshharrison/crashpath/internal/cpm"
	"github.com/joshharrison/crashpath/internal/graph"
)

const maxFinite = math.MaxFloat64

// ToTarget shortens the project until its duration is at most target, one
// step at a time, always reducing the cheapest critical activity. The critical
// path is recomputed after every step. The graph itself is only read.
//
// An unreachable target is not an error: the plan comes back with
// StatusInfeasible and Plan.Err describes the floor that was reached.
func ToTarget(g *graph.ActivityGraph, target float64, opts ...Option) (*Plan, error) {
	if math.IsNaN(target) || math.IsInf(target, 0) || target < 0 {
		return nil, &graph.ValidationError{Field: "target", Reason: "must be a finite, non-negative number"}
	}
	return optimize(g, ModeTarget, target, -1, buildOptions(opts))
}

// Steps applies at most n reductions with no target duration, choosing each
// one the same way ToTarget does. The plan has ModeSteps and a zero Target.
func Steps(g *graph.ActivityGraph, n int, opts ...Option) (*Plan, error) {
	if n < 0 {
		return nil, &graph.ValidationError{Field: "steps", Reason: "must not be negative"}
	}
	return optimize(g, ModeSteps, 0, n, buildOptions(opts))
}

// optimize runs the greedy loop. limit < 0 means run until target.
func optimize(g *graph.ActivityGraph, mode Mode, target float64, limit int, o Options) (*Plan, error) {
	current := cpm.NormalDurations(g)
	plan := &Plan{
		Mode:       mode,
		Target:     target,
		NormalCost: normalCost(g),
		Steps:      []Step{},
	}

	for {
		res, err := cpm.Analyze(g, current)
		if err != nil {
			return nil, err
		}
		plan.Iterations++
		pd := res.ProjectDuration

		if plan.Iterations == 1 {
			plan.InitialProjectDuration = pd
		}
		if n := len(plan.Steps); n > 0 {
			plan.Steps[n-1].ProjectDurationAfter = pd
		}
		plan.FinalProjectDuration = pd

		if limit < 0 && pd <= target+cpm.Epsilon {
			plan.Status = StatusAchieved
			break
		}
		if limit >= 0 && len(plan.Steps) >= limit {
			plan.Status = StatusAchieved
			break
		}

		id, ok := pickCandidate(g, res, current)
		if !ok {
			o.Logger.Debug("no compressible critical activity left", "project_duration", pd)
			plan.Status = StatusInfeasible
			break
		}

		// The cap counts applied steps, so the last one is always analysed.
		if len(plan.Steps) >= o.MaxIterations {
			o.Logger.Warn("crash loop hit iteration cap", "steps", len(plan.Steps), "project_duration", pd)
			return nil, &ConvergenceLimitError{
				Iterations:      len(plan.Steps),
				Target:          target,
				ProjectDuration: pd,
			}
		}

		a, _ := g.Activity(id)
		perUnit, _ := a.Slope().PerUnit()
		remaining := current[id] - a.CrashDuration

		step := math.Min(o.StepUnit, remaining)
		if limit < 0 {
			step = math.Min(step, pd-target)
		}
		if step >= remaining {
			current[id] = a.CrashDuration
		} else {
			current[id] -= step
		}

		s := Step{
			Iteration:             len(plan.Steps) + 1,
			ActivityID:            id,
			Amount:                step,
			MarginalCost:          perUnit,
			Cost:                  step * perUnit,
			ProjectDurationBefore: pd,
		}
		plan.Steps = append(plan.Steps, s)
		plan.TotalAddedCost += s.Cost

		o.Logger.Debug("crashed activity",
			"iteration", s.Iteration,
			"activity", id,
			"amount", step,
			"slope", perUnit,
			"duration", current[id],
			"project_duration", pd,
		)
	}

	plan.Durations = current
	return plan, nil
}

// pickCandidate returns the critical activity that can still be shortened at
// the lowest slope. Equal slopes resolve to the lowest id.
func pickCandidate(g *graph.ActivityGraph, res *cpm.Result, current cpm.Durations) (graph.ActivityID, bool) {
	var (
		best      graph.ActivityID
		bestSlope graph.Slope
		found     bool
	)
	for _, id := range res.CriticalPath {
		a, _ := g.Activity(id)
		slope := a.Slope()
		if !slope.Crashable() || current[id]-a.CrashDuration <= cpm.Epsilon {
			continue
		}
		if !found || slope.Less(bestSlope) || (!bestSlope.Less(slope) && id < best) {
			best, bestSlope, found = id, slope, true
		}
	}
	return best, found
}

func normalCost(g *graph.ActivityGraph) float64 {
	total := 0.0
	for _, id := range g.IDs() {
		a, _ := g.Activity(id)
		total += a.NormalCost
	}
	return total
}
