// Package engine is the entry point for callers that hold one project network
// at a time: load it, edit it, analyse it, crash it.
package engine

import (
	"github.com/joshharrison/crashpath/internal/cpm"
	"github.com/joshharrison/crashpath/internal/crash"
	"github.com/joshharrison/crashpath/internal/graph"
)

// Engine owns a single activity graph. It is not safe for concurrent use.
type Engine struct {
	g    *graph.ActivityGraph
	opts []crash.Option
}

// New returns an engine holding an empty network. opts apply to every
// optimisation run.
func New(opts ...crash.Option) *Engine {
	return &Engine{g: graph.New(), opts: opts}
}

// Load replaces the network with one built from records. On failure the
// previous network is kept.
func (e *Engine) Load(records []graph.Record) error {
	g, err := graph.Load(records)
	if err != nil {
		return err
	}
	e.g = g
	return nil
}

// Graph returns the current network. Callers must not mutate it directly.
func (e *Engine) Graph() *graph.ActivityGraph {
	return e.g
}

// Records returns the network in a form Load accepts.
func (e *Engine) Records() []graph.Record {
	return e.g.Records()
}

func (e *Engine) AddActivity(rec graph.Record) error {
	return e.g.Add(rec)
}

func (e *Engine) RemoveActivity(id graph.ActivityID) error {
	return e.g.Remove(id)
}

func (e *Engine) UpdatePredecessors(id graph.ActivityID, preds []graph.ActivityID) error {
	return e.g.UpdatePredecessors(id, preds)
}

func (e *Engine) UpdateDuration(id graph.ActivityID, normal, crash float64) error {
	return e.g.UpdateDuration(id, normal, crash)
}

func (e *Engine) UpdateCost(id graph.ActivityID, normal, crash float64) error {
	return e.g.UpdateCost(id, normal, crash)
}

// ComputeCriticalPath analyses the network at normal durations.
func (e *Engine) ComputeCriticalPath() (*cpm.Result, error) {
	return cpm.Analyze(e.g, nil)
}

// OptimizeToTarget crashes the network towards target.
func (e *Engine) OptimizeToTarget(target float64) (*crash.Plan, error) {
	return crash.ToTarget(e.g, target, e.opts...)
}

// OptimizeSteps applies at most n crash steps.
func (e *Engine) OptimizeSteps(n int) (*crash.Plan, error) {
	return crash.Steps(e.g, n, e.opts...)
}
