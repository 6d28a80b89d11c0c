package graph

import (
	"fmt"
)

// ActivityGraph is a directed acyclic graph of activities. Edges run from a
// predecessor to its successors and are derived from the predecessor sets, so
// the only way to change them is through the mutation methods.
//
// Every mutation is applied to a scratch copy, validated, and committed only
// if the copy is still acyclic; a rejected call leaves the graph untouched.
type ActivityGraph struct {
	activities map[ActivityID]*Activity
	succ       map[ActivityID][]ActivityID // activity -> activities that depend on it
}

// New returns an empty graph.
func New() *ActivityGraph {
	return &ActivityGraph{
		activities: make(map[ActivityID]*Activity),
		succ:       make(map[ActivityID][]ActivityID),
	}
}

// Load builds a fresh graph from records. Records may reference activities
// that appear later in the slice. Nothing is returned unless every record is
// valid and the network is acyclic.
func Load(records []Record) (*ActivityGraph, error) {
	g := New()
	for _, rec := range records {
		if err := validateRecord(rec); err != nil {
			return nil, err
		}
		if _, dup := g.activities[rec.ID]; dup {
			return nil, &ValidationError{ID: rec.ID, Field: "id", Reason: "duplicate activity"}
		}
		g.activities[rec.ID] = newActivity(rec)
	}

	for _, rec := range records {
		for _, p := range g.activities[rec.ID].Predecessors {
			if _, ok := g.activities[p]; !ok {
				return nil, &UnknownReferenceError{ID: p, From: rec.ID}
			}
		}
	}

	g.rebuildEdges()
	if cycle := g.DetectCycle(); cycle != nil {
		return nil, &CycleError{Cycle: cycle}
	}
	return g, nil
}

// Add inserts a new activity with its incoming edges.
func (g *ActivityGraph) Add(rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if _, dup := g.activities[rec.ID]; dup {
		return &ValidationError{ID: rec.ID, Field: "id", Reason: "duplicate activity"}
	}

	a := newActivity(rec)
	for _, p := range a.Predecessors {
		if p == rec.ID {
			return &CycleError{Cycle: []ActivityID{p, p}}
		}
		if _, ok := g.activities[p]; !ok {
			return &UnknownReferenceError{ID: p, From: rec.ID}
		}
	}

	return g.apply(func(scratch *ActivityGraph) error {
		scratch.activities[a.ID] = a
		return nil
	})
}

// Remove deletes an activity, its edges, and every reference to it in the
// predecessor sets of the remaining activities.
func (g *ActivityGraph) Remove(id ActivityID) error {
	if _, ok := g.activities[id]; !ok {
		return &UnknownReferenceError{ID: id}
	}

	return g.apply(func(scratch *ActivityGraph) error {
		delete(scratch.activities, id)
		for _, a := range scratch.activities {
			a.Predecessors = without(a.Predecessors, id)
		}
		return nil
	})
}

// UpdatePredecessors replaces the predecessor set of id.
func (g *ActivityGraph) UpdatePredecessors(id ActivityID, preds []ActivityID) error {
	if _, ok := g.activities[id]; !ok {
		return &UnknownReferenceError{ID: id}
	}
	next := normalizeIDs(preds)
	for _, p := range next {
		if _, ok := g.activities[p]; !ok {
			return &UnknownReferenceError{ID: p, From: id}
		}
	}

	return g.apply(func(scratch *ActivityGraph) error {
		scratch.activities[id].Predecessors = next
		return nil
	})
}

// UpdateDuration sets the normal and crash durations of id.
func (g *ActivityGraph) UpdateDuration(id ActivityID, normal, crash float64) error {
	a, ok := g.activities[id]
	if !ok {
		return &UnknownReferenceError{ID: id}
	}
	proposed := a.Record()
	proposed.NormalDuration = normal
	proposed.CrashDuration = crash
	return g.replace(proposed)
}

// UpdateCost sets the normal and crash costs of id.
func (g *ActivityGraph) UpdateCost(id ActivityID, normal, crash float64) error {
	a, ok := g.activities[id]
	if !ok {
		return &UnknownReferenceError{ID: id}
	}
	proposed := a.Record()
	proposed.NormalCost = normal
	proposed.CrashCost = crash
	return g.replace(proposed)
}

// replace swaps in a revalidated activity whose edges are unchanged.
func (g *ActivityGraph) replace(rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	g.activities[rec.ID] = newActivity(rec)
	return nil
}

// apply runs mutate against a scratch copy and commits the copy if it is
// still acyclic.
func (g *ActivityGraph) apply(mutate func(scratch *ActivityGraph) error) error {
	scratch := g.Clone()
	if err := mutate(scratch); err != nil {
		return err
	}
	scratch.rebuildEdges()
	if cycle := scratch.DetectCycle(); cycle != nil {
		return &CycleError{Cycle: cycle}
	}
	g.activities = scratch.activities
	g.succ = scratch.succ
	return nil
}

// rebuildEdges derives the successor lists from the predecessor sets.
func (g *ActivityGraph) rebuildEdges() {
	g.succ = make(map[ActivityID][]ActivityID, len(g.activities))
	for _, id := range g.IDs() {
		for _, p := range g.activities[id].Predecessors {
			g.succ[p] = append(g.succ[p], id)
		}
	}
}

// Clone returns a deep copy of the graph.
func (g *ActivityGraph) Clone() *ActivityGraph {
	c := &ActivityGraph{
		activities: make(map[ActivityID]*Activity, len(g.activities)),
		succ:       make(map[ActivityID][]ActivityID, len(g.succ)),
	}
	for id, a := range g.activities {
		c.activities[id] = a.clone()
	}
	for id, s := range g.succ {
		c.succ[id] = append([]ActivityID(nil), s...)
	}
	return c
}

// Len returns the number of activities.
func (g *ActivityGraph) Len() int {
	return len(g.activities)
}

// Has reports whether id is in the graph.
func (g *ActivityGraph) Has(id ActivityID) bool {
	_, ok := g.activities[id]
	return ok
}

// Activity returns a copy of the activity stored under id.
func (g *ActivityGraph) Activity(id ActivityID) (Activity, bool) {
	a, ok := g.activities[id]
	if !ok {
		return Activity{}, false
	}
	return *a.clone(), true
}

// IDs returns every activity id in ascending order.
func (g *ActivityGraph) IDs() []ActivityID {
	ids := make([]ActivityID, 0, len(g.activities))
	for id := range g.activities {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Predecessors returns the sorted predecessor set of id.
func (g *ActivityGraph) Predecessors(id ActivityID) []ActivityID {
	a, ok := g.activities[id]
	if !ok {
		return nil
	}
	return append([]ActivityID(nil), a.Predecessors...)
}

// Successors returns the sorted list of activities that depend on id.
func (g *ActivityGraph) Successors(id ActivityID) []ActivityID {
	return append([]ActivityID(nil), g.succ[id]...)
}

// Sources returns the activities with no predecessors.
func (g *ActivityGraph) Sources() []ActivityID {
	var out []ActivityID
	for _, id := range g.IDs() {
		if len(g.activities[id].Predecessors) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Sinks returns the activities nothing depends on.
func (g *ActivityGraph) Sinks() []ActivityID {
	var out []ActivityID
	for _, id := range g.IDs() {
		if len(g.succ[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Records returns every activity as a Record, in topological order.
func (g *ActivityGraph) Records() []Record {
	order := g.TopologicalOrder()
	out := make([]Record, 0, len(order))
	for _, id := range order {
		out = append(out, g.activities[id].Record())
	}
	return out
}

// TopologicalOrder returns the activities so that every predecessor comes
// before its successors. Activities that become ready together are emitted in
// ascending id order.
func (g *ActivityGraph) TopologicalOrder() []ActivityID {
	order, err := g.topoSort()
	if err != nil {
		// Mutations never commit a cyclic graph.
		panic(err)
	}
	return order
}

// topoSort performs Kahn's algorithm.
func (g *ActivityGraph) topoSort() ([]ActivityID, error) {
	inDegree := make(map[ActivityID]int, len(g.activities))
	var queue []ActivityID
	for _, id := range g.IDs() {
		inDegree[id] = len(g.activities[id].Predecessors)
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]ActivityID, 0, len(g.activities))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var newReady []ActivityID
		for _, succ := range g.succ[node] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				newReady = append(newReady, succ)
			}
		}
		// Keep the queue ordered so ties resolve by id.
		queue = mergeSorted(queue, newReady)
	}

	if len(order) != len(g.activities) {
		return nil, fmt.Errorf("topological sort failed: graph has a cycle (%d of %d activities sorted)", len(order), len(g.activities))
	}
	return order, nil
}

// DetectCycle returns the cycle path if one exists, or nil if the graph is acyclic.
// Uses DFS with coloring: white (unvisited), gray (in progress), black (done).
func (g *ActivityGraph) DetectCycle() []ActivityID {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[ActivityID]int, len(g.activities))
	parent := make(map[ActivityID]ActivityID)

	var dfs func(node ActivityID) []ActivityID
	dfs = func(node ActivityID) []ActivityID {
		color[node] = gray
		for _, next := range g.succ[node] {
			if color[next] == gray {
				cycle := []ActivityID{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return cycle
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	for _, id := range g.IDs() {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

func without(ids []ActivityID, drop ActivityID) []ActivityID {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func mergeSorted(a, b []ActivityID) []ActivityID {
	if len(b) == 0 {
		return a
	}
	out := make([]ActivityID, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sortIDs(out)
	return out
}
