package cpm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/joshharrison/crashpath/internal/graph"
)

type act struct {
	id    string
	dur   float64
	preds []string
}

func buildTestGraph(t *testing.T, acts ...act) *graph.ActivityGraph {
	t.Helper()
	records := make([]graph.Record, 0, len(acts))
	for _, s := range acts {
		preds := make([]graph.ActivityID, len(s.preds))
		for i, p := range s.preds {
			preds[i] = graph.ActivityID(p)
		}
		records = append(records, graph.Record{
			ID:             graph.ActivityID(s.id),
			Predecessors:   preds,
			NormalDuration: s.dur,
			CrashDuration:  0,
			NormalCost:     10,
			CrashCost:      20,
		})
	}
	g, err := graph.Load(records)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestAnalyze_LinearChain(t *testing.T) {
	// A -> B -> C (each duration 1)
	g := buildTestGraph(t,
		act{"a", 1, nil},
		act{"b", 1, []string{"a"}},
		act{"c", 1, []string{"b"}},
	)

	result, err := Analyze(g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ProjectDuration != 3 {
		t.Errorf("expected project duration 3, got %v", result.ProjectDuration)
	}
	if len(result.CriticalPath) != 3 {
		t.Errorf("expected 3 activities on critical path, got %d: %v", len(result.CriticalPath), result.CriticalPath)
	}
	if len(result.Waves) != 3 {
		t.Errorf("expected 3 waves, got %d", len(result.Waves))
	}

	assertSchedule(t, result.Activities["a"], 0, 1, 0, 1, 0, 0, true)
	assertSchedule(t, result.Activities["b"], 1, 2, 1, 2, 0, 0, true)
	assertSchedule(t, result.Activities["c"], 2, 3, 2, 3, 0, 0, true)
}

func TestAnalyze_DiamondWithFloat(t *testing.T) {
	// A(5) -> B(1) -> D(1)
	// A(5) -> C(10) -> D(1)
	g := buildTestGraph(t,
		act{"a", 5, nil},
		act{"b", 1, []string{"a"}},
		act{"c", 10, []string{"a"}},
		act{"d", 1, []string{"b", "c"}},
	)

	result, err := Analyze(g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ProjectDuration != 16 {
		t.Errorf("expected project duration 16, got %v", result.ProjectDuration)
	}

	assertSchedule(t, result.Activities["a"], 0, 5, 0, 5, 0, 0, true)
	assertSchedule(t, result.Activities["b"], 5, 6, 14, 15, 9, 9, false)
	assertSchedule(t, result.Activities["c"], 5, 15, 5, 15, 0, 0, true)
	assertSchedule(t, result.Activities["d"], 15, 16, 15, 16, 0, 0, true)

	want := []graph.ActivityID{"a", "c", "d"}
	if fmt.Sprint(result.CriticalPath) != fmt.Sprint(want) {
		t.Errorf("expected critical path %v, got %v", want, result.CriticalPath)
	}

	if !result.CriticalEdge("a", "c") || !result.CriticalEdge("c", "d") {
		t.Error("expected a->c and c->d to be critical edges")
	}
	if result.CriticalEdge("a", "b") || result.CriticalEdge("b", "d") {
		t.Error("expected edges through b to be non-critical")
	}

	// Wave 1 holds B and C, critical first
	if len(result.Waves) != 3 {
		t.Fatalf("expected 3 waves, got %d", len(result.Waves))
	}
	w := result.Waves[1]
	if len(w.ActivityIDs) != 2 || w.ActivityIDs[0] != "c" || w.ActivityIDs[1] != "b" {
		t.Errorf("expected wave 1 = [c b], got %v", w.ActivityIDs)
	}
	if !w.IsCritical || w.Start != 5 {
		t.Errorf("expected critical wave starting at 5, got %+v", w)
	}
}

func TestAnalyze_FreeFloatDiffersFromTotalFloat(t *testing.T) {
	// x(2) -> y(2) -> end(1); z(10) -> end
	// x and y share float; only y has free float.
	g := buildTestGraph(t,
		act{"x", 2, nil},
		act{"y", 2, []string{"x"}},
		act{"z", 10, nil},
		act{"end", 1, []string{"y", "z"}},
	)

	result, err := Analyze(g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertSchedule(t, result.Activities["x"], 0, 2, 6, 8, 6, 0, false)
	assertSchedule(t, result.Activities["y"], 2, 4, 8, 10, 6, 6, false)
	assertSchedule(t, result.Activities["z"], 0, 10, 0, 10, 0, 0, true)
	assertSchedule(t, result.Activities["end"], 10, 11, 10, 11, 0, 0, true)
}

func TestAnalyze_DurationOverride(t *testing.T) {
	g := buildTestGraph(t,
		act{"a", 4, nil},
		act{"b", 3, []string{"a"}},
	)

	result, err := Analyze(g, Durations{"b": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProjectDuration != 6 {
		t.Errorf("expected project duration 6, got %v", result.ProjectDuration)
	}
	if result.Activities["a"].Duration != 4 || result.Activities["b"].Duration != 2 {
		t.Errorf("unexpected durations: a=%v b=%v", result.Activities["a"].Duration, result.Activities["b"].Duration)
	}

	a, _ := g.Activity("b")
	if a.NormalDuration != 3 {
		t.Errorf("analysis must not touch the graph, b normal=%v", a.NormalDuration)
	}
}

func TestAnalyze_BadDurations(t *testing.T) {
	g := buildTestGraph(t, act{"a", 4, nil})

	_, err := Analyze(g, Durations{"ghost": 1})
	if !errors.Is(err, graph.ErrUnknownReference) {
		t.Errorf("expected unknown reference, got %v", err)
	}

	for _, d := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err = Analyze(g, Durations{"a": d})
		if !errors.Is(err, graph.ErrValidation) {
			t.Errorf("duration %v: expected validation error, got %v", d, err)
		}
	}
}

func TestAnalyze_ParallelIndependent(t *testing.T) {
	g := buildTestGraph(t,
		act{"a", 1, nil},
		act{"b", 1, nil},
		act{"c", 1, nil},
	)

	result, err := Analyze(g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Waves) != 1 {
		t.Errorf("expected 1 wave, got %d", len(result.Waves))
	}
	if len(result.Waves[0].ActivityIDs) != 3 {
		t.Errorf("expected 3 activities in wave 0, got %d", len(result.Waves[0].ActivityIDs))
	}
	if result.ProjectDuration != 1 {
		t.Errorf("expected project duration 1, got %v", result.ProjectDuration)
	}
}

func TestAnalyze_SingleActivity(t *testing.T) {
	g := buildTestGraph(t, act{"solo", 10, nil})

	result, err := Analyze(g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ProjectDuration != 10 {
		t.Errorf("expected project duration 10, got %v", result.ProjectDuration)
	}
	if len(result.CriticalPath) != 1 || result.CriticalPath[0] != "solo" {
		t.Errorf("expected critical path [solo], got %v", result.CriticalPath)
	}
	assertSchedule(t, result.Activities["solo"], 0, 10, 0, 10, 0, 0, true)
}

func TestAnalyze_Empty(t *testing.T) {
	result, err := Analyze(graph.New(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ProjectDuration != 0 || len(result.CriticalPath) != 0 || len(result.Waves) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestAnalyze_FractionalStartsShareWave(t *testing.T) {
	// 0.1+0.2 and 0.3 differ by rounding noise only.
	g := buildTestGraph(t,
		act{"p", 0.1, nil},
		act{"q", 0.2, []string{"p"}},
		act{"r", 0.3, nil},
		act{"s", 1, []string{"q"}},
		act{"t", 1, []string{"r"}},
	)

	result, err := Analyze(g, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Activities["s"].Wave != result.Activities["t"].Wave {
		t.Errorf("expected s and t in the same wave, got %d and %d", result.Activities["s"].Wave, result.Activities["t"].Wave)
	}
	if !result.Activities["s"].IsCritical || !result.Activities["t"].IsCritical {
		t.Error("expected both branches to be critical")
	}
}

// TestAnalyze_MatchesBruteForce compares the analysis against exhaustive
// path enumeration on small random networks.
func TestAnalyze_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(10)
		acts := make([]act, n)
		for i := 0; i < n; i++ {
			s := act{id: fmt.Sprintf("n%02d", i), dur: float64(1 + rng.Intn(9))}
			// Edges only point from lower to higher index, which keeps it acyclic.
			for j := 0; j < i; j++ {
				if rng.Float64() < 0.3 {
					s.preds = append(s.preds, acts[j].id)
				}
			}
			acts[i] = s
		}
		g := buildTestGraph(t, acts...)

		result, err := Analyze(g, nil)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}

		longest, onLongest := bruteForce(g)
		if math.Abs(result.ProjectDuration-longest) > Epsilon {
			t.Fatalf("trial %d: project duration %v, brute force %v", trial, result.ProjectDuration, longest)
		}
		for _, id := range g.IDs() {
			if result.Activities[id].IsCritical != onLongest[id] {
				t.Fatalf("trial %d: activity %s critical=%v, on longest path=%v",
					trial, id, result.Activities[id].IsCritical, onLongest[id])
			}
		}
	}
}

// bruteForce enumerates every source-to-sink path and returns the longest
// length and the activities lying on at least one longest path.
func bruteForce(g *graph.ActivityGraph) (float64, map[graph.ActivityID]bool) {
	var paths [][]graph.ActivityID
	var walk func(id graph.ActivityID, path []graph.ActivityID)
	walk = func(id graph.ActivityID, path []graph.ActivityID) {
		path = append(append([]graph.ActivityID(nil), path...), id)
		succs := g.Successors(id)
		if len(succs) == 0 {
			paths = append(paths, path)
			return
		}
		for _, s := range succs {
			walk(s, path)
		}
	}
	for _, src := range g.Sources() {
		walk(src, nil)
	}

	length := func(p []graph.ActivityID) float64 {
		total := 0.0
		for _, id := range p {
			a, _ := g.Activity(id)
			total += a.NormalDuration
		}
		return total
	}

	longest := 0.0
	for _, p := range paths {
		if l := length(p); l > longest {
			longest = l
		}
	}
	on := make(map[graph.ActivityID]bool)
	for _, p := range paths {
		if math.Abs(length(p)-longest) < Epsilon {
			for _, id := range p {
				on[id] = true
			}
		}
	}
	return longest, on
}

func assertSchedule(t *testing.T, s *Schedule, es, ef, ls, lf, totalFloat, freeFloat float64, critical bool) {
	t.Helper()
	check := func(name string, want, got float64) {
		if math.Abs(want-got) > Epsilon {
			t.Errorf("activity %s: expected %s=%v, got %v", s.ActivityID, name, want, got)
		}
	}
	check("ES", es, s.ES)
	check("EF", ef, s.EF)
	check("LS", ls, s.LS)
	check("LF", lf, s.LF)
	check("total float", totalFloat, s.TotalFloat)
	check("free float", freeFloat, s.FreeFloat)
	if s.IsCritical != critical {
		t.Errorf("activity %s: expected critical=%v, got %v", s.ActivityID, critical, s.IsCritical)
	}
}
