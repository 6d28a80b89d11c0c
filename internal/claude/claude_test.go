package claude

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/joshharrison/crashpath/internal/graph"
)

func TestStripJSONFences_Clean(t *testing.T) {
	input := `{"edges": [], "summary": "no deps"}`
	got := stripJSONFences(input)
	if got != input {
		t.Errorf("expected unchanged, got %q", got)
	}
}

func TestStripJSONFences_WithJSONTag(t *testing.T) {
	input := "```json\n{\"edges\": []}\n```"
	got := stripJSONFences(input)
	if got != `{"edges": []}` {
		t.Errorf("expected clean JSON, got %q", got)
	}
}

func TestStripJSONFences_WithPlainFence(t *testing.T) {
	input := "```\n{\"edges\": []}\n```"
	got := stripJSONFences(input)
	if got != `{"edges": []}` {
		t.Errorf("expected clean JSON, got %q", got)
	}
}

func TestStripJSONFences_WithWhitespace(t *testing.T) {
	input := "  \n```json\n{\"edges\": []}\n```\n  "
	got := stripJSONFences(input)
	if got != `{"edges": []}` {
		t.Errorf("expected clean JSON, got %q", got)
	}
}

type fakeCompleter struct {
	reply      string
	err        error
	lastSystem string
	lastPrompt string
}

func (f *fakeCompleter) complete(_ context.Context, system, prompt string) (string, error) {
	f.lastSystem = system
	f.lastPrompt = prompt
	return f.reply, f.err
}

func testGraph(t *testing.T) *graph.ActivityGraph {
	t.Helper()
	g, err := graph.Load([]graph.Record{
		{ID: "design", NormalDuration: 5, CrashDuration: 3, NormalCost: 10, CrashCost: 20},
		{ID: "build", Predecessors: []graph.ActivityID{"design"}, NormalDuration: 10, CrashDuration: 6, NormalCost: 10, CrashCost: 20},
		{ID: "test", NormalDuration: 3, CrashDuration: 2, NormalCost: 10, CrashCost: 20},
	})
	if err != nil {
		t.Fatalf("load graph: %v", err)
	}
	return g
}

func TestBuildPrompt_ContainsActivityData(t *testing.T) {
	activities := []ActivitySummary{
		{ID: "design", NormalDuration: 5},
		{ID: "build", Predecessors: []string{"design"}, NormalDuration: 10},
	}
	prompt, err := buildPrompt(activities)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(prompt, "design") || !strings.Contains(prompt, "build") {
		t.Error("prompt should contain all activity IDs")
	}
	if !strings.Contains(prompt, "strong causal reason") {
		t.Error("prompt should contain precedence rules")
	}
}

func TestSummaries(t *testing.T) {
	got := Summaries(testGraph(t))
	if len(got) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(got))
	}
	if got[0].ID != "design" || got[1].ID != "build" || got[2].ID != "test" {
		t.Errorf("unexpected order: %+v", got)
	}
	if len(got[1].Predecessors) != 1 || got[1].Predecessors[0] != "design" {
		t.Errorf("expected build to list design, got %v", got[1].Predecessors)
	}
}

func TestInferPredecessors(t *testing.T) {
	fake := &fakeCompleter{reply: "```json\n{\"edges\": [{\"activity_id\": \"test\", \"predecessor\": \"build\", \"reason\": \"nothing to test yet\"}], \"summary\": \"linear\"}\n```"}
	c := &Client{c: fake}

	result, err := c.InferPredecessors(context.Background(), Summaries(testGraph(t)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Edges) != 1 || result.Edges[0].ActivityID != "test" || result.Edges[0].Predecessor != "build" {
		t.Errorf("unexpected edges: %+v", result.Edges)
	}
	if result.Summary != "linear" {
		t.Errorf("unexpected summary: %s", result.Summary)
	}
	if fake.lastSystem != "" {
		t.Errorf("inference should not send a system prompt, got %q", fake.lastSystem)
	}
}

func TestInferPredecessors_BadReply(t *testing.T) {
	c := &Client{c: &fakeCompleter{reply: "I think build comes after design."}}
	if _, err := c.InferPredecessors(context.Background(), nil); err == nil {
		t.Fatal("expected parse error")
	}

	boom := errors.New("boom")
	c = &Client{c: &fakeCompleter{err: boom}}
	if _, err := c.InferPredecessors(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped API error, got %v", err)
	}
}

func TestApplyEdges(t *testing.T) {
	g := testGraph(t)
	edges := []Edge{
		{ActivityID: "test", Predecessor: "build"},
		{ActivityID: "build", Predecessor: "design"}, // already present
		{ActivityID: "design", Predecessor: "test"},  // closes design -> build -> test -> design
		{ActivityID: "deploy", Predecessor: "test"},
		{ActivityID: "test", Predecessor: "ghost"},
	}

	applied, skipped := ApplyEdges(g, edges)

	if len(applied) != 1 || applied[0].ActivityID != "test" {
		t.Errorf("expected only test<-build applied, got %+v", applied)
	}
	if len(skipped) != 3 {
		t.Fatalf("expected 3 skipped edges, got %d: %+v", len(skipped), skipped)
	}
	if !skipped[0].Cyclic() {
		t.Errorf("expected first skipped edge to be cyclic, got %v", skipped[0].Err)
	}
	if skipped[1].Cyclic() || !errors.Is(skipped[1].Err, graph.ErrUnknownReference) {
		t.Errorf("expected unknown activity, got %v", skipped[1].Err)
	}
	if !errors.Is(skipped[2].Err, graph.ErrUnknownReference) {
		t.Errorf("expected unknown predecessor, got %v", skipped[2].Err)
	}

	if preds := g.Predecessors("test"); len(preds) != 1 || preds[0] != "build" {
		t.Errorf("expected test to depend on build, got %v", preds)
	}
	if preds := g.Predecessors("design"); len(preds) != 0 {
		t.Errorf("cyclic edge must not be kept, got %v", preds)
	}
}

func TestExplainPlan(t *testing.T) {
	fake := &fakeCompleter{reply: "  Build was shortened first.  \n"}
	c := &Client{c: fake}

	text, err := c.ExplainPlan(context.Background(), "Status: achieved")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Build was shortened first." {
		t.Errorf("expected trimmed narrative, got %q", text)
	}
	if !strings.Contains(fake.lastSystem, "crashing") {
		t.Error("explain should send the analyst system prompt")
	}
	if fake.lastPrompt != "Status: achieved" {
		t.Errorf("unexpected prompt %q", fake.lastPrompt)
	}
}

func TestInferResult_Unmarshal(t *testing.T) {
	raw := `{
		"edges": [
			{"activity_id": "build", "predecessor": "design", "reason": "needs a design"}
		],
		"summary": "build follows design"
	}`
	var result InferResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(result.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(result.Edges))
	}
	if result.Edges[0].ActivityID != "build" || result.Edges[0].Predecessor != "design" {
		t.Errorf("unexpected edge: %+v", result.Edges[0])
	}
}
