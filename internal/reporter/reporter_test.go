package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/joshharrison/crashpath/internal/cpm"
	"github.com/joshharrison/crashpath/internal/crash"
	"github.com/joshharrison/crashpath/internal/graph"
)

func makeGraph(t *testing.T) *graph.ActivityGraph {
	t.Helper()
	color.NoColor = true
	g, err := graph.Load([]graph.Record{
		{ID: "A", NormalDuration: 4, CrashDuration: 2, NormalCost: 100, CrashCost: 140},
		{ID: "B", Predecessors: []graph.ActivityID{"A"}, NormalDuration: 3, CrashDuration: 2, NormalCost: 50, CrashCost: 60},
		{ID: "C", Predecessors: []graph.ActivityID{"A"}, NormalDuration: 1, CrashDuration: 0.5, NormalCost: 10, CrashCost: 20},
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return g
}

func TestPrintSchedule(t *testing.T) {
	g := makeGraph(t)
	res, err := cpm.Analyze(g, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	var buf bytes.Buffer
	New(g, res).PrintSchedule(&buf)
	output := buf.String()

	for _, want := range []string{"Schedule", "project duration 7", "ACTIVITY", "A → B", "WAVE 1", "WAVE 2", "[C]", "20.00"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q:\n%s", want, output)
		}
	}
	if !strings.Contains(output, "⚡") {
		t.Error("expected output to contain critical path marker")
	}
}

func TestScheduleJSON(t *testing.T) {
	g := makeGraph(t)
	res, err := cpm.Analyze(g, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	data, err := New(g, res).ScheduleJSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out struct {
		ProjectDuration float64  `json:"project_duration"`
		CriticalPath    []string `json:"critical_path"`
		Activities      []struct {
			ID         string   `json:"id"`
			TotalFloat float64  `json:"total_float"`
			Slope      *float64 `json:"slope"`
		} `json:"activities"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ProjectDuration != 7 {
		t.Errorf("expected project duration 7, got %v", out.ProjectDuration)
	}
	if strings.Join(out.CriticalPath, ",") != "A,B" {
		t.Errorf("unexpected critical path %v", out.CriticalPath)
	}
	if len(out.Activities) != 3 || out.Activities[2].ID != "C" || out.Activities[2].TotalFloat != 2 {
		t.Errorf("unexpected activities %+v", out.Activities)
	}
	if out.Activities[0].Slope == nil || *out.Activities[0].Slope != 20 {
		t.Errorf("expected slope 20 for A")
	}
}

func TestPrintPlan_Achieved(t *testing.T) {
	g := makeGraph(t)
	plan, err := crash.ToTarget(g, 5)
	if err != nil {
		t.Fatalf("crash: %v", err)
	}

	var buf bytes.Buffer
	text := PrintPlan(&buf, plan)

	if text != buf.String() {
		t.Error("returned text should match written output")
	}
	for _, want := range []string{"Crash Plan", "target achieved", "Target:      5", "7 → 5", "Added cost:  30.00", "Total cost:  190.00", "[B] −1 at 10.00/unit", "[A] shortened by 1 to 3"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected plan report to contain %q:\n%s", want, text)
		}
	}
}

func TestPrintPlan_Infeasible(t *testing.T) {
	g := makeGraph(t)
	plan, err := crash.ToTarget(g, 1)
	if err != nil {
		t.Fatalf("crash: %v", err)
	}

	var buf bytes.Buffer
	text := PrintPlan(&buf, plan)
	if !strings.Contains(text, "target infeasible") || !strings.Contains(text, "cannot be shortened below 4") {
		t.Errorf("expected infeasible report:\n%s", text)
	}
}

func TestPrintPlan_StepsMode(t *testing.T) {
	g := makeGraph(t)
	plan, err := crash.Steps(g, 5)
	if err != nil {
		t.Fatalf("steps: %v", err)
	}

	var buf bytes.Buffer
	text := PrintPlan(&buf, plan)
	if !strings.Contains(text, "network fully crashed after 3 steps") {
		t.Errorf("expected exhausted steps status:\n%s", text)
	}
	for _, unwanted := range []string{"target", "Target:", "infeasible"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("steps report should not mention %q:\n%s", unwanted, text)
		}
	}

	plan, err = crash.Steps(g, 1)
	if err != nil {
		t.Fatalf("steps: %v", err)
	}
	if text := PrintPlan(&buf, plan); !strings.Contains(text, "1 steps applied") {
		t.Errorf("expected applied steps status:\n%s", text)
	}
}

func TestPlanJSON(t *testing.T) {
	plan, err := crash.ToTarget(makeGraph(t), 5)
	if err != nil {
		t.Fatalf("crash: %v", err)
	}
	data, err := PlanJSON(plan)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	output := string(data)
	for _, want := range []string{`"status": "achieved"`, `"total_cost": 190`, `"total_added_cost": 30`, `"activity_id": "B"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected JSON to contain %s:\n%s", want, output)
		}
	}
}

func TestNum(t *testing.T) {
	cases := map[float64]string{
		7:                   "7",
		2.5:                 "2.5",
		1.0 / 3:             "0.33",
		-1e-12:              "0",
		0.30000000000000004: "0.3",
	}
	for in, want := range cases {
		if got := Num(in); got != want {
			t.Errorf("Num(%v) = %q, want %q", in, got, want)
		}
	}
}
