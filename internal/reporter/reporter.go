package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/joshharrison/crashpath/internal/cpm"
	"github.com/joshharrison/crashpath/internal/crash"
	"github.com/joshharrison/crashpath/internal/graph"
	"github.com/joshharrison/crashpath/internal/ui"
)

// Reporter renders analysis results for a terminal.
type Reporter struct {
	Graph  *graph.ActivityGraph
	Result *cpm.Result
}

// New creates a new Reporter.
func New(g *graph.ActivityGraph, res *cpm.Result) *Reporter {
	return &Reporter{Graph: g, Result: res}
}

// PrintSchedule writes the timing table, the critical path and the waves.
func (r *Reporter) PrintSchedule(w io.Writer) {
	res := r.Result
	fmt.Fprintf(w, "%s %s %s — %d activities\n\n",
		ui.BoldCyan("⏱ Schedule"),
		ui.Dim("project duration"),
		ui.Bold(Num(res.ProjectDuration)),
		len(res.TopoOrder))

	fmt.Fprintf(w, "    %-12s %8s %8s %8s %8s %8s %8s %8s %8s\n",
		"ACTIVITY", "DUR", "ES", "EF", "LS", "LF", "TF", "FF", "SLOPE")
	for _, s := range res.Ordered() {
		slope := "n/a"
		if a, ok := r.Graph.Activity(s.ActivityID); ok {
			slope = a.Slope().String()
		}
		id := string(s.ActivityID)
		if len(id) > 12 {
			id = id[:9] + "..."
		}
		line := fmt.Sprintf("%-12s %8s %8s %8s %8s %8s %8s %8s %8s",
			id, Num(s.Duration), Num(s.ES), Num(s.EF), Num(s.LS), Num(s.LF),
			Num(s.TotalFloat), Num(s.FreeFloat), slope)
		if s.IsCritical {
			line = ui.BoldWhite(line)
		}
		fmt.Fprintf(w, "  %s %s\n", ui.CriticalMark(s.IsCritical), line)
	}
	fmt.Fprintln(w)

	if len(res.CriticalPath) > 0 {
		fmt.Fprintf(w, "Critical:  %s\n", ui.BoldYellow("⚡ "+joinIDs(res.CriticalPath, " → ")))
	}
	fmt.Fprintln(w)

	r.PrintWaves(w)
}

// PrintWaves lists the activities that can start together.
func (r *Reporter) PrintWaves(w io.Writer) {
	for _, wave := range r.Result.Waves {
		fmt.Fprintf(w, "  🌊 %s %d at t=%s (%s)\n",
			ui.BoldWhite("WAVE"), wave.Index+1, Num(wave.Start), ui.WaveStatus(wave.IsCritical))
		for _, id := range wave.ActivityIDs {
			s := r.Result.Activities[id]
			fmt.Fprintf(w, "    %s %s %s\n",
				ui.CriticalMark(s.IsCritical), ui.ActivityLabel(string(id)),
				ui.Dim(fmt.Sprintf("%s → %s", Num(s.ES), Num(s.EF))))
		}
		fmt.Fprintln(w)
	}
}

// ScheduleJSON returns the analysis in machine-readable form.
func (r *Reporter) ScheduleJSON() ([]byte, error) {
	type activity struct {
		*cpm.Schedule
		Slope graph.Slope `json:"slope"`
	}
	type output struct {
		ProjectDuration float64            `json:"project_duration"`
		CriticalPath    []graph.ActivityID `json:"critical_path"`
		Activities      []activity         `json:"activities"`
		Waves           []cpm.Wave         `json:"waves"`
	}

	o := output{
		ProjectDuration: r.Result.ProjectDuration,
		CriticalPath:    r.Result.CriticalPath,
		Activities:      []activity{},
		Waves:           r.Result.Waves,
	}
	if o.CriticalPath == nil {
		o.CriticalPath = []graph.ActivityID{}
	}
	for _, s := range r.Result.Ordered() {
		a, _ := r.Graph.Activity(s.ActivityID)
		o.Activities = append(o.Activities, activity{Schedule: s, Slope: a.Slope()})
	}
	return json.MarshalIndent(o, "", "  ")
}

// PrintPlan writes a crash plan report to w. The output is also returned as
// a string for reuse (e.g. as context for a Claude narrative).
func PrintPlan(w io.Writer, plan *crash.Plan) string {
	var b strings.Builder
	mw := io.MultiWriter(w, &b) // write to both output and capture

	statusText := ui.BoldGreen("target achieved")
	switch {
	case plan.Mode == crash.ModeSteps && plan.Status == crash.StatusInfeasible:
		statusText = ui.BoldYellow(fmt.Sprintf("network fully crashed after %d steps", len(plan.Steps)))
	case plan.Mode == crash.ModeSteps:
		statusText = ui.BoldGreen(fmt.Sprintf("%d steps applied", len(plan.Steps)))
	case plan.Status == crash.StatusInfeasible:
		statusText = ui.BoldRed("target infeasible")
	}

	fmt.Fprintf(mw, "\n%s %s\n", ui.StatusIcon(string(plan.Status)), ui.BoldCyan("Crash Plan"))
	fmt.Fprintf(mw, "%s\n", ui.Cyan("══════════════════════════"))
	fmt.Fprintf(mw, "Status:      %s\n", statusText)
	if plan.Mode != crash.ModeSteps {
		fmt.Fprintf(mw, "Target:      %s\n", Num(plan.Target))
	}
	fmt.Fprintf(mw, "Duration:    %s → %s\n", Num(plan.InitialProjectDuration), ui.Bold(Num(plan.FinalProjectDuration)))
	fmt.Fprintf(mw, "Normal cost: %s\n", Money(plan.NormalCost))
	fmt.Fprintf(mw, "Added cost:  %s\n", ui.Yellow(Money(plan.TotalAddedCost)))
	fmt.Fprintf(mw, "Total cost:  %s\n", ui.Bold(Money(plan.TotalCost())))
	fmt.Fprintf(mw, "Steps:       %d %s\n\n", len(plan.Steps), ui.Dim(fmt.Sprintf("(%d analyses)", plan.Iterations)))

	for _, s := range plan.Steps {
		fmt.Fprintf(mw, "  %3d. %s −%s at %s/unit = %s  %s\n",
			s.Iteration, ui.ActivityLabel(string(s.ActivityID)),
			Num(s.Amount), Money(s.MarginalCost), Money(s.Cost),
			ui.Dim(fmt.Sprintf("(%s → %s)", Num(s.ProjectDurationBefore), Num(s.ProjectDurationAfter))))
	}
	if len(plan.Steps) > 0 {
		fmt.Fprintln(mw)
	}

	reduced := plan.Reduced()
	if len(reduced) > 0 {
		fmt.Fprintf(mw, "%s\n", ui.Cyan("──────────────────────────"))
		ids := make([]string, 0, len(reduced))
		for id := range reduced {
			ids = append(ids, string(id))
		}
		sort.Strings(ids)
		for _, id := range ids {
			aid := graph.ActivityID(id)
			fmt.Fprintf(mw, "  %s shortened by %s to %s\n",
				ui.ActivityLabel(id), Num(reduced[aid]), Num(plan.Durations[aid]))
		}
	}

	if err := plan.Err(); err != nil {
		fmt.Fprintf(mw, "\n%s %s\n", ui.Red("✗"), err)
	}

	return b.String()
}

// PlanJSON returns the plan in machine-readable form.
func PlanJSON(plan *crash.Plan) ([]byte, error) {
	type output struct {
		*crash.Plan
		TotalCost float64 `json:"total_cost"`
	}
	return json.MarshalIndent(output{Plan: plan, TotalCost: plan.TotalCost()}, "", "  ")
}

// Num formats a schedule quantity with at most two decimals.
func Num(f float64) string {
	r := math.Round(f*100) / 100
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Money formats a cost with two decimals.
func Money(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func joinIDs(ids []graph.ActivityID, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, sep)
}
