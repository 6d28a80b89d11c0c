package crash

import (
	"github.com/joshharrison/crashpath/internal/cpm"
	"github.com/joshharrison/crashpath/internal/graph"
)

// Status is the terminal state of an optimisation run.
type Status string

const (
	StatusAchieved   Status = "achieved"
	StatusInfeasible Status = "infeasible"
)

// Mode records which entry point produced a plan.
type Mode string

const (
	ModeTarget Mode = "target"
	ModeSteps  Mode = "steps"
)

// Step is a single reduction applied to one activity.
type Step struct {
	Iteration             int              `json:"iteration"`
	ActivityID            graph.ActivityID `json:"activity_id"`
	Amount                float64          `json:"amount"`
	MarginalCost          float64          `json:"marginal_cost"` // slope of the activity
	Cost                  float64          `json:"cost"`          // amount × marginal cost
	ProjectDurationBefore float64          `json:"project_duration_before"`
	ProjectDurationAfter  float64          `json:"project_duration_after"`
}

// Plan is the outcome of crashing a network.
type Plan struct {
	Mode                   Mode          `json:"mode"`
	Status                 Status        `json:"status"`
	Target                 float64       `json:"target"`
	InitialProjectDuration float64       `json:"initial_project_duration"`
	FinalProjectDuration   float64       `json:"final_project_duration"`
	NormalCost             float64       `json:"normal_cost"`
	TotalAddedCost         float64       `json:"total_added_cost"`
	Steps                  []Step        `json:"steps"`
	Durations              cpm.Durations `json:"durations"` // working durations at the end of the run
	Iterations             int           `json:"iterations"`
}

// TotalCost is the normal cost of the network plus the cost of crashing.
func (p *Plan) TotalCost() float64 {
	return p.NormalCost + p.TotalAddedCost
}

// Reduction is how much the project was shortened.
func (p *Plan) Reduction() float64 {
	return p.InitialProjectDuration - p.FinalProjectDuration
}

// Reduced returns the total reduction applied to each activity.
func (p *Plan) Reduced() map[graph.ActivityID]float64 {
	out := make(map[graph.ActivityID]float64)
	for _, s := range p.Steps {
		out[s.ActivityID] += s.Amount
	}
	return out
}

// Err returns an *InfeasibleTargetError when the target was not reached, nil
// otherwise. Plans from Steps have no target and always return nil.
func (p *Plan) Err() error {
	if p.Mode == ModeSteps || p.Status != StatusInfeasible {
		return nil
	}
	return &InfeasibleTargetError{Target: p.Target, Floor: p.FinalProjectDuration}
}
