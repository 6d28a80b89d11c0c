package crash

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasibleTarget indicates the target cannot be met even with every
	// critical activity fully crashed.
	ErrInfeasibleTarget = errors.New("crash: target duration is infeasible")

	// ErrConvergenceLimit indicates the iteration cap was hit before the loop
	// settled. It points at bad data or precision trouble, not at infeasibility.
	ErrConvergenceLimit = errors.New("crash: iteration limit reached")
)

// InfeasibleTargetError reports the shortest duration that could be reached.
type InfeasibleTargetError struct {
	Target float64
	Floor  float64
}

func (e *InfeasibleTargetError) Error() string {
	return fmt.Sprintf("target %g is infeasible: project cannot be shortened below %g", e.Target, e.Floor)
}

func (e *InfeasibleTargetError) Is(target error) bool {
	return target == ErrInfeasibleTarget
}

// ConvergenceLimitError is returned when the optimiser has applied the maximum
// number of steps without settling. ProjectDuration reflects every applied step.
type ConvergenceLimitError struct {
	Iterations      int
	Target          float64
	ProjectDuration float64
}

func (e *ConvergenceLimitError) Error() string {
	return fmt.Sprintf("no convergence after %d steps (target %g, project duration %g)",
		e.Iterations, e.Target, e.ProjectDuration)
}

func (e *ConvergenceLimitError) Is(target error) bool {
	return target == ErrConvergenceLimit
}
