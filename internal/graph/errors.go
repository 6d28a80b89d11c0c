package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	// ErrValidation indicates a numeric or identity invariant on an activity was violated.
	ErrValidation = errors.New("graph: validation failed")

	// ErrCycle indicates a mutation would make the network cyclic.
	ErrCycle = errors.New("graph: dependency cycle")

	// ErrUnknownReference indicates a referenced activity does not exist.
	ErrUnknownReference = errors.New("graph: unknown activity")
)

// ValidationError describes a rejected activity value.
type ValidationError struct {
	ID     ActivityID // empty when the value is not tied to one activity
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("activity %s: invalid %s: %s", e.ID, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CycleError carries the cycle a rejected mutation would have introduced,
// as a path whose first and last elements are the same activity.
type CycleError struct {
	Cycle []ActivityID
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, id := range e.Cycle {
		parts[i] = string(id)
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " → "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// UnknownReferenceError names an activity id that is not in the graph.
// From is set when the id was listed as a predecessor of another activity.
type UnknownReferenceError struct {
	ID   ActivityID
	From ActivityID
}

func (e *UnknownReferenceError) Error() string {
	if e.From != "" {
		return fmt.Sprintf("activity %s: unknown predecessor %q", e.From, e.ID)
	}
	return fmt.Sprintf("unknown activity %q", e.ID)
}

func (e *UnknownReferenceError) Is(target error) bool {
	return target == ErrUnknownReference
}
