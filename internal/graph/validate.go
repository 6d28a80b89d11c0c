package graph

import (
	"math"
	"sort"
)

// validateRecord checks the identity and numeric invariants of a record.
// Reference and cycle checks need the whole graph and live in the graph itself.
func validateRecord(rec Record) error {
	if rec.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if err := validateDurations(rec.ID, rec.NormalDuration, rec.CrashDuration); err != nil {
		return err
	}
	return validateCosts(rec.ID, rec.NormalCost, rec.CrashCost)
}

func validateDurations(id ActivityID, normal, crash float64) error {
	if !finite(normal) {
		return &ValidationError{ID: id, Field: "normal_duration", Reason: "must be a finite number"}
	}
	if !finite(crash) {
		return &ValidationError{ID: id, Field: "crash_duration", Reason: "must be a finite number"}
	}
	if normal <= 0 {
		return &ValidationError{ID: id, Field: "normal_duration", Reason: "must be positive"}
	}
	if crash < 0 {
		return &ValidationError{ID: id, Field: "crash_duration", Reason: "must not be negative"}
	}
	if crash >= normal {
		return &ValidationError{ID: id, Field: "crash_duration", Reason: "must be less than normal_duration"}
	}
	return nil
}

func validateCosts(id ActivityID, normal, crash float64) error {
	if !finite(normal) {
		return &ValidationError{ID: id, Field: "normal_cost", Reason: "must be a finite number"}
	}
	if !finite(crash) {
		return &ValidationError{ID: id, Field: "crash_cost", Reason: "must be a finite number"}
	}
	if normal < 0 {
		return &ValidationError{ID: id, Field: "normal_cost", Reason: "must not be negative"}
	}
	if crash < 0 {
		return &ValidationError{ID: id, Field: "crash_cost", Reason: "must not be negative"}
	}
	if crash < normal {
		return &ValidationError{ID: id, Field: "crash_cost", Reason: "must not be less than normal_cost"}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// normalizeIDs returns a sorted copy of ids without duplicates. The result is
// never nil so empty predecessor sets compare and encode the same way.
func normalizeIDs(ids []ActivityID) []ActivityID {
	seen := make(map[ActivityID]bool, len(ids))
	out := make([]ActivityID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []ActivityID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
