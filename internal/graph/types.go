package graph

import (
	"encoding/json"
	"strconv"
)

// ActivityID identifies an activity within an ActivityGraph.
type ActivityID string

// Record is the caller-facing description of an activity. It is the input to
// Add and Load and the output of Records, so a graph can be rebuilt from the
// records it hands out.
type Record struct {
	ID             ActivityID   `json:"id"`
	Predecessors   []ActivityID `json:"predecessors"`
	NormalDuration float64      `json:"normal_duration"`
	CrashDuration  float64      `json:"crash_duration"`
	NormalCost     float64      `json:"normal_cost"`
	CrashCost      float64      `json:"crash_cost"`
}

// Activity is a single node of the project network.
type Activity struct {
	ID             ActivityID
	Predecessors   []ActivityID // sorted, unique
	NormalDuration float64
	CrashDuration  float64
	NormalCost     float64
	CrashCost      float64

	slope Slope
}

// Slope returns the marginal cost per unit of duration reduction.
func (a *Activity) Slope() Slope {
	return a.slope
}

// MaxReduction is how much the activity can be shortened from its normal duration.
func (a *Activity) MaxReduction() float64 {
	return a.NormalDuration - a.CrashDuration
}

// Record returns the activity as a Record.
func (a *Activity) Record() Record {
	return Record{
		ID:             a.ID,
		Predecessors:   append([]ActivityID{}, a.Predecessors...),
		NormalDuration: a.NormalDuration,
		CrashDuration:  a.CrashDuration,
		NormalCost:     a.NormalCost,
		CrashCost:      a.CrashCost,
	}
}

func (a *Activity) clone() *Activity {
	c := *a
	c.Predecessors = append([]ActivityID{}, a.Predecessors...)
	return &c
}

func newActivity(rec Record) *Activity {
	return &Activity{
		ID:             rec.ID,
		Predecessors:   normalizeIDs(rec.Predecessors),
		NormalDuration: rec.NormalDuration,
		CrashDuration:  rec.CrashDuration,
		NormalCost:     rec.NormalCost,
		CrashCost:      rec.CrashCost,
		slope:          NewSlope(rec.NormalDuration, rec.CrashDuration, rec.NormalCost, rec.CrashCost),
	}
}

// Slope is the cost of shortening an activity by one unit of time.
// The zero value is the non-crashable state: an activity whose duration cannot
// be reduced has no slope at all rather than an infinite one.
type Slope struct {
	perUnit   float64
	crashable bool
}

// NewSlope derives the slope from an activity's duration and cost bounds.
func NewSlope(normalDuration, crashDuration, normalCost, crashCost float64) Slope {
	reduction := normalDuration - crashDuration
	if reduction <= 0 {
		return Slope{}
	}
	return Slope{perUnit: (crashCost - normalCost) / reduction, crashable: true}
}

// Crashable reports whether the activity can be shortened at a finite cost.
func (s Slope) Crashable() bool {
	return s.crashable
}

// PerUnit returns the cost per unit and whether the value is defined.
func (s Slope) PerUnit() (float64, bool) {
	return s.perUnit, s.crashable
}

// Less orders slopes cheapest first; non-crashable slopes sort after every
// crashable one and are equal to each other.
func (s Slope) Less(other Slope) bool {
	if s.crashable != other.crashable {
		return s.crashable
	}
	return s.crashable && s.perUnit < other.perUnit
}

func (s Slope) String() string {
	if !s.crashable {
		return "n/a"
	}
	return strconv.FormatFloat(s.perUnit, 'f', 2, 64)
}

// MarshalJSON encodes a non-crashable slope as null.
func (s Slope) MarshalJSON() ([]byte, error) {
	if !s.crashable {
		return []byte("null"), nil
	}
	return json.Marshal(s.perUnit)
}

// UnmarshalJSON reads null as non-crashable and a number as a crashable slope.
func (s *Slope) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*s = Slope{}
		return nil
	}
	*s = Slope{perUnit: *v, crashable: true}
	return nil
}
