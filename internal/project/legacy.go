package project

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joshharrison/crashpath/internal/graph"
)

// legacyDocument is the layout written by the older desktop tool: an ordered
// list of names plus a name-keyed table of attributes.
type legacyDocument struct {
	Activities []string                  `json:"activities"`
	Data       map[string]legacyActivity `json:"data"`
}

type legacyActivity struct {
	Predecessors  []string    `json:"predecessors"`
	Duration      float64     `json:"duration"`
	CrashDuration float64     `json:"crash_duration"`
	CostNormal    float64     `json:"cost_normal"`
	CostCrash     float64     `json:"cost_crash"`
	MaxCrashDays  float64     `json:"max_crash_days"`
	Slope         graph.Slope `json:"slope"`
}

// isLegacy reports whether data looks like a legacy document.
func isLegacy(data []byte) bool {
	return gjson.GetBytes(data, "data").IsObject()
}

// decodeLegacy reads the legacy layout. Numbers may be given as numeric
// strings. Predecessors that are not listed under "activities" are dropped,
// the way the older tool treated them.
func decodeLegacy(data []byte) ([]graph.Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode legacy project: invalid json")
	}
	root := gjson.ParseBytes(data)

	names := root.Get("activities")
	table := root.Get("data")
	if !names.IsArray() || !table.IsObject() {
		return nil, fmt.Errorf("decode legacy project: need \"activities\" (list) and \"data\" (object)")
	}

	known := make(map[string]bool)
	var order []string
	for _, n := range names.Array() {
		if n.Type != gjson.String || strings.TrimSpace(n.Str) == "" {
			return nil, fmt.Errorf("decode legacy project: activity names must be non-empty strings, got %s", n.Raw)
		}
		known[n.Str] = true
		order = append(order, n.Str)
	}

	entries := make(map[string]gjson.Result)
	table.ForEach(func(key, value gjson.Result) bool {
		entries[key.String()] = value
		return true
	})

	records := make([]graph.Record, 0, len(order))
	for _, name := range order {
		info := entries[name]
		if !info.IsObject() {
			return nil, fmt.Errorf("decode legacy project: no data for activity %q", name)
		}

		rec := graph.Record{ID: graph.ActivityID(name), Predecessors: []graph.ActivityID{}}
		fields := []struct {
			key string
			dst *float64
		}{
			{"duration", &rec.NormalDuration},
			{"crash_duration", &rec.CrashDuration},
			{"cost_normal", &rec.NormalCost},
			{"cost_crash", &rec.CrashCost},
		}
		for _, f := range fields {
			v, err := legacyNumber(info.Get(f.key))
			if err != nil {
				return nil, fmt.Errorf("decode legacy project: activity %q: %s: %w", name, f.key, err)
			}
			*f.dst = v
		}

		for _, p := range info.Get("predecessors").Array() {
			if known[p.String()] {
				rec.Predecessors = append(rec.Predecessors, graph.ActivityID(p.String()))
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func legacyNumber(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Num, nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v.Str)
		}
		return f, nil
	case gjson.Null:
		if !v.Exists() {
			return 0, fmt.Errorf("missing")
		}
		return 0, fmt.Errorf("is null")
	default:
		return 0, fmt.Errorf("not a number: %s", v.Raw)
	}
}

func encodeLegacy(records []graph.Record) ([]byte, error) {
	doc := legacyDocument{
		Activities: make([]string, 0, len(records)),
		Data:       make(map[string]legacyActivity, len(records)),
	}
	for _, r := range records {
		preds := make([]string, len(r.Predecessors))
		for i, p := range r.Predecessors {
			preds[i] = string(p)
		}
		doc.Activities = append(doc.Activities, string(r.ID))
		doc.Data[string(r.ID)] = legacyActivity{
			Predecessors:  preds,
			Duration:      r.NormalDuration,
			CrashDuration: r.CrashDuration,
			CostNormal:    r.NormalCost,
			CostCrash:     r.CrashCost,
			MaxCrashDays:  r.NormalDuration - r.CrashDuration,
			Slope:         graph.NewSlope(r.NormalDuration, r.CrashDuration, r.NormalCost, r.CrashCost),
		}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
