package server

import (
	"github.com/joshharrison/crashpath/internal/cpm"
	"github.com/joshharrison/crashpath/internal/graph"
)

// --- Graph view (nodes and edges for a visualiser) ---

type GraphNode struct {
	ID             string      `json:"id"`
	NormalDuration float64     `json:"normal_duration"`
	CrashDuration  float64     `json:"crash_duration"`
	NormalCost     float64     `json:"normal_cost"`
	CrashCost      float64     `json:"crash_cost"`
	Slope          graph.Slope `json:"slope"`
	ES             float64     `json:"earliest_start"`
	EF             float64     `json:"earliest_finish"`
	TotalFloat     float64     `json:"total_float"`
	IsCritical     bool        `json:"is_critical"`
	WaveIndex      int         `json:"wave_index"`
}

type GraphEdge struct {
	From       string `json:"from"`
	To         string `json:"to"`
	IsCritical bool   `json:"is_critical"`
}

type GraphView struct {
	Nodes           []GraphNode `json:"nodes"`
	Edges           []GraphEdge `json:"edges"`
	CriticalPath    []string    `json:"critical_path"`
	ProjectDuration float64     `json:"project_duration"`
}

// toGraphView joins the network with its analysis. Nodes follow topological
// order and edges follow their source node.
func toGraphView(g *graph.ActivityGraph, res *cpm.Result) *GraphView {
	v := &GraphView{
		Nodes:           make([]GraphNode, 0, len(res.TopoOrder)),
		Edges:           []GraphEdge{},
		CriticalPath:    make([]string, 0, len(res.CriticalPath)),
		ProjectDuration: res.ProjectDuration,
	}

	for _, id := range res.TopoOrder {
		a, _ := g.Activity(id)
		s := res.Activities[id]
		v.Nodes = append(v.Nodes, GraphNode{
			ID:             string(id),
			NormalDuration: a.NormalDuration,
			CrashDuration:  a.CrashDuration,
			NormalCost:     a.NormalCost,
			CrashCost:      a.CrashCost,
			Slope:          a.Slope(),
			ES:             s.ES,
			EF:             s.EF,
			TotalFloat:     s.TotalFloat,
			IsCritical:     s.IsCritical,
			WaveIndex:      s.Wave,
		})
		for _, next := range g.Successors(id) {
			v.Edges = append(v.Edges, GraphEdge{
				From:       string(id),
				To:         string(next),
				IsCritical: res.CriticalEdge(id, next),
			})
		}
	}
	for _, id := range res.CriticalPath {
		v.CriticalPath = append(v.CriticalPath, string(id))
	}
	return v
}
