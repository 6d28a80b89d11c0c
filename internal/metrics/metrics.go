// Package metrics exposes Prometheus instruments for the crashpath server.
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshharrison/crashpath/internal/graph"
)

// Collector holds the crashpath instruments.
type Collector struct {
	requests          *prometheus.CounterVec
	analysisSeconds   prometheus.Histogram
	crashIterations   prometheus.Histogram
	mutationsRejected *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewCollector creates the instruments and registers them on reg. A nil reg
// uses a fresh private registry.
func NewCollector(reg *prometheus.Registry) (*Collector, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crashpath_http_requests_total",
			Help: "HTTP requests served, by route pattern and status code",
		}, []string{"route", "code"}),
		analysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crashpath_analysis_seconds",
			Help:    "Time spent in critical path analysis and crashing",
			Buckets: prometheus.DefBuckets,
		}),
		crashIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crashpath_crash_iterations",
			Help:    "Analyzer invocations per crash run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		mutationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crashpath_mutations_rejected_total",
			Help: "Graph mutations rejected, by reason",
		}, []string{"reason"}),
		gatherer: reg,
	}

	for _, col := range []prometheus.Collector{c.requests, c.analysisSeconds, c.crashIterations, c.mutationsRejected} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordRequest counts one served request.
func (c *Collector) RecordRequest(route string, code int) {
	c.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// ObserveAnalysis records how long an analysis or crash run took.
func (c *Collector) ObserveAnalysis(seconds float64) {
	c.analysisSeconds.Observe(seconds)
}

// ObserveCrashIterations records the iteration count of a finished crash run.
func (c *Collector) ObserveCrashIterations(n int) {
	c.crashIterations.Observe(float64(n))
}

// RecordRejectedMutation counts a mutation the graph refused.
func (c *Collector) RecordRejectedMutation(err error) {
	c.mutationsRejected.WithLabelValues(RejectReason(err)).Inc()
}

// RequestCounter returns the request counter for one route and status.
func (c *Collector) RequestCounter(route string, code int) prometheus.Counter {
	return c.requests.WithLabelValues(route, strconv.Itoa(code))
}

// RejectedCounter returns the rejection counter for one reason label.
func (c *Collector) RejectedCounter(reason string) prometheus.Counter {
	return c.mutationsRejected.WithLabelValues(reason)
}

// RejectReason maps a graph error to a metric label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, graph.ErrCycle):
		return "cycle"
	case errors.Is(err, graph.ErrUnknownReference):
		return "unknown_reference"
	case errors.Is(err, graph.ErrValidation):
		return "validation"
	default:
		return "other"
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
