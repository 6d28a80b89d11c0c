// Package server exposes one project network over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joshharrison/crashpath/internal/cpm"
	"github.com/joshharrison/crashpath/internal/crash"
	"github.com/joshharrison/crashpath/internal/engine"
	"github.com/joshharrison/crashpath/internal/graph"
	"github.com/joshharrison/crashpath/internal/metrics"
	"github.com/joshharrison/crashpath/internal/project"
)

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

const maxBodyBytes = 4 << 20

// Server serialises access to a single engine. Mutations take the write
// lock; analysis and crashing only read the network.
type Server struct {
	mu      sync.RWMutex
	eng     *engine.Engine
	log     *log.Logger
	metrics *metrics.Collector
	router  chi.Router
}

// New builds a server around eng. A nil logger discards output; a nil
// collector disables metrics and the /metrics route.
func New(eng *engine.Engine, logger *log.Logger, collector *metrics.Collector) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{eng: eng, log: logger, metrics: collector}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok")
	})

	r.Get("/project", s.handleGetProject)
	r.Put("/project", s.handlePutProject)
	r.Get("/graph", s.handleGetGraph)

	r.Post("/activities", s.handleAddActivity)
	r.Delete("/activities/{id}", s.handleRemoveActivity)
	r.Put("/activities/{id}/predecessors", s.handleSetPredecessors)
	r.Put("/activities/{id}/duration", s.handleSetDuration)
	r.Put("/activities/{id}/cost", s.handleSetCost)

	r.Get("/schedule", s.handleSchedule)
	r.Post("/crash", s.handleCrash)
	r.Post("/crash/steps", s.handleCrashSteps)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()
	s.log.Info("serving", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// --- middleware ---

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.metrics != nil {
			s.metrics.RecordRequest(route, status)
		}
		s.log.Info("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", w.Header().Get(RequestIDHeader),
		)
	})
}

// --- responses ---

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// badRequest marks errors caused by an unreadable request rather than by
// the network rejecting it.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func errorStatus(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, graph.ErrCycle):
		return http.StatusConflict, "cycle"
	case errors.Is(err, graph.ErrUnknownReference):
		return http.StatusNotFound, "unknown_reference"
	case errors.Is(err, graph.ErrValidation):
		return http.StatusUnprocessableEntity, "validation"
	case errors.Is(err, crash.ErrConvergenceLimit):
		return http.StatusInternalServerError, "convergence_limit"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "err", err, "code", code)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest{fmt.Errorf("invalid JSON: %w", err)}
	}
	return nil
}

// --- project ---

func (s *Server) handleGetProject(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	data, err := project.Encode(s.eng.Records(), project.FormatJSON)
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handlePutProject(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, badRequest{err})
		return
	}
	records, err := project.Decode(data, project.FormatJSON)
	if err != nil {
		s.writeError(w, badRequest{err})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.eng.Load(records); err != nil {
		s.rejected(w, err)
		return
	}
	view, err := s.graphView()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Info("project loaded", "activities", len(records))
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	view, err := s.graphView()
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// graphView must be called with s.mu held.
func (s *Server) graphView() (*GraphView, error) {
	res, err := s.eng.ComputeCriticalPath()
	if err != nil {
		return nil, err
	}
	return toGraphView(s.eng.Graph(), res), nil
}

// --- activities ---

type durationPair struct {
	Normal *float64 `json:"normal"`
	Crash  *float64 `json:"crash"`
}

func (p durationPair) values(field string) (float64, float64, error) {
	if p.Normal == nil || p.Crash == nil {
		return 0, 0, badRequest{fmt.Errorf("%s: both normal and crash are required", field)}
	}
	return *p.Normal, *p.Crash, nil
}

type predecessorsBody struct {
	Predecessors []graph.ActivityID `json:"predecessors"`
}

func activityID(r *http.Request) graph.ActivityID {
	return graph.ActivityID(chi.URLParam(r, "id"))
}

func (s *Server) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	var rec graph.Record
	if err := decodeBody(r, &rec); err != nil {
		s.writeError(w, err)
		return
	}
	s.mutate(w, http.StatusCreated, rec.ID, func() error {
		return s.eng.AddActivity(rec)
	})
}

func (s *Server) handleRemoveActivity(w http.ResponseWriter, r *http.Request) {
	id := activityID(r)
	s.mutate(w, http.StatusOK, "", func() error {
		return s.eng.RemoveActivity(id)
	})
}

func (s *Server) handleSetPredecessors(w http.ResponseWriter, r *http.Request) {
	var body predecessorsBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	id := activityID(r)
	s.mutate(w, http.StatusOK, id, func() error {
		return s.eng.UpdatePredecessors(id, body.Predecessors)
	})
}

func (s *Server) handleSetDuration(w http.ResponseWriter, r *http.Request) {
	var body durationPair
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	normal, crashed, err := body.values("duration")
	if err != nil {
		s.writeError(w, err)
		return
	}
	id := activityID(r)
	s.mutate(w, http.StatusOK, id, func() error {
		return s.eng.UpdateDuration(id, normal, crashed)
	})
}

func (s *Server) handleSetCost(w http.ResponseWriter, r *http.Request) {
	var body durationPair
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	normal, crashed, err := body.values("cost")
	if err != nil {
		s.writeError(w, err)
		return
	}
	id := activityID(r)
	s.mutate(w, http.StatusOK, id, func() error {
		return s.eng.UpdateCost(id, normal, crashed)
	})
}

// mutate applies fn under the write lock. On success it answers with the
// record of id, or the whole graph view when id is empty.
func (s *Server) mutate(w http.ResponseWriter, status int, id graph.ActivityID, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(); err != nil {
		s.rejected(w, err)
		return
	}
	if id != "" {
		if a, ok := s.eng.Graph().Activity(id); ok {
			writeJSON(w, status, a.Record())
			return
		}
	}
	view, err := s.graphView()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, status, view)
}

func (s *Server) rejected(w http.ResponseWriter, err error) {
	if s.metrics != nil {
		s.metrics.RecordRejectedMutation(err)
	}
	s.log.Debug("mutation rejected", "err", err)
	s.writeError(w, err)
}

// --- analysis ---

func (s *Server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	s.mu.RLock()
	res, err := s.eng.ComputeCriticalPath()
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.observe(start, 0)
	writeJSON(w, http.StatusOK, struct {
		ProjectDuration float64            `json:"project_duration"`
		CriticalPath    []graph.ActivityID `json:"critical_path"`
		TopoOrder       []graph.ActivityID `json:"topo_order"`
		Activities      []*cpm.Schedule    `json:"activities"`
		Waves           []cpm.Wave         `json:"waves"`
	}{
		ProjectDuration: res.ProjectDuration,
		CriticalPath:    nonNil(res.CriticalPath),
		TopoOrder:       nonNil(res.TopoOrder),
		Activities:      res.Ordered(),
		Waves:           res.Waves,
	})
}

type crashRequest struct {
	Target *float64 `json:"target"`
}

type stepsRequest struct {
	Steps *int `json:"steps"`
}

func (s *Server) handleCrash(w http.ResponseWriter, r *http.Request) {
	var body crashRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if body.Target == nil {
		s.writeError(w, badRequest{errors.New("target is required")})
		return
	}
	s.runCrash(w, func() (*crash.Plan, error) {
		return s.eng.OptimizeToTarget(*body.Target)
	})
}

func (s *Server) handleCrashSteps(w http.ResponseWriter, r *http.Request) {
	var body stepsRequest
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if body.Steps == nil {
		s.writeError(w, badRequest{errors.New("steps is required")})
		return
	}
	s.runCrash(w, func() (*crash.Plan, error) {
		return s.eng.OptimizeSteps(*body.Steps)
	})
}

func (s *Server) runCrash(w http.ResponseWriter, run func() (*crash.Plan, error)) {
	start := time.Now()
	s.mu.RLock()
	plan, err := run()
	s.mu.RUnlock()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.observe(start, plan.Iterations)
	writeJSON(w, http.StatusOK, struct {
		*crash.Plan
		TotalCost float64 `json:"total_cost"`
	}{plan, plan.TotalCost()})
}

func (s *Server) observe(start time.Time, iterations int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveAnalysis(time.Since(start).Seconds())
	if iterations > 0 {
		s.metrics.ObserveCrashIterations(iterations)
	}
}

func nonNil(ids []graph.ActivityID) []graph.ActivityID {
	if ids == nil {
		return []graph.ActivityID{}
	}
	return ids
}
