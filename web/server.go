// ABOUTME: Read-only HTTP inspection API over persisted backup runs: list, detail, events, stage counts, report.
// ABOUTME: Served from a chi router; the run store on disk is the only source of truth.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/2389-research/ark/report"
	"github.com/2389-research/ark/runstore"
)

// maxEventLimit caps one page of events.
const maxEventLimit = 1000

// Server exposes persisted runs over HTTP.
type Server struct {
	store  *runstore.Store
	index  *runstore.EventIndex
	router chi.Router
	addr   string
	logger *slog.Logger
}

// ServerConfig holds the configuration for the inspection server.
type ServerConfig struct {
	Addr   string // listen address (default: "127.0.0.1:2389")
	Store  *runstore.Store
	Index  *runstore.EventIndex // optional; enables cross-run event queries
	Logger *slog.Logger
}

// NewServer creates a Server over cfg.Store.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("Store must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:2389"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{store: cfg.Store, index: cfg.Index, addr: cfg.Addr, logger: cfg.Logger}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server and closes it when ctx is done. A
// close caused by ctx returns nil.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.logger.Info("inspection server listening", "component", "web", "action", "listen", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/events/runs", s.handleRunsWithEvent)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleRunList)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", s.handleRun)
			r.Get("/events", s.handleEvents)
			r.Get("/stages", s.handleStageCounts)
			r.Get("/report", s.handleReport)
		})
	})
	return r
}

// RunSummary is one entry of the run list.
type RunSummary struct {
	RunID         string          `json:"run_id"`
	Status        runstore.Status `json:"status"`
	Target        string          `json:"target"`
	SourceRoots   []string        `json:"source_roots"`
	DryRun        bool            `json:"dry_run"`
	StartedAt     time.Time       `json:"started_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CheckpointSeq int             `json:"checkpoint_seq"`
	LastStage     string          `json:"last_stage,omitempty"`
}

// RunDetail is a run with its checkpoints and event summary.
type RunDetail struct {
	RunSummary
	Checkpoints map[string]json.RawMessage `json:"checkpoints"`
	Events      *runstore.EventSummary     `json:"events"`
}

// StageCount is the JSON form of an event count per stage.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

func summarize(state *runstore.RunState) RunSummary {
	return RunSummary{
		RunID:         state.RunID,
		Status:        state.Meta.Status,
		Target:        state.Meta.Target,
		SourceRoots:   state.Meta.SourceRoots,
		DryRun:        state.Meta.DryRun,
		StartedAt:     state.Meta.StartedAt,
		UpdatedAt:     state.Meta.UpdatedAt,
		CheckpointSeq: state.Meta.CheckpointSeq,
		LastStage:     state.Meta.LastStage,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRunList returns every run, most recently updated first. An optional
// ?status= narrows the list.
func (s *Server) handleRunList(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := runstore.Status(r.URL.Query().Get("status"))
	out := []RunSummary{}
	for _, run := range runs {
		if status != "" && run.Meta.Status != status {
			continue
		}
		out = append(out, summarize(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	state, err := s.store.LoadRun(runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	events, err := s.store.SummarizeEvents(runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RunDetail{RunSummary: summarize(state), Checkpoints: state.Checkpoints, Events: events})
}

// handleEvents pages through a run's events. Query parameters: stage
// (repeatable), event, limit, offset, and tail (last N, overrides paging).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := s.store.LoadRun(runID); err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()

	if raw := q.Get("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tail must be a non-negative integer"})
			return
		}
		events, err := s.store.TailEvents(runID, n)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events, "total": len(events)})
		return
	}

	filter := runstore.EventFilter{Stages: q["stage"], Event: q.Get("event")}
	var err error
	if filter.Limit, err = intParam(q.Get("limit"), 100); err != nil || filter.Limit > maxEventLimit {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("limit must be between 0 and %d", maxEventLimit)})
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offset must be a non-negative integer"})
		return
	}

	events, err := s.store.QueryEvents(runID, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total, err := s.store.CountEvents(runID, filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "total": total})
}

// handleStageCounts reports events per stage, from the SQLite index when one
// is attached and from the run's log otherwise.
func (s *Server) handleStageCounts(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := s.store.LoadRun(runID); err != nil {
		s.writeError(w, r, err)
		return
	}
	out := []StageCount{}
	if s.index != nil {
		counts, err := s.index.CountByStage(runID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		for _, c := range counts {
			out = append(out, StageCount{Stage: c.Stage, Count: c.Count})
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	summary, err := s.store.SummarizeEvents(runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, stage := range sortedStages(summary.ByStage) {
		out = append(out, StageCount{Stage: stage, Count: summary.ByStage[stage]})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRunsWithEvent lists runs that logged ?event= (default "progress").
// It needs the event index.
func (s *Server) handleRunsWithEvent(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "event index not enabled"})
		return
	}
	event := r.URL.Query().Get("event")
	if event == "" {
		event = "progress"
	}
	ids, err := s.index.RunsWithEvent(event)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": event, "runs": ids})
}

var reportPage = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Run {{.RunID}}</title></head>
<body>
{{.Body}}
</body>
</html>
`))

// handleReport renders the run report as HTML, or as Markdown with ?format=md.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	rep, err := report.Build(s.store, runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(rep.Markdown()))
		return
	}

	body, err := rep.HTML()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := reportPage.Execute(w, map[string]any{"RunID": runID, "Body": body}); err != nil {
		s.logger.Error("render report page", "component", "web", "action", "report", "run_id", runID, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, runstore.ErrNotFound) {
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "component", "web", "action", "error", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sortedStages(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return n, nil
}
