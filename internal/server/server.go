// Package server exposes the session library and watchlist memory over a
// local HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/export"
	"github.com/netguy47/Scenario-Atlas/internal/generate"
	"github.com/netguy47/Scenario-Atlas/internal/memory"
	"github.com/netguy47/Scenario-Atlas/internal/mutate"
	"github.com/netguy47/Scenario-Atlas/internal/pipeline"
	"github.com/netguy47/Scenario-Atlas/internal/scenario"
	"github.com/netguy47/Scenario-Atlas/internal/session"
)

const maxBodyBytes = 1 << 20

// Deps are the stores and collaborators the server drives. Mutator may be
// nil when no LLM provider is configured.
type Deps struct {
	Store    *session.Store
	Pipeline *pipeline.Pipeline
	Memory   *memory.Memory
	Mutator  *mutate.Mutator
	Logger   *zap.Logger
}

// Server is the HTTP server for the scenario atlas.
type Server struct {
	store    *session.Store
	pipeline *pipeline.Pipeline
	mem      *memory.Memory
	mutator  *mutate.Mutator
	logger   *zap.Logger
	mux      *http.ServeMux
	jobs     *jobs
}

// New creates a new Server.
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:    d.Store,
		pipeline: d.Pipeline,
		mem:      d.Memory,
		mutator:  d.Mutator,
		logger:   logger,
		mux:      http.NewServeMux(),
		jobs:     newJobs(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Close cancels any background job and waits for it to stop.
func (s *Server) Close() {
	s.jobs.close()
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)

	s.mux.HandleFunc("GET /api/scenarios", s.handleScenarios)
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/curate", s.handleCurate)

	s.mux.HandleFunc("POST /api/jobs", s.handleStartJob)
	s.mux.HandleFunc("GET /api/jobs/current", s.handleCurrentJob)
	s.mux.HandleFunc("DELETE /api/jobs/current", s.handleCancelJob)

	s.mux.HandleFunc("GET /api/watchlists", s.handleWatchlists)
	s.mux.HandleFunc("GET /api/saved", s.handleListSaved)
	s.mux.HandleFunc("POST /api/saved", s.handlePromote)
	s.mux.HandleFunc("POST /api/saved/manual", s.handleManual)
	s.mux.HandleFunc("GET /api/saved/{id}", s.handleGetSaved)
	s.mux.HandleFunc("GET /api/saved/{id}/versions", s.handleHistory)
	s.mux.HandleFunc("POST /api/saved/{id}/versions", s.handleAddVersion)
	s.mux.HandleFunc("POST /api/saved/{id}/mutate", s.handleMutate)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := export.HTML(w, doc); err != nil {
		s.logger.Error("rendering index", zap.Error(err))
	}
}

func (s *Server) document(ctx context.Context) (export.Document, error) {
	ws, err := s.mem.Watchlists(ctx)
	if err != nil {
		return export.Document{}, err
	}
	saved, err := s.mem.List(ctx, "")
	if err != nil {
		return export.Document{}, err
	}
	return export.Document{
		Title:      "Scenario Atlas",
		Generated:  time.Now(),
		Entries:    s.store.Current(),
		Watchlists: ws,
		Saved:      saved,
	}, nil
}

type scenariosResponse struct {
	Revision  uint64           `json:"revision"`
	Total     int              `json:"total"`
	Curated   int              `json:"curated"`
	Scenarios []scenario.Entry `json:"scenarios"`
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	entries, rev := s.store.Snapshot()
	stats := scenario.ComputeStats(entries)
	writeJSON(w, http.StatusOK, scenariosResponse{
		Revision:  uint64(rev),
		Total:     stats.Total,
		Curated:   stats.Curated,
		Scenarios: entries,
	})
}

type generateRequest struct {
	Subjects []string `json:"subjects"`
	Rotation int      `json:"rotation"`
	Curate   bool     `json:"curate"`
}

type stepJSON struct {
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.runPipeline(w, r, pipeline.Options{
		Subjects: req.Subjects,
		Rotation: req.Rotation,
		Generate: true,
		Curate:   req.Curate,
	})
}

func (s *Server) handleCurate(w http.ResponseWriter, r *http.Request) {
	s.runPipeline(w, r, pipeline.Options{Curate: true})
}

func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request, opts pipeline.Options) {
	res := s.pipeline.Run(r.Context(), opts)
	status := http.StatusOK
	if err := res.Err(); err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, map[string]any{"steps": stepsJSON(res), "revision": uint64(s.store.Revision())})
}

func stepsJSON(res *pipeline.Result) []stepJSON {
	steps := make([]stepJSON, len(res.Steps))
	for i, st := range res.Steps {
		steps[i] = stepJSON{Name: st.Name, Summary: st.Summary}
		if st.Err != nil {
			steps[i].Error = st.Err.Error()
		}
	}
	return steps
}

func (s *Server) handleWatchlists(w http.ResponseWriter, r *http.Request) {
	ws, err := s.mem.Watchlists(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := s.mem.List(r.Context(), r.URL.Query().Get("watchlist"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if saved == nil {
		saved = []scenario.SavedScenario{}
	}
	writeJSON(w, http.StatusOK, saved)
}

type promoteRequest struct {
	ScenarioID  string `json:"scenarioId"`
	WatchlistID string `json:"watchlistId"`
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if !s.decode(w, r, &req) {
		return
	}

	entry, err := s.store.Lookup(req.ScenarioID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	saved, err := s.mem.Promote(r.Context(), entry, memory.PromoteOptions{WatchlistID: req.WatchlistID})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

type manualRequest struct {
	WatchlistID string               `json:"watchlistId"`
	Title       string               `json:"title"`
	Text        string               `json:"text"`
	Category    string               `json:"category"`
	Domain      string               `json:"domain"`
	TimeHorizon scenario.TimeHorizon `json:"timeHorizon"`
	Notes       string               `json:"notes"`
}

func (s *Server) handleManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if !s.decode(w, r, &req) {
		return
	}
	saved, err := s.mem.CreateManual(r.Context(), memory.ManualInput{
		WatchlistID: req.WatchlistID,
		Title:       req.Title,
		Text:        req.Text,
		Category:    req.Category,
		Domain:      req.Domain,
		TimeHorizon: req.TimeHorizon,
		Notes:       req.Notes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := s.mem.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := s.mem.History(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

type versionRequest struct {
	Text    string               `json:"text"`
	Type    scenario.VersionType `json:"type"`
	Changes []string             `json:"changes"`
	Notes   string               `json:"notes"`
}

func (s *Server) handleAddVersion(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = scenario.VersionManual
	}
	saved, err := s.mem.AddVersion(r.Context(), r.PathValue("id"), memory.VersionInput{
		Text:    req.Text,
		Type:    req.Type,
		Changes: req.Changes,
		Notes:   req.Notes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

type mutateRequest struct {
	DriftVector string `json:"driftVector"`
}

func (s *Server) handleMutate(w http.ResponseWriter, r *http.Request) {
	if s.mutator == nil {
		s.writeError(w, mutate.ErrNoProvider)
		return
	}
	var req mutateRequest
	if !s.decode(w, r, &req) {
		return
	}
	saved, err := s.mutator.Mutate(r.Context(), r.PathValue("id"), req.DriftVector)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scenario.ErrUnknownWatchlist),
		errors.Is(err, scenario.ErrUnknownScenario),
		errors.Is(err, session.ErrNotInLibrary),
		errors.Is(err, ErrNoJob):
		return http.StatusNotFound
	case errors.Is(err, ErrJobRunning):
		return http.StatusConflict
	case errors.Is(err, scenario.ErrInvalidFormat),
		errors.Is(err, scenario.ErrEmptyTimeHorizon),
		errors.Is(err, memory.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, scenario.ErrMalformedCurationOutput),
		errors.Is(err, scenario.ErrMalformedGenerationOutput),
		errors.Is(err, mutate.ErrMalformedMutationOutput):
		return http.StatusBadGateway
	case errors.Is(err, generate.ErrNoProvider),
		errors.Is(err, mutate.ErrNoProvider):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve starts the HTTP server on the given port and stops it when ctx is
// cancelled.
func Serve(ctx context.Context, d Deps, port int) error {
	srv := New(d)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	srv.logger.Info("server listening", zap.String("url", "http://"+addr))

	defer srv.Close()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
