package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netguy47/Scenario-Atlas/internal/pipeline"
)

var (
	// ErrJobRunning is returned when a job is started while another runs.
	ErrJobRunning = errors.New("a job is already running")
	// ErrNoJob is returned when no job has been started.
	ErrNoJob = errors.New("no job has been started")
)

// Job states reported by the jobs API.
const (
	JobRunning   = "running"
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobCancelled = "cancelled"
)

type job struct {
	id      string
	opts    pipeline.Options
	started time.Time
	task    *pipeline.Task[*pipeline.Result]
}

// jobs holds at most one background pipeline run. Jobs run under base,
// not under the request that started them.
type jobs struct {
	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	current *job
}

func newJobs() *jobs {
	ctx, cancel := context.WithCancel(context.Background())
	return &jobs{base: ctx, cancel: cancel}
}

func (j *jobs) start(p *pipeline.Pipeline, opts pipeline.Options) (*job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.current != nil && !finished(j.current.task) {
		return nil, ErrJobRunning
	}
	if err := j.base.Err(); err != nil {
		return nil, err
	}
	j.current = &job{
		id:      uuid.NewString(),
		opts:    opts,
		started: time.Now(),
		task:    p.Start(j.base, opts),
	}
	return j.current, nil
}

func (j *jobs) get() (*job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.current == nil {
		return nil, ErrNoJob
	}
	return j.current, nil
}

// close cancels any running job and waits for it to finish.
func (j *jobs) close() {
	j.cancel()
	j.mu.Lock()
	cur := j.current
	j.mu.Unlock()
	if cur != nil {
		<-cur.task.Done()
	}
}

func finished[T any](t *pipeline.Task[T]) bool {
	select {
	case <-t.Done():
		return true
	default:
		return false
	}
}

type jobRequest struct {
	Generate bool     `json:"generate"`
	Curate   bool     `json:"curate"`
	Subjects []string `json:"subjects"`
	Rotation int      `json:"rotation"`
}

type jobResponse struct {
	ID       string     `json:"id"`
	Status   string     `json:"status"`
	Generate bool       `json:"generate"`
	Curate   bool       `json:"curate"`
	Started  time.Time  `json:"started"`
	Steps    []stepJSON `json:"steps,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func (jb *job) response() jobResponse {
	resp := jobResponse{
		ID:       jb.id,
		Status:   JobRunning,
		Generate: jb.opts.Generate,
		Curate:   jb.opts.Curate,
		Started:  jb.started,
	}
	if !finished(jb.task) {
		return resp
	}
	res, err := jb.task.Wait()
	if res != nil {
		resp.Steps = stepsJSON(res)
	}
	switch {
	case err == nil:
		resp.Status = JobSucceeded
	case errors.Is(err, context.Canceled):
		resp.Status = JobCancelled
		resp.Error = err.Error()
	default:
		resp.Status = JobFailed
		resp.Error = err.Error()
	}
	return resp
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !req.Generate && !req.Curate {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job must generate, curate or both"})
		return
	}
	jb, err := s.jobs.start(s.pipeline, pipeline.Options{
		Subjects: req.Subjects,
		Rotation: req.Rotation,
		Generate: req.Generate,
		Curate:   req.Curate,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("job started", zap.String("job", jb.id),
		zap.Bool("generate", req.Generate), zap.Bool("curate", req.Curate))
	writeJSON(w, http.StatusAccepted, jb.response())
}

func (s *Server) handleCurrentJob(w http.ResponseWriter, r *http.Request) {
	jb, err := s.jobs.get()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jb.response())
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jb, err := s.jobs.get()
	if err != nil {
		s.writeError(w, err)
		return
	}
	jb.task.Cancel()
	select {
	case <-jb.task.Done():
	case <-r.Context().Done():
	}
	s.logger.Info("job cancelled", zap.String("job", jb.id))
	writeJSON(w, http.StatusOK, jb.response())
}
