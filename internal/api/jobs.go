package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FocuswithJustin/BodhiCanon/core/errors"
	"github.com/FocuswithJustin/BodhiCanon/internal/etl"
)

// JobStatus is the lifecycle state of an ingest job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IngestRequest selects what one job processes.
type IngestRequest struct {
	// Target is "all", "collection", or "doc".
	Target string `json:"target"`
	// Ref is the collection code or document reference; unused for "all".
	Ref string `json:"ref,omitempty"`
}

// Job is one asynchronous ingest run.
type Job struct {
	ID          string             `json:"id"`
	Status      JobStatus          `json:"status"`
	Request     IngestRequest      `json:"request"`
	Summary     *etl.Summary       `json:"summary,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
	CompletedAt string             `json:"completed_at,omitempty"`
	ctx         context.Context    `json:"-"`
	cancel      context.CancelFunc `json:"-"`
}

// JobStore tracks ingest jobs in memory. Jobs do not survive restarts;
// the pipeline itself is idempotent, so a lost job is simply rerun.
type JobStore struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create registers a pending job.
func (s *JobStore) Create(req IngestRequest) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC().Format(time.RFC3339)
	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.jobs[job.ID] = job
	return job
}

// Get retrieves a job by id.
func (s *JobStore) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// update transitions a job and stamps the terminal time when it settles.
func (s *JobStore) update(id string, status JobStatus, sum *etl.Summary, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.Status = status
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if sum != nil {
		job.Summary = sum
	}
	if errMsg != "" {
		job.Error = errMsg
	}
	if status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled {
		job.CompletedAt = job.UpdatedAt
	}
}

// Cancel stops a pending or running job.
func (s *JobStore) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return errors.NewNotFound("job", id)
	}
	if job.Status != JobStatusPending && job.Status != JobStatusRunning {
		return errors.NewValidation("status", "job already settled")
	}
	if job.cancel != nil {
		job.cancel()
	}
	job.Status = JobStatusCancelled
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	job.CompletedAt = job.UpdatedAt
	return nil
}

// runJob executes the pipeline for one job and broadcasts its progress.
func (s *Server) runJob(job *Job) {
	go func() {
		s.jobs.update(job.ID, JobStatusRunning, nil, "")

		p, err := etl.New(s.cfg, s.store)
		if err != nil {
			s.jobs.update(job.ID, JobStatusFailed, nil, err.Error())
			s.hub.Broadcast(ProgressMessage{Type: "error", JobID: job.ID, Message: err.Error()})
			return
		}
		p.Progress = func(ev etl.Event) {
			s.hub.BroadcastEvent(job.ID, ev)
		}

		var sum *etl.Summary
		switch job.Request.Target {
		case "all":
			sum, err = p.RunAll(job.ctx)
		case "collection":
			sum, err = p.RunCollection(job.ctx, job.Request.Ref)
		default:
			sum, err = p.RunDoc(job.ctx, job.Request.Ref)
		}

		switch {
		case job.ctx.Err() != nil:
			s.jobs.update(job.ID, JobStatusCancelled, sum, "cancelled")
		case err != nil:
			s.jobs.update(job.ID, JobStatusFailed, nil, err.Error())
			s.hub.Broadcast(ProgressMessage{Type: "error", JobID: job.ID, Message: err.Error()})
		default:
			s.jobs.update(job.ID, JobStatusCompleted, sum, "")
			s.searches.Clear()
			s.hub.Broadcast(ProgressMessage{
				Type:    "complete",
				JobID:   job.ID,
				Index:   sum.Processed,
				Total:   sum.Total,
				Message: "run " + sum.RunID + " finished",
			})
		}
	}()
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body must be JSON")
		return
	}
	switch req.Target {
	case "all":
	case "collection", "doc":
		if req.Ref == "" {
			respondError(w, http.StatusBadRequest, "MISSING_REF", "target requires a ref")
			return
		}
	default:
		respondError(w, http.StatusBadRequest, "INVALID_TARGET", "target must be all, collection, or doc")
		return
	}

	job := s.jobs.Create(req)
	s.runJob(job)
	respond(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	respond(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.jobs.Cancel(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		respondError(w, http.StatusConflict, "CANCEL_FAILED", err.Error())
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "job cancelled"})
}
