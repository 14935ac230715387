package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of an async compile job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether no further transitions happen from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// Job tracks one async compilation of a workspace.
type Job struct {
	mu sync.Mutex

	ID          string
	WorkspaceID string
	Status      JobStatus
	Stage       Stage
	CreatedAt   time.Time
	UpdatedAt   time.Time

	failure     *Failure
	artifactKey string
	pages       int

	// Internal: not serialized.
	cancel          context.CancelFunc
	cancelRequested bool
}

func NewJob(workspaceID string) *Job {
	now := time.Now()
	return &Job{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Status:      StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes finished jobs not updated within the TTL. Queued and
// running jobs are kept regardless of age.
func (s *JobStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.Status.Terminal() && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

// SetStage records pipeline progress.
func (j *Job) SetStage(stage Stage) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Stage = stage
	j.UpdatedAt = time.Now()
}

// start moves a queued job to running and registers its cancel func. It
// returns false when the job was canceled while waiting in the queue.
func (j *Job) start(cancel context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status != StatusQueued {
		return false
	}
	j.Status = StatusRunning
	j.cancel = cancel
	j.UpdatedAt = time.Now()
	return true
}

// Complete marks the job done with its stored artifact.
func (j *Job) Complete(artifactKey string, pages int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusCompleted
	j.Stage = StageDone
	j.artifactKey = artifactKey
	j.pages = pages
	j.cancel = nil
	j.UpdatedAt = time.Now()
}

// Fail records a failure. A failure caused by a cancel request is recorded
// as canceled.
func (j *Job) Fail(f *Failure) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failure = f
	j.Stage = f.Stage
	j.Status = StatusFailed
	if j.cancelRequested {
		j.Status = StatusCanceled
	}
	j.cancel = nil
	j.UpdatedAt = time.Now()
}

// RequestCancel cancels a queued or running job. It returns false if the
// job had already finished.
func (j *Job) RequestCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.Status {
	case StatusQueued:
		j.cancelRequested = true
		j.Status = StatusCanceled
		j.UpdatedAt = time.Now()
		return true
	case StatusRunning:
		j.cancelRequested = true
		if j.cancel != nil {
			j.cancel()
		}
		j.UpdatedAt = time.Now()
		return true
	}
	return false
}

// ArtifactKey returns the artifact store key of a completed job.
func (j *Job) ArtifactKey() (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.artifactKey, j.Status == StatusCompleted
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string      `json:"job_id"`
	WorkspaceID string      `json:"workspace_id"`
	Status      JobStatus   `json:"status"`
	Stage       Stage       `json:"stage,omitempty"`
	Kind        FailureKind `json:"kind,omitempty"`
	Error       string      `json:"error,omitempty"`
	Log         string      `json:"log,omitempty"`
	Pages       int         `json:"pages,omitempty"`
	ArtifactKey string      `json:"artifact_key,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	snap := JobSnapshot{
		ID:          j.ID,
		WorkspaceID: j.WorkspaceID,
		Status:      j.Status,
		Stage:       j.Stage,
		Pages:       j.pages,
		ArtifactKey: j.artifactKey,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.failure != nil {
		snap.Kind = j.failure.Kind
		snap.Error = j.failure.Message
		snap.Log = j.failure.Log
	}
	return snap
}
