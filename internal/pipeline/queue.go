package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/prose/internal/artifact"
	"github.com/dgallion1/prose/internal/metrics"
)

var (
	ErrQueueFull   = errors.New("compile job queue is full")
	ErrJobNotFound = errors.New("compile job not found")
	ErrJobNotReady = errors.New("compile job has no artifact")
	ErrQueueClosed = errors.New("compile job queue is stopped")
)

type QueueConfig struct {
	WorkerCount     int
	MaxQueueSize    int
	JobTTL          time.Duration
	CleanupInterval time.Duration
}

// JobQueue runs compilations asynchronously on a fixed worker pool.
type JobQueue struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	log    *slog.Logger
	cfg    QueueConfig

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewJobQueue(o *Orchestrator, store artifact.Store, cfg QueueConfig, log *slog.Logger) *JobQueue {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 1
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	return &JobQueue{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		worker: NewWorker(o, store, log),
		log:    log,
		cfg:    cfg,
	}
}

// Start launches worker goroutines.
func (q *JobQueue) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	for range q.cfg.WorkerCount {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-q.queue:
					if !ok {
						return
					}
					metrics.SetJobQueueDepth(len(q.queue))
					if workerCtx.Err() != nil {
						q.cancelQueued(job)
						return
					}
					q.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := q.jobs.Cleanup(); n > 0 {
					q.log.Debug("evicted compile jobs", "count", n)
				}
			}
		}
	}()
}

// Stop cancels running jobs, waits for the workers to exit and marks jobs
// still waiting in the queue canceled.
func (q *JobQueue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.queue)
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()

	for job := range q.queue {
		q.cancelQueued(job)
	}
	metrics.SetJobQueueDepth(0)
}

// cancelQueued cancels a job that was never handed to a worker.
func (q *JobQueue) cancelQueued(job *Job) {
	if job.RequestCancel() {
		metrics.RecordJob(string(StatusCanceled))
		q.log.Info("compile job canceled on shutdown", "job_id", job.ID)
	}
}

// Submit queues a compilation of the workspace.
func (q *JobQueue) Submit(workspaceID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}

	job := NewJob(workspaceID)
	select {
	case q.queue <- job:
		q.jobs.Put(job)
		metrics.SetJobQueueDepth(len(q.queue))
		return job, nil
	default:
		return nil, fmt.Errorf("%w (%d)", ErrQueueFull, q.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (q *JobQueue) GetJob(id string) (*Job, error) {
	job := q.jobs.Get(id)
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// Cancel stops a queued or running job. Canceling a finished job is a no-op.
func (q *JobQueue) Cancel(id string) (*Job, error) {
	job, err := q.GetJob(id)
	if err != nil {
		return nil, err
	}
	if job.RequestCancel() {
		q.log.Info("compile job cancel requested", "job_id", id)
		if job.Snapshot().Status == StatusCanceled {
			metrics.RecordJob(string(StatusCanceled))
		}
	}
	return job, nil
}

// Artifact returns the compiled output of a completed job.
func (q *JobQueue) Artifact(ctx context.Context, id string) ([]byte, error) {
	job, err := q.GetJob(id)
	if err != nil {
		return nil, err
	}
	key, ok := job.ArtifactKey()
	if !ok {
		return nil, ErrJobNotReady
	}
	return q.worker.artifacts.Get(ctx, key)
}

// QueueDepth returns current queue depth.
func (q *JobQueue) QueueDepth() int {
	return len(q.queue)
}
