package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/prose/internal/artifact"
	"github.com/dgallion1/prose/internal/compiler"
	"github.com/dgallion1/prose/internal/doctree"
)

func newQueue(t *testing.T, r compiler.Runner, cfg QueueConfig) *JobQueue {
	t.Helper()
	o, _ := newOrchestrator(t, map[string][]*doctree.FolderTreeNode{"ws": thesisTree()}, r)
	store, err := artifact.NewMemoryStore(8)
	if err != nil {
		t.Fatal(err)
	}
	return NewJobQueue(o, store, cfg, testLogger())
}

func waitTerminal(t *testing.T, job *Job) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := job.Snapshot()
		if snap.Status.Terminal() {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish, last status %q", job.ID, job.Snapshot().Status)
	return JobSnapshot{}
}

func TestJobQueue_CompletesAndStoresArtifact(t *testing.T) {
	q := newQueue(t, runnerFunc(func(_ context.Context, c compiler.Command) (compiler.Outcome, error) {
		return fakePDF(c)
	}), QueueConfig{WorkerCount: 2, MaxQueueSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	job, err := q.Submit("ws")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap := waitTerminal(t, job)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %+v", snap)
	}
	if snap.ArtifactKey != job.ID+"/main.pdf" {
		t.Errorf("unexpected artifact key %q", snap.ArtifactKey)
	}
	data, err := q.Artifact(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if string(data) != "%PDF-1.4 fake" {
		t.Errorf("unexpected artifact %q", data)
	}
}

func TestJobQueue_FailedJobHasNoArtifact(t *testing.T) {
	q := newQueue(t, runnerFunc(func(_ context.Context, c compiler.Command) (compiler.Outcome, error) {
		return compiler.Outcome{ExitCode: 1, Output: "! LaTeX Error"}, nil
	}), QueueConfig{WorkerCount: 1, MaxQueueSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	job, _ := q.Submit("ws")
	snap := waitTerminal(t, job)
	if snap.Status != StatusFailed || snap.Kind != KindCompile {
		t.Errorf("expected compile failure, got %+v", snap)
	}
	if _, err := q.Artifact(context.Background(), job.ID); !errors.Is(err, ErrJobNotReady) {
		t.Errorf("expected ErrJobNotReady, got %v", err)
	}
}

func TestJobQueue_FullQueue(t *testing.T) {
	q := newQueue(t, nil, QueueConfig{WorkerCount: 1, MaxQueueSize: 1})
	// Not started: nothing drains the queue.
	if _, err := q.Submit("ws"); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := q.Submit("ws"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if q.QueueDepth() != 1 {
		t.Errorf("expected depth 1, got %d", q.QueueDepth())
	}
}

func TestJobQueue_CancelRunningJob(t *testing.T) {
	started := make(chan struct{})
	q := newQueue(t, runnerFunc(func(ctx context.Context, c compiler.Command) (compiler.Outcome, error) {
		close(started)
		<-ctx.Done()
		return compiler.Outcome{Canceled: true, ExitCode: -1}, nil
	}), QueueConfig{WorkerCount: 1, MaxQueueSize: 2})
	q.Start(context.Background())
	defer q.Stop()

	job, _ := q.Submit("ws")
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}
	if _, err := q.Cancel(job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if snap := waitTerminal(t, job); snap.Status != StatusCanceled {
		t.Errorf("expected canceled, got %+v", snap)
	}
}

func TestJobQueue_UnknownJob(t *testing.T) {
	q := newQueue(t, nil, QueueConfig{})
	if _, err := q.GetJob("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
	if _, err := q.Cancel("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobQueue_SubmitAfterStop(t *testing.T) {
	q := newQueue(t, nil, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	q.Stop()
	if _, err := q.Submit("ws"); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestJobQueue_StopCancelsQueuedJobs(t *testing.T) {
	started := make(chan struct{}, 1)
	q := newQueue(t, runnerFunc(func(ctx context.Context, c compiler.Command) (compiler.Outcome, error) {
		started <- struct{}{}
		<-ctx.Done()
		return compiler.Outcome{Canceled: true, ExitCode: -1}, nil
	}), QueueConfig{WorkerCount: 1, MaxQueueSize: 4})
	q.Start(context.Background())

	running, _ := q.Submit("ws")
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}
	waiting := make([]*Job, 0, 2)
	for range 2 {
		job, err := q.Submit("ws")
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		waiting = append(waiting, job)
	}

	q.Stop()

	if snap := running.Snapshot(); !snap.Status.Terminal() {
		t.Errorf("expected running job to finish, got %q", snap.Status)
	}
	for _, job := range waiting {
		if snap := job.Snapshot(); snap.Status != StatusCanceled {
			t.Errorf("job %s: expected canceled, got %q", job.ID, snap.Status)
		}
	}
}

func TestCountPages_RejectsGarbage(t *testing.T) {
	if n, err := countPages([]byte("not a pdf")); err == nil || n != 0 {
		t.Errorf("expected error and 0 pages, got %d, %v", n, err)
	}
}
