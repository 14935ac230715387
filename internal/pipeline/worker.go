package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/ledongthuc/pdf"

	"github.com/dgallion1/prose/internal/artifact"
	"github.com/dgallion1/prose/internal/metrics"
)

// Worker processes a single compile job.
type Worker struct {
	orchestrator *Orchestrator
	artifacts    artifact.Store
	log          *slog.Logger
}

func NewWorker(o *Orchestrator, store artifact.Store, log *slog.Logger) *Worker {
	return &Worker{
		orchestrator: o,
		artifacts:    store,
		log:          log,
	}
}

// Process compiles the job's workspace and stores the artifact.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "workspace_id", job.WorkspaceID)

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !job.start(cancel) {
		log.Info("compile job canceled before start")
		return
	}

	res := w.orchestrator.run(jobCtx, job.WorkspaceID, job.SetStage)
	switch r := res.(type) {
	case Success:
		key := path.Join(job.ID, w.orchestrator.ArtifactName())
		err := withRetry(ctx, func() error {
			return w.artifacts.Put(ctx, key, r.Artifact)
		}, func(attempt int, err error) {
			log.Warn("retryable artifact store error", "key", key, "attempt", attempt, "error", err)
		})
		if err != nil {
			log.Error("store artifact", "key", key, "error", err)
			job.Fail(&Failure{Kind: KindEnvironment, Stage: StageDone, Message: "failed to store compiled artifact"})
			break
		}
		pages, err := countPages(r.Artifact)
		if err != nil {
			log.Warn("count pages", "error", err)
		}
		job.Complete(key, pages)
		log.Info("compile job completed", "artifact", key, "bytes", len(r.Artifact), "pages", pages)
	case *Failure:
		job.Fail(r)
	}
	metrics.RecordJob(string(job.Snapshot().Status))
}

// countPages reads the page count from a PDF. Malformed input yields an
// error, never a panic.
func countPages(data []byte) (n int, err error) {
	defer func() {
		if p := recover(); p != nil {
			n, err = 0, fmt.Errorf("malformed pdf: %v", p)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	return r.NumPage(), nil
}
