package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dgallion1/prose/internal/artifact"
	"github.com/dgallion1/prose/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

const pdfFilename = "document.pdf"

// handleCompile compiles a workspace synchronously and streams the PDF back.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	wsID := chi.URLParam(r, "workspaceID")

	switch res := s.orchestrator.Run(r.Context(), wsID).(type) {
	case pipeline.Success:
		writePDF(w, res.Artifact)
	case *pipeline.Failure:
		writeJSON(w, failureStatus(res.Kind), res)
	}
}

// handleSubmitJob queues a compilation and returns immediately.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	wsID := chi.URLParam(r, "workspaceID")

	job, err := s.jobs.Submit(wsID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrQueueFull) || errors.Is(err, pipeline.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		jsonError(w, err.Error(), status)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/compile/jobs/%s", snap.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(chi.URLParam(r, "jobID"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleJobArtifact(w http.ResponseWriter, r *http.Request) {
	data, err := s.jobs.Artifact(r.Context(), chi.URLParam(r, "jobID"))
	switch {
	case errors.Is(err, pipeline.ErrJobNotFound), errors.Is(err, artifact.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, pipeline.ErrJobNotReady):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		s.log.Error("artifact fetch failed", "job_id", chi.URLParam(r, "jobID"), "error", err)
		jsonError(w, "failed to fetch artifact", http.StatusInternalServerError)
		return
	}
	writePDF(w, data)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Cancel(chi.URLParam(r, "jobID"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// failureStatus maps caller-fixable failures to 422 and the rest to 500.
func failureStatus(kind pipeline.FailureKind) int {
	switch kind {
	case pipeline.KindInput, pipeline.KindCompile:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writePDF(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", pdfFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
