package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dgallion1/prose/internal/doctree"
	"github.com/dgallion1/prose/internal/importer"
	"github.com/dgallion1/prose/internal/materialize"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	wsID := chi.URLParam(r, "workspaceID")
	roots, err := s.workspaces.FetchTree(r.Context(), wsID)
	if err != nil {
		s.log.Error("fetch tree failed", "workspace_id", wsID, "error", err)
		jsonError(w, "failed to load workspace documents", http.StatusInternalServerError)
		return
	}
	if roots == nil {
		roots = []*doctree.FolderTreeNode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"workspace_id": wsID,
		"documents":    doctree.CountDocuments(roots),
		"tree":         roots,
	})
}

// handleExport downloads the flattened workspace as a zip, laid out exactly
// as it would be staged for compilation.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	wsID := chi.URLParam(r, "workspaceID")
	roots, err := s.workspaces.FetchTree(r.Context(), wsID)
	if err != nil {
		s.log.Error("fetch tree failed", "workspace_id", wsID, "error", err)
		jsonError(w, "failed to load workspace documents", http.StatusInternalServerError)
		return
	}
	files, err := materialize.Flatten(roots)
	if err != nil {
		var collision *materialize.CollisionError
		if errors.As(err, &collision) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := materialize.WriteZip(&buf, files); err != nil {
		s.log.Error("zip export failed", "workspace_id", wsID, "error", err)
		jsonError(w, "failed to build archive", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "workspace-"+wsID+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// uploadMeta mirrors the per-file metadata a folder upload sends alongside
// the files, in the same order. Multipart filenames lose their directories,
// so the relative path travels here.
type uploadMeta struct {
	Path string `json:"path"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	wsID := chi.URLParam(r, "workspaceID")
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var meta []uploadMeta
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			jsonError(w, "invalid metadata: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	uploads := make([]importer.Upload, 0, len(files))
	var readErrs []importer.FileError
	for i, fh := range files {
		name := fh.Filename
		if len(meta) == len(files) && meta[i].Path != "" {
			name = meta[i].Path
		}

		f, err := fh.Open()
		if err != nil {
			readErrs = append(readErrs, importer.FileError{File: name, Message: "failed to open file"})
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			readErrs = append(readErrs, importer.FileError{File: name, Message: "failed to read file"})
			continue
		}
		uploads = append(uploads, importer.Upload{Path: name, Data: data})
	}

	sum := importer.Import(r.Context(), s.workspaces, wsID, uploads, importer.Options{
		EntryFilename: s.cfg.EntryFilename,
		PDFFallback:   s.cfg.PDFFallbackPdftotext,
	}, s.log.With("workspace_id", wsID))
	sum.Errors = append(sum.Errors, readErrs...)
	if sum.Errors == nil {
		sum.Errors = []importer.FileError{}
	}

	writeJSON(w, http.StatusOK, sum)
}
