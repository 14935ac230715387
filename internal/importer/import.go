package importer

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/dgallion1/prose/internal/metrics"
)

// Sink receives imported folders and documents.
type Sink interface {
	EnsureFolder(ctx context.Context, workspaceID string, parentID *string, name string) (id string, created bool, err error)
	PutDocument(ctx context.Context, workspaceID string, folderID *string, title, content string) (created bool, err error)
}

// Upload is one uploaded file. Path is slash-separated and relative to the
// upload root, e.g. "thesis/chapters/intro.md".
type Upload struct {
	Path string
	Data []byte
}

type Options struct {
	// EntryFilename is the compile root. An imported entry without a
	// \documentclass is wrapped in a minimal article.
	EntryFilename string
	PDFFallback   bool
}

type FileError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// Summary reports what an import did.
type Summary struct {
	CreatedFolders   int         `json:"createdFolders"`
	CreatedDocuments int         `json:"createdDocuments"`
	UpdatedDocuments int         `json:"updatedDocuments"`
	Skipped          int         `json:"skipped"`
	Errors           []FileError `json:"errors"`
}

// Import converts every upload and writes it to the workspace. A file that
// fails is recorded in Summary.Errors and does not stop the others.
// Unsupported and hidden files are skipped.
func Import(ctx context.Context, sink Sink, workspaceID string, uploads []Upload, opts Options, log *slog.Logger) Summary {
	sum := Summary{Errors: []FileError{}}
	if opts.EntryFilename == "" {
		opts.EntryFilename = "main.tex"
	}
	folders := make(map[string]*string)

	for _, up := range uploads {
		if err := ctx.Err(); err != nil {
			sum.Errors = append(sum.Errors, FileError{File: up.Path, Message: "import canceled"})
			continue
		}
		segments, ok := splitUploadPath(up.Path)
		if !ok {
			sum.Errors = append(sum.Errors, FileError{File: up.Path, Message: "invalid file path"})
			metrics.RecordImport("error")
			continue
		}
		name := segments[len(segments)-1]
		if hidden(segments) || !IsSupportedExtension(name) {
			sum.Skipped++
			metrics.RecordImport("skipped")
			continue
		}

		folderID, err := ensureFolders(ctx, sink, workspaceID, segments[:len(segments)-1], folders, &sum)
		if err != nil {
			log.Warn("import folder failed", "file", up.Path, "error", err)
			sum.Errors = append(sum.Errors, FileError{File: up.Path, Message: err.Error()})
			metrics.RecordImport("error")
			continue
		}

		conv, err := ForFile(name, ConvertOptions{PDFFallback: opts.PDFFallback})
		if err != nil {
			sum.Skipped++
			metrics.RecordImport("skipped")
			continue
		}
		content, err := conv.Convert(bytes.NewReader(up.Data), name)
		if err != nil {
			log.Warn("import convert failed", "file", up.Path, "error", err)
			sum.Errors = append(sum.Errors, FileError{File: up.Path, Message: err.Error()})
			metrics.RecordImport("error")
			continue
		}

		title := DocumentTitle(name)
		if title == opts.EntryFilename && !HasDocumentClass(content) {
			content = WrapStandalone(content)
		}

		created, err := sink.PutDocument(ctx, workspaceID, folderID, title, content)
		if err != nil {
			log.Warn("import write failed", "file", up.Path, "error", err)
			sum.Errors = append(sum.Errors, FileError{File: up.Path, Message: err.Error()})
			metrics.RecordImport("error")
			continue
		}
		if created {
			sum.CreatedDocuments++
			metrics.RecordImport("created")
		} else {
			sum.UpdatedDocuments++
			metrics.RecordImport("updated")
		}
	}

	log.Info("import finished",
		"workspace_id", workspaceID,
		"created_folders", sum.CreatedFolders,
		"created_documents", sum.CreatedDocuments,
		"updated_documents", sum.UpdatedDocuments,
		"skipped", sum.Skipped,
		"errors", len(sum.Errors),
	)
	return sum
}

// ensureFolders creates the folder chain and returns the innermost folder
// ID, or nil for the workspace root. Known chains are cached per import.
func ensureFolders(ctx context.Context, sink Sink, workspaceID string, dirs []string, cache map[string]*string, sum *Summary) (*string, error) {
	var parent *string
	for i := range dirs {
		key := path.Join(dirs[:i+1]...)
		if id, ok := cache[key]; ok {
			parent = id
			continue
		}
		id, created, err := sink.EnsureFolder(ctx, workspaceID, parent, dirs[i])
		if err != nil {
			return nil, err
		}
		if created {
			sum.CreatedFolders++
		}
		parent = &id
		cache[key] = parent
	}
	return parent, nil
}

// splitUploadPath cleans a client-supplied relative path. Paths that try to
// leave the upload root are rejected.
func splitUploadPath(p string) ([]string, bool) {
	p = strings.ReplaceAll(p, `\`, "/")
	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			return nil, false
		}
		out = append(out, seg)
	}
	return out, len(out) > 0
}

func hidden(segments []string) bool {
	for _, s := range segments {
		if strings.HasPrefix(s, ".") {
			return true
		}
	}
	return false
}
