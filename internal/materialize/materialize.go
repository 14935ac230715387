// Package materialize turns a workspace document tree into files on disk.
package materialize

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/prose/internal/doctree"
)

// DefaultExtension is appended to document titles that do not already end
// in a LaTeX source extension.
const DefaultExtension = ".tex"

// sourceExtensions are kept as-is by FileName. Any other dotted suffix
// ("Dr. Smith", "Chapter 1.2") is part of the title.
var sourceExtensions = map[string]bool{
	".tex": true,
	".bib": true,
	".sty": true,
	".cls": true,
	".bst": true,
	".clo": true,
	".def": true,
	".cfg": true,
	".ltx": true,
}

const maxSegmentBytes = 200

// CollisionError reports two tree entries that flatten to the same path.
type CollisionError struct {
	Path string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("duplicate path %q in document tree", e.Path)
}

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespace  = regexp.MustCompile(`\s+`)
	underscores = regexp.MustCompile(`_{2,}`)
)

// SanitizeSegment makes a folder name or document title safe to use as a
// single path segment.
func SanitizeSegment(name string) string {
	s := unsafeChars.ReplaceAllString(name, "_")
	s = whitespace.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "." || s == ".." {
		s = "_"
	}
	for len(s) > maxSegmentBytes {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// FileName returns the file name a document title is written under.
func FileName(title string) string {
	name := SanitizeSegment(title)
	if !HasSourceExtension(name) {
		name += DefaultExtension
	}
	return name
}

// HasSourceExtension reports whether name ends in a LaTeX source extension,
// ignoring case.
func HasSourceExtension(name string) bool {
	return sourceExtensions[strings.ToLower(path.Ext(name))]
}

// Flatten walks roots depth-first and returns one file per document. Within
// a folder, documents come first, sorted by file name, followed by child
// folders sorted by name. Paths are slash-separated and relative.
func Flatten(roots []*doctree.FolderTreeNode) ([]doctree.ExportedFile, error) {
	f := &flattener{
		files: make(map[string]bool),
		dirs:  make(map[string]bool),
	}
	if err := f.walk(sortedFolders(roots), ""); err != nil {
		return nil, err
	}
	return f.out, nil
}

type flattener struct {
	out   []doctree.ExportedFile
	files map[string]bool
	dirs  map[string]bool
}

func (f *flattener) walk(nodes []*doctree.FolderTreeNode, base string) error {
	for _, node := range nodes {
		dir := base
		if node.Name != "" {
			dir = path.Join(base, SanitizeSegment(node.Name))
			if f.files[dir] {
				return &CollisionError{Path: dir}
			}
			f.dirs[dir] = true
		}

		docs := make([]doctree.ExportedFile, 0, len(node.Documents))
		for _, doc := range node.Documents {
			docs = append(docs, doctree.ExportedFile{
				RelativePath: path.Join(dir, FileName(doc.Title)),
				Content:      doc.Content,
			})
		}
		sort.SliceStable(docs, func(i, j int) bool {
			return docs[i].RelativePath < docs[j].RelativePath
		})
		for _, d := range docs {
			if f.files[d.RelativePath] || f.dirs[d.RelativePath] {
				return &CollisionError{Path: d.RelativePath}
			}
			f.files[d.RelativePath] = true
			f.out = append(f.out, d)
		}

		if err := f.walk(sortedFolders(node.Folders), dir); err != nil {
			return err
		}
	}
	return nil
}

func sortedFolders(nodes []*doctree.FolderTreeNode) []*doctree.FolderTreeNode {
	out := make([]*doctree.FolderTreeNode, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Write creates every file under root, creating parent directories as
// needed. Each directory is created at most once per call.
func Write(root string, files []doctree.ExportedFile) error {
	created := make(map[string]bool)
	for _, file := range files {
		full := filepath.Join(root, filepath.FromSlash(file.RelativePath))
		dir := filepath.Dir(full)
		if !created[dir] {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", dir, err)
			}
			created[dir] = true
		}
		if err := os.WriteFile(full, []byte(file.Content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", file.RelativePath, err)
		}
	}
	return nil
}
