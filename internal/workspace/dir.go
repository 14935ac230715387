package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dgallion1/prose/internal/doctree"
)

// DirStore keeps each workspace as a directory tree under a root:
// root/<workspaceID>/<folders...>/<document title>. Folder and document IDs
// are slash-separated paths relative to the workspace directory.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &DirStore{root: root}, nil
}

func (s *DirStore) workspaceDir(workspaceID string) (string, error) {
	if err := validateName(workspaceID); err != nil {
		return "", fmt.Errorf("workspace id: %w", err)
	}
	if strings.HasPrefix(workspaceID, ".") {
		return "", fmt.Errorf("workspace id: %w: %q", ErrInvalidName, workspaceID)
	}
	return filepath.Join(s.root, workspaceID), nil
}

// FetchTree walks the workspace directory. Hidden entries and anything that
// is neither a regular file nor a directory are skipped. A workspace that
// does not exist yet has an empty tree.
func (s *DirStore) FetchTree(ctx context.Context, workspaceID string) ([]*doctree.FolderTreeNode, error) {
	dir, err := s.workspaceDir(workspaceID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var folders []doctree.FolderRow
	var docs []doctree.DocumentRow
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		parent := parentID(rel)

		switch {
		case d.IsDir():
			folders = append(folders, doctree.FolderRow{ID: rel, Name: d.Name(), ParentID: parent})
		case d.Type().IsRegular():
			content, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			docs = append(docs, doctree.DocumentRow{ID: rel, Title: d.Name(), Content: string(content), FolderID: parent})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk workspace %s: %w", workspaceID, err)
	}
	return doctree.BuildTree(folders, docs), nil
}

func (s *DirStore) EnsureFolder(_ context.Context, workspaceID string, parentID *string, name string) (string, bool, error) {
	target, id, err := s.resolve(workspaceID, parentID, name)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(target)
	switch {
	case err == nil && info.IsDir():
		return id, false, nil
	case err == nil:
		return "", false, fmt.Errorf("folder %s: a document with that name exists", id)
	case !errors.Is(err, fs.ErrNotExist):
		return "", false, fmt.Errorf("stat folder %s: %w", id, err)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", false, fmt.Errorf("create folder %s: %w", id, err)
	}
	return id, true, nil
}

func (s *DirStore) PutDocument(_ context.Context, workspaceID string, folderID *string, title, content string) (bool, error) {
	target, id, err := s.resolve(workspaceID, folderID, title)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		return false, fmt.Errorf("document %s: a folder with that name exists", id)
	}
	created := errors.Is(err, fs.ErrNotExist)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, fmt.Errorf("create folder for %s: %w", id, err)
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write document %s: %w", id, err)
	}
	return created, nil
}

// resolve validates a parent ID plus child name and returns the on-disk path
// and the child's ID.
func (s *DirStore) resolve(workspaceID string, parentID *string, name string) (string, string, error) {
	dir, err := s.workspaceDir(workspaceID)
	if err != nil {
		return "", "", err
	}
	if err := validateName(name); err != nil {
		return "", "", err
	}
	id := name
	if parentID != nil && *parentID != "" && *parentID != doctree.RootID {
		for _, seg := range strings.Split(*parentID, "/") {
			if err := validateName(seg); err != nil {
				return "", "", fmt.Errorf("parent %q: %w", *parentID, err)
			}
		}
		id = path.Join(*parentID, name)
	}
	return filepath.Join(dir, filepath.FromSlash(id)), id, nil
}

func parentID(rel string) *string {
	dir := path.Dir(rel)
	if dir == "." {
		return nil
	}
	return &dir
}
