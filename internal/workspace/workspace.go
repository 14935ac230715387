// Package workspace stores the folders and documents of writing workspaces.
// Both backends serve document trees to the compile pipeline and accept
// writes from the importer.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/prose/internal/doctree"
)

var ErrInvalidName = errors.New("invalid name")

// Store is a workspace backend.
type Store interface {
	FetchTree(ctx context.Context, workspaceID string) ([]*doctree.FolderTreeNode, error)
	// EnsureFolder returns the ID of the named child of parentID (nil for
	// the workspace root), creating it if needed.
	EnsureFolder(ctx context.Context, workspaceID string, parentID *string, name string) (id string, created bool, err error)
	// PutDocument creates or overwrites the document with this title in
	// folderID (nil for the workspace root).
	PutDocument(ctx context.Context, workspaceID string, folderID *string, title, content string) (created bool, err error)
}

// validateName rejects names that cannot be a single path segment.
func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case len(name) > 255:
		return fmt.Errorf("%w: longer than 255 bytes", ErrInvalidName)
	}
	return nil
}
