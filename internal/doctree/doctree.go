package doctree

import "context"

// DocumentNode is a single compilable document.
type DocumentNode struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// FolderTreeNode is one directory level of a workspace. An empty Name marks a
// synthetic root that contributes no path segment.
type FolderTreeNode struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	ParentID  *string           `json:"parent_id"`
	Folders   []*FolderTreeNode `json:"folders"`
	Documents []DocumentNode    `json:"documents"`
}

// ExportedFile is a flattened document: a slash-separated path relative to
// the export root plus its text.
type ExportedFile struct {
	RelativePath string `json:"path"`
	Content      string `json:"content"`
}

// Source supplies the document tree of a workspace.
type Source interface {
	FetchTree(ctx context.Context, workspaceID string) ([]*FolderTreeNode, error)
}

// CountDocuments returns the number of documents anywhere under roots.
func CountDocuments(roots []*FolderTreeNode) int {
	n := 0
	for _, r := range roots {
		if r == nil {
			continue
		}
		n += len(r.Documents)
		n += CountDocuments(r.Folders)
	}
	return n
}

// IsEmpty reports whether the tree holds no documents at all.
func IsEmpty(roots []*FolderTreeNode) bool {
	return CountDocuments(roots) == 0
}
