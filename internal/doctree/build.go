package doctree

// RootID is the ID given to the synthetic root that holds documents living
// outside any folder.
const RootID = "root"

// FolderRow is a folder as stored by a workspace backend.
type FolderRow struct {
	ID       string
	Name     string
	ParentID *string
}

// DocumentRow is a document as stored by a workspace backend. A nil FolderID
// means the document sits at the workspace root.
type DocumentRow struct {
	ID       string
	Title    string
	Content  string
	FolderID *string
}

// BuildTree joins flat folder and document rows into a forest.
//
// Folders whose parent is unknown become roots, as do folders caught in a
// parent cycle, so no folder is lost. Documents without a folder
// are collected into a synthetic root with an empty name, placed first.
// Documents pointing at an unknown folder are dropped.
func BuildTree(folders []FolderRow, documents []DocumentRow) []*FolderTreeNode {
	byID := make(map[string]*FolderTreeNode, len(folders))
	for _, f := range folders {
		byID[f.ID] = &FolderTreeNode{
			ID:       f.ID,
			Name:     f.Name,
			ParentID: f.ParentID,
		}
	}

	var loose []DocumentNode
	for _, d := range documents {
		doc := DocumentNode{ID: d.ID, Title: d.Title, Content: d.Content}
		if d.FolderID == nil {
			loose = append(loose, doc)
			continue
		}
		if folder, ok := byID[*d.FolderID]; ok {
			folder.Documents = append(folder.Documents, doc)
		}
	}

	var roots []*FolderTreeNode
	if len(loose) > 0 {
		roots = append(roots, &FolderTreeNode{ID: RootID, Documents: loose})
	}
	// Iterate the input slice, not the map, so sibling order is stable.
	parentOf := make(map[*FolderTreeNode]*FolderTreeNode, len(folders))
	for _, f := range folders {
		node := byID[f.ID]
		if f.ParentID != nil {
			if parent, ok := byID[*f.ParentID]; ok && parent != node {
				parent.Folders = append(parent.Folders, node)
				parentOf[node] = parent
				continue
			}
		}
		roots = append(roots, node)
	}

	// Folders on a parent cycle are unreachable from any root. Cut each
	// one loose from its parent and promote it.
	reached := make(map[*FolderTreeNode]bool, len(folders))
	for _, r := range roots {
		markReached(r, reached)
	}
	for _, f := range folders {
		node := byID[f.ID]
		if reached[node] {
			continue
		}
		if parent := parentOf[node]; parent != nil {
			parent.Folders = removeFolder(parent.Folders, node)
			node.ParentID = nil
		}
		roots = append(roots, node)
		markReached(node, reached)
	}
	return roots
}

func markReached(n *FolderTreeNode, reached map[*FolderTreeNode]bool) {
	if reached[n] {
		return
	}
	reached[n] = true
	for _, c := range n.Folders {
		markReached(c, reached)
	}
}

func removeFolder(list []*FolderTreeNode, n *FolderTreeNode) []*FolderTreeNode {
	out := list[:0]
	for _, c := range list {
		if c != n {
			out = append(out, c)
		}
	}
	return out
}
