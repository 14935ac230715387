// Package entry finds the compilation root among flattened documents.
package entry

import (
	"path"
	"strings"

	"github.com/dgallion1/prose/internal/doctree"
)

// DefaultFilename is the conventional entry document name.
const DefaultFilename = "main.tex"

// Locate returns the directory, relative to the export root, that contains
// the first file whose base name equals filename exactly. An entry at the
// root yields "". When several files match, the first one in files wins.
func Locate(files []doctree.ExportedFile, filename string) (dir string, ok bool) {
	for _, f := range files {
		p := strings.ReplaceAll(f.RelativePath, "\\", "/")
		if path.Base(p) != filename {
			continue
		}
		dir = path.Dir(p)
		if dir == "." {
			dir = ""
		}
		return dir, true
	}
	return "", false
}
