package materialize

import (
	"fmt"
	"io"
	"time"

	"github.com/dgallion1/prose/internal/doctree"
	"github.com/klauspost/compress/zip"
)

// WriteZip writes files as a deflated zip archive, preserving their
// relative paths.
func WriteZip(w io.Writer, files []doctree.ExportedFile) error {
	zw := zip.NewWriter(w)
	now := time.Now()
	for _, file := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     file.RelativePath,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return fmt.Errorf("add %s: %w", file.RelativePath, err)
		}
		if _, err := io.WriteString(fw, file.Content); err != nil {
			return fmt.Errorf("write %s: %w", file.RelativePath, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}
	return nil
}
