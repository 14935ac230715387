// Package importer converts uploaded files into LaTeX documents and writes
// them into a workspace.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Converter turns raw file bytes into LaTeX source.
type Converter interface {
	Convert(r io.Reader, filename string) (string, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".tex":      true,
	".bib":      true,
	".sty":      true,
	".cls":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// verbatimExtensions are LaTeX sources stored unchanged under their own
// name.
var verbatimExtensions = map[string]bool{
	".tex": true,
	".bib": true,
	".sty": true,
	".cls": true,
}

// ConvertOptions tunes individual converters.
type ConvertOptions struct {
	// PDFFallback shells out to pdftotext when the Go PDF reader fails.
	PDFFallback bool
}

// ForFile returns the appropriate converter for a filename.
func ForFile(filename string, opts ConvertOptions) (Converter, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".tex", ".bib", ".sty", ".cls":
		return &VerbatimConverter{}, nil
	case ".txt":
		return &TextConverter{}, nil
	case ".md", ".markdown":
		return &MarkdownConverter{}, nil
	case ".csv":
		return &CSVConverter{}, nil
	case ".html", ".htm":
		return &HTMLConverter{}, nil
	case ".pdf":
		return &PDFConverter{FallbackPdftotext: opts.PDFFallback}, nil
	case ".docx":
		return &DOCXConverter{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// IsVerbatim reports whether the file is kept as-is.
func IsVerbatim(filename string) bool {
	return verbatimExtensions[strings.ToLower(filepath.Ext(filename))]
}

// DocumentTitle is the workspace title for an uploaded file: LaTeX sources
// keep their name, everything else is renamed to .tex.
func DocumentTitle(filename string) string {
	base := filepath.Base(filepath.FromSlash(filename))
	if IsVerbatim(base) {
		return base
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".tex"
}

// VerbatimConverter passes LaTeX sources through unchanged.
type VerbatimConverter struct{}

func (c *VerbatimConverter) Convert(r io.Reader, _ string) (string, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(src), nil
}

func render(o *Outline, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return o.Render(), nil
}
