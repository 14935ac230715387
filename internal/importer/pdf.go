package importer

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFConverter extracts PDF text, one starred section per page. It tries
// the Go library first, then falls back to pdftotext if enabled.
type PDFConverter struct {
	FallbackPdftotext bool
}

func (c *PDFConverter) Convert(r io.Reader, filename string) (string, error) {
	return render(c.Parse(r, filename))
}

func (c *PDFConverter) Parse(r io.Reader, _ string) (*Outline, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	text, err := extractPDFText(data)
	if err != nil && c.FallbackPdftotext {
		text, err = extractPdftotext(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var ob outlineBuilder
	for i, page := range strings.Split(text, "\f") {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		ob.heading(1, fmt.Sprintf("Page %d", i+1))
		ob.out.Sections[len(ob.out.Sections)-1].Starred = true
		for _, para := range splitParagraphs(page) {
			ob.block(Escape(para))
		}
	}
	return ob.outline(), nil
}

func extractPDFText(data []byte) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("malformed pdf: %v", p)
		}
	}()
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(data []byte) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitParagraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
