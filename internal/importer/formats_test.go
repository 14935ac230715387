package importer

import (
	"strings"
	"testing"
)

func TestHTMLConverter_Headings(t *testing.T) {
	input := `<html><head><title>Ignored</title><style>p{}</style></head>
<body>
<nav>menu</nav>
<h1>Report</h1>
<p>Intro   with
  spaces &amp; ampersand.</p>
<h2>Findings</h2>
<ul><li>first</li><li>second</li></ul>
<script>alert(1)</script>
</body></html>`
	out, err := (&HTMLConverter{}).Parse(strings.NewReader(input), "report.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Sections) != 1 || out.Sections[0].Title != "Report" {
		t.Fatalf("expected one Report section, got %+v", out.Sections)
	}
	report := out.Sections[0]
	if len(report.Blocks) != 1 || report.Blocks[0] != `Intro with spaces \& ampersand.` {
		t.Errorf("unexpected blocks %q", report.Blocks)
	}
	if len(report.Sections) != 1 || len(report.Sections[0].Blocks) != 2 {
		t.Errorf("expected Findings with two list blocks, got %+v", report.Sections)
	}
	rendered := out.Render()
	for _, bad := range []string{"menu", "alert", "p{}"} {
		if strings.Contains(rendered, bad) {
			t.Errorf("non-content %q leaked into output", bad)
		}
	}
}

func TestCSVConverter_Batches(t *testing.T) {
	var b strings.Builder
	b.WriteString("name,amount\n")
	for i := range 25 {
		b.WriteString("item_" + string(rune('a'+i)) + ",10%\n")
	}
	out, err := (&CSVConverter{}).Parse(strings.NewReader(b.String()), "data.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Sections) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(out.Sections))
	}
	if out.Sections[0].Title != "Rows 2--21" || out.Sections[1].Title != "Rows 22--26" {
		t.Errorf("unexpected titles %q, %q", out.Sections[0].Title, out.Sections[1].Title)
	}
	if !out.Sections[0].Starred {
		t.Error("expected unnumbered batch sections")
	}
	table := out.Sections[0].Blocks[0]
	if !strings.HasPrefix(table, `\begin{tabular}{|l|l|}`) {
		t.Errorf("unexpected table header %q", table)
	}
	if !strings.Contains(table, `item\_a & 10\% \\`) {
		t.Errorf("expected escaped row in %q", table)
	}
	if strings.Count(table, `\\`) != 21 {
		t.Errorf("expected header plus 20 rows, got %d", strings.Count(table, `\\`))
	}
}

func TestCSVConverter_RaggedRows(t *testing.T) {
	out, err := (&CSVConverter{}).Parse(strings.NewReader("a,b\n1,2,3\n4\n"), "r.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table := out.Sections[0].Blocks[0]
	if !strings.Contains(table, "{|l|l|l|}") {
		t.Errorf("expected 3 columns, got %q", table)
	}
	if !strings.Contains(table, `4 &  &  \\`) {
		t.Errorf("expected padded row, got %q", table)
	}
}

func TestCSVConverter_HeaderOnly(t *testing.T) {
	got, err := (&CSVConverter{}).Convert(strings.NewReader("a,b\n"), "h.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, `a & b \\`) || strings.Contains(got, `\section`) {
		t.Errorf("unexpected output %q", got)
	}
}

func TestPDFConverter_RejectsGarbage(t *testing.T) {
	if _, err := (&PDFConverter{}).Convert(strings.NewReader("not a pdf"), "x.pdf"); err == nil {
		t.Error("expected error for invalid pdf")
	}
}

func TestDOCXConverter_RejectsGarbage(t *testing.T) {
	if _, err := (&DOCXConverter{}).Convert(strings.NewReader("not a zip"), "x.docx"); err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestForFile(t *testing.T) {
	cases := map[string]any{
		"a.tex":      &VerbatimConverter{},
		"refs.BIB":   &VerbatimConverter{},
		"notes.txt":  &TextConverter{},
		"README.md":  &MarkdownConverter{},
		"x.markdown": &MarkdownConverter{},
		"d.csv":      &CSVConverter{},
		"p.htm":      &HTMLConverter{},
		"s.pdf":      &PDFConverter{},
		"w.docx":     &DOCXConverter{},
	}
	for name, want := range cases {
		c, err := ForFile(name, ConvertOptions{})
		if err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
			continue
		}
		if gotType, wantType := typeName(c), typeName(want); gotType != wantType {
			t.Errorf("%s: expected %s, got %s", name, wantType, gotType)
		}
	}
	if _, err := ForFile("image.png", ConvertOptions{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *VerbatimConverter:
		return "verbatim"
	case *TextConverter:
		return "text"
	case *MarkdownConverter:
		return "markdown"
	case *CSVConverter:
		return "csv"
	case *HTMLConverter:
		return "html"
	case *PDFConverter:
		return "pdf"
	case *DOCXConverter:
		return "docx"
	}
	return "unknown"
}

func TestDocumentTitle(t *testing.T) {
	cases := map[string]string{
		"main.tex":            "main.tex",
		"refs.bib":            "refs.bib",
		"chapters/intro.md":   "intro.tex",
		"notes.txt":           "notes.tex",
		"Report.final.docx":   "Report.final.tex",
		`windows\style\x.sty`: "x.sty",
	}
	for in, want := range cases {
		if got := DocumentTitle(strings.ReplaceAll(in, `\`, "/")); got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestHasDocumentClass(t *testing.T) {
	if !HasDocumentClass("\\documentclass[12pt]{report}\n\\begin{document}") {
		t.Error("expected document class to be detected")
	}
	if HasDocumentClass("% \\documentclass{article}\nbody") {
		t.Error("commented-out document class must not count")
	}
	if HasDocumentClass("\\section{Intro}") {
		t.Error("fragment has no document class")
	}
}

func TestWrapStandalone(t *testing.T) {
	got := WrapStandalone("Hello.")
	if !strings.HasPrefix(got, `\documentclass{article}`) {
		t.Errorf("expected article preamble, got %q", got)
	}
	if !strings.Contains(got, "\\begin{document}\n\nHello.\n\n\\end{document}") {
		t.Errorf("expected body inside document, got %q", got)
	}
}
