package importer

import (
	"fmt"
	"strings"
)

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`%`, `\%`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// Escape makes plain text safe to embed in LaTeX body text.
func Escape(s string) string {
	return latexEscaper.Replace(s)
}

// Section is a heading with its body and nested subsections. Title and
// Blocks hold LaTeX, already escaped.
type Section struct {
	Title    string
	Starred  bool
	Blocks   []string
	Sections []*Section
}

// Outline is a converted document: blocks before the first heading, then
// the heading tree.
type Outline struct {
	Blocks   []string
	Sections []*Section
}

// Empty reports whether the outline has no content at all.
func (o *Outline) Empty() bool {
	return len(o.Blocks) == 0 && len(o.Sections) == 0
}

var sectionCommands = []string{"section", "subsection", "subsubsection", "paragraph", "subparagraph"}

// Render emits the outline as a LaTeX fragment suitable for \input.
func (o *Outline) Render() string {
	var b strings.Builder
	writeBlocks(&b, o.Blocks)
	for _, s := range o.Sections {
		s.render(&b, 1)
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return ""
	}
	return out + "\n"
}

func (s *Section) render(b *strings.Builder, depth int) {
	cmd := sectionCommands[min(depth, len(sectionCommands))-1]
	if s.Starred {
		cmd += "*"
	}
	fmt.Fprintf(b, "\\%s{%s}\n\n", cmd, s.Title)
	writeBlocks(b, s.Blocks)
	for _, c := range s.Sections {
		c.render(b, depth+1)
	}
}

func writeBlocks(b *strings.Builder, blocks []string) {
	for _, blk := range blocks {
		b.WriteString(blk)
		b.WriteString("\n\n")
	}
}

// outlineBuilder nests sections by heading level with a stack: a heading
// closes every open section of the same or deeper level.
type outlineBuilder struct {
	out   Outline
	stack []stackEntry
}

type stackEntry struct {
	section *Section
	level   int
}

func (ob *outlineBuilder) heading(level int, title string) {
	for len(ob.stack) > 0 && ob.stack[len(ob.stack)-1].level >= level {
		ob.stack = ob.stack[:len(ob.stack)-1]
	}
	s := &Section{Title: title}
	if len(ob.stack) == 0 {
		ob.out.Sections = append(ob.out.Sections, s)
	} else {
		parent := ob.stack[len(ob.stack)-1].section
		parent.Sections = append(parent.Sections, s)
	}
	ob.stack = append(ob.stack, stackEntry{section: s, level: level})
}

func (ob *outlineBuilder) block(latex string) {
	latex = strings.TrimSpace(latex)
	if latex == "" {
		return
	}
	if len(ob.stack) == 0 {
		ob.out.Blocks = append(ob.out.Blocks, latex)
		return
	}
	top := ob.stack[len(ob.stack)-1].section
	top.Blocks = append(top.Blocks, latex)
}

func (ob *outlineBuilder) outline() *Outline {
	return &ob.out
}

// environment wraps body in \begin{name} ... \end{name}.
func environment(name, body string) string {
	return "\\begin{" + name + "}\n" + strings.TrimSpace(body) + "\n\\end{" + name + "}"
}

// HasDocumentClass reports whether src already declares a document class.
func HasDocumentClass(src string) bool {
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "%") {
			continue
		}
		if strings.Contains(line, `\documentclass`) {
			return true
		}
	}
	return false
}

// WrapStandalone turns a body fragment into a compilable article.
func WrapStandalone(body string) string {
	var b strings.Builder
	b.WriteString("\\documentclass{article}\n")
	b.WriteString("\\usepackage[utf8]{inputenc}\n")
	b.WriteString("\\usepackage[T1]{fontenc}\n")
	b.WriteString("\n\\begin{document}\n\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n\n\\end{document}\n")
	return b.String()
}
