package importer

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownConverter handles Markdown files using goldmark.
type MarkdownConverter struct{}

func (c *MarkdownConverter) Convert(r io.Reader, filename string) (string, error) {
	return render(c.Parse(r, filename))
}

func (c *MarkdownConverter) Parse(r io.Reader, _ string) (*Outline, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var ob outlineBuilder
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			ob.heading(h.Level, mdInline(h, src))
			continue
		}
		ob.block(mdBlock(n, src))
	}
	return ob.outline(), nil
}

// mdBlock renders a block-level node.
func mdBlock(n ast.Node, src []byte) string {
	switch node := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return mdInline(node, src)
	case *ast.Heading:
		// Only reachable inside quotes and lists.
		return `\textbf{` + mdInline(node, src) + `}`
	case *ast.List:
		env := "itemize"
		if node.IsOrdered() {
			env = "enumerate"
		}
		var b strings.Builder
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			var parts []string
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				if s := mdBlock(c, src); s != "" {
					parts = append(parts, s)
				}
			}
			b.WriteString(`\item ` + strings.Join(parts, "\n") + "\n")
		}
		return environment(env, b.String())
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return environment("verbatim", string(rawLines(node, src)))
	case *ast.Blockquote:
		var parts []string
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			if s := mdBlock(c, src); s != "" {
				parts = append(parts, s)
			}
		}
		return environment("quote", strings.Join(parts, "\n\n"))
	case *ast.ThematicBreak:
		return `\noindent\rule{\linewidth}{0.4pt}`
	case *ast.HTMLBlock:
		return ""
	default:
		return Escape(extractText(n, src))
	}
}

// mdInline renders the inline children of n.
func mdInline(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			b.WriteString(Escape(string(node.Segment.Value(src))))
			switch {
			case node.HardLineBreak():
				b.WriteString("\\\\\n")
			case node.SoftLineBreak():
				b.WriteByte('\n')
			}
		case *ast.String:
			b.WriteString(Escape(string(node.Value)))
		case *ast.Emphasis:
			cmd := `\emph{`
			if node.Level >= 2 {
				cmd = `\textbf{`
			}
			b.WriteString(cmd + mdInline(node, src) + "}")
		case *ast.CodeSpan:
			b.WriteString(`\texttt{` + Escape(extractText(node, src)) + "}")
		case *ast.Link:
			b.WriteString(mdInline(node, src))
			b.WriteString(` (\texttt{` + Escape(string(node.Destination)) + "})")
		case *ast.AutoLink:
			b.WriteString(`\texttt{` + Escape(string(node.URL(src))) + "}")
		case *ast.Image:
			b.WriteString(mdInline(node, src))
		case *ast.RawHTML:
		default:
			b.WriteString(mdInline(node, src))
		}
	}
	return strings.TrimSpace(b.String())
}

func rawLines(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.Bytes()
}

// extractText gets the plain text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		return strings.TrimSpace(string(rawLines(n, src)))
	}
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
