package importer

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLConverter handles HTML files.
type HTMLConverter struct{}

func (c *HTMLConverter) Convert(r io.Reader, filename string) (string, error) {
	return render(c.Parse(r, filename))
}

func (c *HTMLConverter) Parse(r io.Reader, _ string) (*Outline, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var ob outlineBuilder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				ob.heading(level, Escape(textContent(n)))
				return // Don't recurse into heading children (already extracted text).
			}

			// Skip non-content elements.
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "p", "li", "td":
				ob.block(Escape(textContent(n)))
				return
			case "blockquote":
				if t := textContent(n); t != "" {
					ob.block(environment("quote", Escape(t)))
				}
				return
			case "pre":
				if t := rawText(n); strings.TrimSpace(t) != "" {
					ob.block(environment("verbatim", t))
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	// Find <body> or use whole document.
	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return ob.outline(), nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// textContent joins the text below n with whitespace collapsed.
func textContent(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
