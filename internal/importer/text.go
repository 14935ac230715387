package importer

import (
	"bufio"
	"io"
	"strings"
)

// TextConverter handles plain text files. Blank lines separate paragraphs.
type TextConverter struct{}

func (c *TextConverter) Convert(r io.Reader, filename string) (string, error) {
	return render(c.Parse(r, filename))
}

func (c *TextConverter) Parse(r io.Reader, _ string) (*Outline, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var ob outlineBuilder
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				ob.block(current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(Escape(line))
		}
	}
	if current.Len() > 0 {
		ob.block(current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ob.outline(), nil
}
