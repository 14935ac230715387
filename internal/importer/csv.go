package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// csvBatchSize is the number of data rows per table.
const csvBatchSize = 20

// CSVConverter renders CSV files as tables, one per batch of rows. The
// first record is the header and is repeated on every table.
type CSVConverter struct{}

func (c *CSVConverter) Convert(r io.Reader, filename string) (string, error) {
	return render(c.Parse(r, filename))
}

func (c *CSVConverter) Parse(r io.Reader, _ string) (*Outline, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var ob outlineBuilder
	if len(records) == 0 {
		return ob.outline(), nil
	}

	headers := records[0]
	cols := len(headers)
	for _, row := range records[1:] {
		cols = max(cols, len(row))
	}

	dataRows := records[1:]
	if len(dataRows) == 0 {
		ob.block(tabular(headers, nil, cols))
		return ob.outline(), nil
	}
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))
		ob.heading(1, fmt.Sprintf("Rows %d--%d", i+2, end+1)) // 1-indexed, skip header
		ob.out.Sections[len(ob.out.Sections)-1].Starred = true
		ob.block(tabular(headers, dataRows[i:end], cols))
	}
	return ob.outline(), nil
}

func tabular(headers []string, rows [][]string, cols int) string {
	var b strings.Builder
	b.WriteString("{|" + strings.Repeat("l|", cols) + "}\n\\hline\n")
	writeRow(&b, headers, cols)
	b.WriteString("\\hline\n")
	for _, row := range rows {
		writeRow(&b, row, cols)
	}
	if len(rows) > 0 {
		b.WriteString("\\hline\n")
	}
	return "\\begin{tabular}" + b.String() + "\\end{tabular}"
}

func writeRow(b *strings.Builder, row []string, cols int) {
	cells := make([]string, cols)
	for i := range cells {
		if i < len(row) {
			cells[i] = Escape(strings.TrimSpace(row[i]))
		}
	}
	b.WriteString(strings.Join(cells, " & ") + " \\\\\n")
}
