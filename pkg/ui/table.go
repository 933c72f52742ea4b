package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows under a header with columns sized to their content
type Table struct {
	Headers []string
	Rows    [][]string
	// RightAlign marks numeric columns by index
	RightAlign map[int]bool
}

// NewTable creates a table with the given headers
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers, RightAlign: map[int]bool{}}
}

// AddRow adds a row; missing cells render empty
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render renders the table as a string
func (t *Table) Render() string {
	if len(t.Headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(StyleTableHeader.Render(t.line(t.Headers, widths)))
	b.WriteString("\n")

	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("─", w)
	}
	b.WriteString(StyleTableBorder.Render(strings.Join(rules, "  ")))
	b.WriteString("\n")

	for _, row := range t.Rows {
		b.WriteString(t.line(row, widths))
		b.WriteString("\n")
	}
	return b.String()
}

func (t *Table) line(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", max(0, w-lipgloss.Width(cell)))
		if t.RightAlign[i] {
			parts[i] = pad + cell
		} else {
			parts[i] = cell + pad
		}
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
