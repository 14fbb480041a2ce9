package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

type Column struct {
	Header string
	Width  int
	Align  Alignment
}

// Table renders fixed-width columns. Widths are terminal cells, so layer
// names with wide characters still line up.
type Table struct {
	columns []Column
	rows    [][]string
	indent  int
	rule    bool
}

func NewTable() *Table {
	return &Table{
		indent: 2,
	}
}

func (t *Table) Indent(spaces int) *Table {
	t.indent = spaces
	return t
}

// Rule draws a line under the header.
func (t *Table) Rule() *Table {
	t.rule = true
	return t
}

func (t *Table) AddColumn(header string, width int, align Alignment) *Table {
	t.columns = append(t.columns, Column{
		Header: header,
		Width:  width,
		Align:  align,
	})
	return t
}

func (t *Table) AddRow(values ...string) *Table {
	t.rows = append(t.rows, values)
	return t
}

func (t *Table) formatCell(value string, col Column) string {
	if runewidth.StringWidth(value) > col.Width {
		tail := "..."
		if col.Width <= len(tail) {
			tail = ""
		}
		value = runewidth.Truncate(value, col.Width, tail)
	}

	if col.Align == AlignRight {
		return runewidth.FillLeft(value, col.Width)
	}
	return runewidth.FillRight(value, col.Width)
}

func (t *Table) width() int {
	w := 0
	for i, col := range t.columns {
		if i > 0 {
			w += 2
		}
		w += col.Width
	}
	return w
}

func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	var b strings.Builder
	indent := strings.Repeat(" ", t.indent)
	gap := "  "

	b.WriteString(indent)
	for i, col := range t.columns {
		if i > 0 {
			b.WriteString(gap)
		}
		b.WriteString(Header(t.formatCell(col.Header, col)))
	}
	b.WriteString("\n")

	if t.rule {
		b.WriteString(indent)
		b.WriteString(Muted(strings.Repeat("─", t.width())))
		b.WriteString("\n")
	}

	for _, row := range t.rows {
		b.WriteString(indent)
		for i, col := range t.columns {
			if i > 0 {
				b.WriteString(gap)
			}
			value := ""
			if i < len(row) {
				value = row[i]
			}
			b.WriteString(t.formatCell(value, col))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (t *Table) String() string {
	return t.Render()
}
