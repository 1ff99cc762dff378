package arguments

import (
	"strings"

	messages "github.com/cucumber/messages/go/v21"
	"github.com/mattn/go-runewidth"
)

// Table is the plain cell data of a step's DataTable, header row included.
type Table [][]string

// TableFromPickle copies the cells of a pickle DataTable.
func TableFromPickle(dt *messages.PickleTable) Table {
	if dt == nil || len(dt.Rows) == 0 {
		return Table{}
	}

	data := make(Table, len(dt.Rows))
	for i, row := range dt.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.Value
		}
		data[i] = cells
	}
	return data
}

// String renders the table as pipe-delimited rows with every column padded
// to its widest cell. Rows are separated by newlines, without a trailing one.
func (t Table) String() string {
	if len(t) == 0 {
		return ""
	}

	colWidths := make([]int, 0)
	for _, row := range t {
		for i, cell := range row {
			if i >= len(colWidths) {
				colWidths = append(colWidths, 0)
			}
			if w := runewidth.StringWidth(escapeCell(cell)); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	lines := make([]string, len(t))
	for rowIdx, row := range t {
		var b strings.Builder
		b.WriteString("|")
		for i, cell := range row {
			b.WriteString(" ")
			b.WriteString(runewidth.FillRight(escapeCell(cell), colWidths[i]))
			b.WriteString(" |")
		}
		lines[rowIdx] = b.String()
	}
	return strings.Join(lines, "\n")
}

var cellEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`, "\n", `\n`)

// escapeCell applies Gherkin's table escapes so a cell containing a pipe
// cannot be mistaken for a column boundary.
func escapeCell(cell string) string {
	return cellEscaper.Replace(cell)
}
