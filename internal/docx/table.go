package docx

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a single-level Word table resolved onto its column grid.
//
// Every physical w:tc element becomes one Cell in the table's arena. A row
// exposes one entry per grid column, so a horizontally merged cell
// (w:gridSpan) appears at every column it spans, and a vertical
// continuation (w:vMerge without "restart") resolves to the backing cell of
// the row above. Callers deduplicate merged positions by Cell.ID.
type Table struct {
	node  *node
	cells []*Cell
	rows  []*Row
}

// Row is one table row in grid-column order.
type Row struct {
	node *node
	grid []*Cell
}

// Cell is a physical table cell.
type Cell struct {
	id   int
	node *node
}

func newTable(n *node) *Table {
	t := &Table{node: n}

	var prev []*Cell
	for _, tr := range n.childrenNamed("w", "tr") {
		row := &Row{node: tr}
		for _, tc := range tr.childrenNamed("w", "tc") {
			span := gridSpan(tc)
			cont := isVMergeContinuation(tc)

			var own *Cell
			for i := 0; i < span; i++ {
				col := len(row.grid)
				if cont && col < len(prev) {
					row.grid = append(row.grid, prev[col])
					continue
				}
				if own == nil {
					own = &Cell{id: len(t.cells), node: tc}
					t.cells = append(t.cells, own)
				}
				row.grid = append(row.grid, own)
			}
		}
		t.rows = append(t.rows, row)
		prev = row.grid
	}
	return t
}

func gridSpan(tc *node) int {
	tcPr := tc.child("w", "tcPr")
	if tcPr == nil {
		return 1
	}
	gs := tcPr.child("w", "gridSpan")
	if gs == nil {
		return 1
	}
	v, _ := gs.attr("w", "val")
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func isVMergeContinuation(tc *node) bool {
	tcPr := tc.child("w", "tcPr")
	if tcPr == nil {
		return false
	}
	vm := tcPr.child("w", "vMerge")
	if vm == nil {
		return false
	}
	v, _ := vm.attr("w", "val")
	return v != "restart"
}

// Rows returns the table rows in document order.
func (t *Table) Rows() []*Row {
	return t.rows
}

// Cell returns the cell at the given row and grid column.
func (t *Table) Cell(row, col int) (*Cell, error) {
	if row < 0 || row >= len(t.rows) {
		return nil, eris.Errorf("docx: row index %d out of range (%d rows)", row, len(t.rows))
	}
	grid := t.rows[row].grid
	if col < 0 || col >= len(grid) {
		return nil, eris.Errorf("docx: cell index %d out of range (%d cells in row %d)", col, len(grid), row)
	}
	return grid[col], nil
}

// Cells returns the row's cells, one per grid column. Merged cells repeat.
func (r *Row) Cells() []*Cell {
	return r.grid
}

// ID identifies the physical cell within its table.
func (c *Cell) ID() int {
	return c.id
}

// Paragraphs returns the cell's direct paragraphs.
func (c *Cell) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, p := range c.node.childrenNamed("w", "p") {
		out = append(out, &Paragraph{node: p})
	}
	return out
}

// Text returns the text of the cell's paragraphs joined by newlines.
func (c *Cell) Text() string {
	paras := c.Paragraphs()
	parts := make([]string, len(paras))
	for i, p := range paras {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// SetText replaces the cell content with a single paragraph holding text.
// Cell properties (w:tcPr) are kept.
func (c *Cell) SetText(text string) {
	kept := c.node.children[:0]
	for _, ch := range c.node.children {
		if ch.is("w", "tcPr") {
			kept = append(kept, ch)
		}
	}
	c.node.children = kept

	p := newElement("w", "p")
	c.node.appendChild(p)
	(&Paragraph{node: p}).AddRun(text)
}
