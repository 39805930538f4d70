// Package form finds and rewrites the fillable parts of a DC submission form:
// candidate cells for tag insertion, {{key}} placeholders and their values.
//
// Every operation works on a *docx.Document owned by the caller for the
// duration of the call. Operations that return bytes serialize the mutated
// document but never touch the filesystem.
package form

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dcdoc/dcform-cli/internal/docx"
)

// gridCell is a unique backing cell of a row and the first grid column it
// was seen at.
type gridCell struct {
	col  int
	cell *docx.Cell
}

// rowCells collapses a row's per-column cells to unique backing cells in
// first-seen column order.
func rowCells(row *docx.Row) []gridCell {
	seen := make(map[int]bool)
	var out []gridCell
	for col, c := range row.Cells() {
		if seen[c.ID()] {
			continue
		}
		seen[c.ID()] = true
		out = append(out, gridCell{col: col, cell: c})
	}
	return out
}

// cellText returns the cell's visible text, NFC-normalized and trimmed.
func cellText(c *docx.Cell) string {
	return strings.TrimSpace(norm.NFC.String(c.Text()))
}

// walkParagraphs calls fn for every body paragraph, then for every paragraph
// of every table cell. A merged cell is visited once per table.
func walkParagraphs(doc *docx.Document, fn func(p *docx.Paragraph)) {
	for _, p := range doc.Paragraphs() {
		fn(p)
	}
	for _, t := range doc.Tables() {
		walkTableParagraphs(t, fn)
	}
}

func walkTableParagraphs(t *docx.Table, fn func(p *docx.Paragraph)) {
	seen := make(map[int]bool)
	for _, row := range t.Rows() {
		for _, c := range row.Cells() {
			if seen[c.ID()] {
				continue
			}
			seen[c.ID()] = true
			for _, p := range c.Paragraphs() {
				fn(p)
			}
		}
	}
}
