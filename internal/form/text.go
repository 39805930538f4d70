package form

import (
	"strings"

	"github.com/dcdoc/dcform-cli/internal/docx"
)

// ExtractText returns the document's visible text: non-empty body paragraphs
// first, then the text of each unique table cell, one entry per line.
func ExtractText(doc *docx.Document) string {
	var parts []string
	for _, p := range doc.Paragraphs() {
		if t := strings.TrimSpace(p.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	for _, table := range doc.Tables() {
		for _, row := range table.Rows() {
			for _, gc := range rowCells(row) {
				if t := cellText(gc.cell); t != "" {
					parts = append(parts, t)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}
