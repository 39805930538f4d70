package form

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/model"
)

// TaggedCells reads back the cells of an already-tagged template so their
// keys can be reviewed and edited. For every unique cell holding at least one
// tag it returns the cell as it looked before tagging, plus the cell's first
// key. A cell whose text is only the tag is EMPTY; otherwise it is LABEL_ONLY
// with the tag-free text as its label.
func TaggedCells(doc *docx.Document) ([]model.TaggableCell, map[model.CellCoord]string) {
	var cells []model.TaggableCell
	keys := make(map[model.CellCoord]string)

	for ti, table := range doc.Tables() {
		seen := make(map[int]bool)
		for ri, row := range table.Rows() {
			unique := rowCells(row)

			bare := make([]string, len(unique))
			found := make([][]string, len(unique))
			var labels []string
			for i, gc := range unique {
				raw := cellRunText(gc.cell)
				found[i] = KeysIn(raw)
				bare[i] = strings.TrimSpace(norm.NFC.String(strippable.ReplaceAllString(raw, "")))
				if bare[i] != "" {
					labels = append(labels, bare[i])
				}
			}

			for i, gc := range unique {
				if len(found[i]) == 0 || seen[gc.cell.ID()] {
					continue
				}
				seen[gc.cell.ID()] = true

				coord := model.CellCoord{Table: ti, Row: ri, Cell: gc.col}
				cell := model.TaggableCell{CellCoord: coord, Type: model.CellEmpty}
				if bare[i] == "" {
					cell.Question = strings.Join(labels, QuestionSeparator)
				} else {
					cell.Type = model.CellLabelOnly
					cell.Question = bare[i]
					cell.CurrentText = bare[i]
				}
				cells = append(cells, cell)
				keys[coord] = found[i][0]
			}
		}
	}
	return cells, keys
}

// cellRunText joins the run text of the cell's paragraphs with newlines.
func cellRunText(c *docx.Cell) string {
	paras := c.Paragraphs()
	parts := make([]string, len(paras))
	for i, p := range paras {
		parts[i] = p.RunText()
	}
	return strings.Join(parts, "\n")
}

// CandidateCells returns the cells to classify. For a document that already
// carries placeholder tags these are its tagged cells with their current
// keys; otherwise they are the detected empty and label-only cells and keys
// is nil.
func CandidateCells(doc *docx.Document) (cells []model.TaggableCell, keys map[model.CellCoord]string) {
	if len(FindPlaceholders(doc)) > 0 {
		return TaggedCells(doc)
	}
	return DetectTaggableCells(doc), nil
}
