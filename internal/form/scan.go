package form

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/model"
)

// QuestionSeparator joins the label texts of a row into an empty cell's question.
const QuestionSeparator = " / "

// labelPattern matches single-line text ending in an ASCII or full-width
// colon or a closing parenthesis or bracket.
var labelPattern = regexp.MustCompile(`^.+[:：)\]）］]\s*$`)

// IsLabelOnly reports whether text reads as a bare field label, such as
// "성분명:" or "판매회사：".
func IsLabelOnly(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	return labelPattern.MatchString(t)
}

// DetectTaggableCells returns the cells of every table that can take a
// placeholder tag, in table, row, column order.
//
// Each row is collapsed to unique backing cells. Every empty cell yields an
// EMPTY candidate whose question is the row's non-empty texts joined by
// QuestionSeparator. Independently, every non-empty cell that reads as a label
// yields a LABEL_ONLY candidate carrying its own text.
func DetectTaggableCells(doc *docx.Document) []model.TaggableCell {
	var out []model.TaggableCell
	tables := doc.Tables()

	for ti, table := range tables {
		for ri, row := range table.Rows() {
			cells := rowCells(row)

			var labels []string
			var empty, nonEmpty []int
			texts := make([]string, len(cells))
			for i, gc := range cells {
				texts[i] = cellText(gc.cell)
				if texts[i] == "" {
					empty = append(empty, i)
				} else {
					nonEmpty = append(nonEmpty, i)
					labels = append(labels, texts[i])
				}
			}

			question := strings.Join(labels, QuestionSeparator)
			for _, i := range empty {
				out = append(out, model.TaggableCell{
					CellCoord: model.CellCoord{Table: ti, Row: ri, Cell: cells[i].col},
					Question:  question,
					Type:      model.CellEmpty,
				})
			}

			for _, i := range nonEmpty {
				if !IsLabelOnly(texts[i]) {
					continue
				}
				out = append(out, model.TaggableCell{
					CellCoord:   model.CellCoord{Table: ti, Row: ri, Cell: cells[i].col},
					Question:    texts[i],
					CurrentText: texts[i],
					Type:        model.CellLabelOnly,
				})
			}
		}
	}

	zap.L().Info("form: detected taggable cells",
		zap.Int("tables", len(tables)),
		zap.Int("cells", len(out)),
	)
	return out
}
