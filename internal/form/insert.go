package form

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/model"
)

// Assignment pairs a candidate cell with the key accepted for it. An empty
// Key means "leave this cell alone".
type Assignment struct {
	Cell model.TaggableCell `json:"cell" yaml:"cell"`
	Key  string             `json:"key" yaml:"key"`
}

// TagText returns the text the cell holds once the assignment is applied:
// the bare tag for an EMPTY cell, or the label, one space and the tag for a
// LABEL_ONLY cell.
func (a Assignment) TagText() string {
	tag := model.Tag(strings.TrimSpace(a.Key))
	if a.Cell.Type == model.CellLabelOnly {
		return a.Cell.CurrentText + " " + tag
	}
	return tag
}

// InsertPlaceholderTags writes a {{key}} tag into every assigned cell and
// returns the serialized document. Assignments with an empty key are
// skipped, as are keys that could not be read back as a placeholder.
//
// Inserting into a document that is already tagged doubles the tags; run
// StripPlaceholderTags first to re-tag.
func InsertPlaceholderTags(doc *docx.Document, assignments []Assignment) ([]byte, error) {
	fills := make(map[model.CellCoord]string, len(assignments))
	for _, a := range assignments {
		key := strings.TrimSpace(a.Key)
		if key == "" {
			continue
		}
		if !IsValidKey(key) {
			zap.L().Warn("form: skipping invalid placeholder key",
				zap.String("cell_id", a.Cell.ID()),
				zap.String("key", key),
			)
			continue
		}
		fills[a.Cell.CellCoord] = a.TagText()
	}

	n := FillCells(doc, fills)
	zap.L().Info("form: inserted placeholder tags",
		zap.Int("assignments", len(assignments)),
		zap.Int("written", n),
	)
	return doc.Bytes()
}

// FillCells writes text into the cells at the given coordinates and returns
// the number of cells written. The first paragraph of the cell is collapsed
// to one run keeping its first run's formatting; remaining paragraphs are
// left in place. Coordinates outside the document are logged and skipped.
func FillCells(doc *docx.Document, fills map[model.CellCoord]string) int {
	coords := make([]model.CellCoord, 0, len(fills))
	for c := range fills {
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Cell < b.Cell
	})

	tables := doc.Tables()
	written := 0
	for _, coord := range coords {
		text := fills[coord]
		if coord.Table < 0 || coord.Table >= len(tables) {
			zap.L().Warn("form: fill target table out of range",
				zap.String("cell_id", coord.ID()),
				zap.Int("tables", len(tables)),
			)
			continue
		}
		cell, err := tables[coord.Table].Cell(coord.Row, coord.Cell)
		if err != nil {
			zap.L().Warn("form: fill target cell not found",
				zap.String("cell_id", coord.ID()),
				zap.Error(err),
			)
			continue
		}

		paras := cell.Paragraphs()
		if len(paras) == 0 {
			zap.L().Warn("form: cell has no paragraphs, writing plain text",
				zap.String("cell_id", coord.ID()),
			)
			cell.SetText(text)
		} else {
			paras[0].SetText(text)
		}
		written++
	}
	return written
}
