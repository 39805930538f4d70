// Package sheet moves tagging data in and out of spreadsheets: the review
// workbook where proposed tag mappings are checked by hand, and the answers
// workbook that feeds placeholder substitution.
package sheet

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/form"
	"github.com/dcdoc/dcform-cli/internal/model"
)

// ReviewSheet is the sheet name used in review workbooks.
const ReviewSheet = "review"

// Review workbook columns. AcceptedKey is the only column a reviewer edits.
const (
	ColCellID      = "cell_id"
	ColTable       = "table_index"
	ColRow         = "row_index"
	ColCell        = "cell_index"
	ColType        = "cell_type"
	ColQuestion    = "question"
	ColCurrentText = "current_text"
	ColProposedKey = "proposed_key"
	ColConfidence  = "confidence"
	ColAcceptedKey = "accepted_key"
)

var reviewHeader = []string{
	ColCellID, ColTable, ColRow, ColCell, ColType, ColQuestion,
	ColCurrentText, ColProposedKey, ColConfidence, ColAcceptedKey,
}

// WriteReview writes one row per cell to a review workbook. The proposal
// for a cell is looked up by coordinate; accepted_key starts as the
// proposed key unless the proposal is unknown, in which case the reviewer
// has to fill it in.
func WriteReview(w io.Writer, cells []model.TaggableCell, mappings []model.CellTagMapping) error {
	byCoord := make(map[model.CellCoord]model.CellTagMapping, len(mappings))
	for _, m := range mappings {
		byCoord[m.CellCoord] = m
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(ReviewSheet)
	if err != nil {
		return eris.Wrap(err, "sheet: add review sheet")
	}
	addRow(sheet, reviewHeader)

	for _, c := range cells {
		m, ok := byCoord[c.CellCoord]
		if !ok {
			m = model.FallbackMapping(c)
		}
		accepted := m.PlaceholderKey
		if m.IsUnknown() {
			accepted = ""
		}
		addRow(sheet, []string{
			c.ID(),
			strconv.Itoa(c.Table),
			strconv.Itoa(c.Row),
			strconv.Itoa(c.Cell),
			string(c.Type),
			c.Question,
			c.CurrentText,
			m.PlaceholderKey,
			m.Confidence.String(),
			accepted,
		})
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "sheet: write review workbook")
	}
	return nil
}

// ReadReview reads a review workbook back into assignments. Rows with an
// empty accepted_key are skipped; so are rows accepting the unknown key.
func ReadReview(path string) ([]form.Assignment, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open review workbook")
	}
	return readReview(f)
}

// ReadReviewBytes is ReadReview for an in-memory workbook.
func ReadReviewBytes(data []byte) ([]form.Assignment, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "sheet: open review workbook")
	}
	return readReview(f)
}

func readReview(f *xlsx.File) ([]form.Assignment, error) {
	sheet, ok := f.Sheet[ReviewSheet]
	if !ok {
		return nil, eris.Errorf("sheet: review workbook has no %q sheet", ReviewSheet)
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.New("sheet: review sheet is empty")
	}

	cols, err := headerIndex(rowToStrings(sheet.Rows[0]), ColTable, ColRow, ColCell, ColType, ColAcceptedKey)
	if err != nil {
		return nil, err
	}

	var out []form.Assignment
	for i, row := range sheet.Rows[1:] {
		line := i + 2
		cells := rowToStrings(row)
		get := func(col string) string { return cellAt(cells, cols, col) }

		key := strings.TrimSpace(get(ColAcceptedKey))
		if key == "" {
			continue
		}
		if key == model.UnknownKey {
			zap.L().Debug("sheet: skipping row accepting unknown key", zap.Int("line", line))
			continue
		}

		coord, err := parseCoord(get(ColTable), get(ColRow), get(ColCell))
		if err != nil {
			return nil, eris.Wrapf(err, "sheet: review row %d", line)
		}
		typ := model.CellType(strings.TrimSpace(get(ColType)))
		if typ != model.CellEmpty && typ != model.CellLabelOnly {
			return nil, eris.Errorf("sheet: review row %d: unknown cell_type %q", line, typ)
		}

		out = append(out, form.Assignment{
			Cell: model.TaggableCell{
				CellCoord:   coord,
				Question:    get(ColQuestion),
				CurrentText: get(ColCurrentText),
				Type:        typ,
			},
			Key: key,
		})
	}

	zap.L().Info("sheet: read review workbook", zap.Int("assignments", len(out)))
	return out, nil
}

func parseCoord(table, row, cell string) (model.CellCoord, error) {
	var c model.CellCoord
	for _, p := range []struct {
		name string
		raw  string
		dst  *int
	}{
		{ColTable, table, &c.Table},
		{ColRow, row, &c.Row},
		{ColCell, cell, &c.Cell},
	} {
		n, err := strconv.Atoi(strings.TrimSpace(p.raw))
		if err != nil || n < 0 {
			return model.CellCoord{}, eris.Errorf("invalid %s %q", p.name, p.raw)
		}
		*p.dst = n
	}
	return c, nil
}

// headerIndex maps column names to positions and checks that every required
// column is present.
func headerIndex(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[h]; !dup && h != "" {
			idx[h] = i
		}
	}
	for _, r := range required {
		if _, ok := idx[r]; !ok {
			return nil, eris.Errorf("sheet: missing column %q", r)
		}
	}
	return idx, nil
}

func cellAt(cells []string, cols map[string]int, col string) string {
	i, ok := cols[col]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
