package tagger

import (
	"github.com/dcdoc/dcform-cli/internal/form"
	"github.com/dcdoc/dcform-cli/internal/model"
)

// Accept turns proposed mappings into insert assignments. Unknown mappings
// and those below threshold are dropped, as are mappings for cells missing
// from cells.
func Accept(cells []model.TaggableCell, mappings []model.CellTagMapping, threshold model.Confidence) []form.Assignment {
	byCoord := make(map[model.CellCoord]model.TaggableCell, len(cells))
	for _, c := range cells {
		byCoord[c.CellCoord] = c
	}

	out := make([]form.Assignment, 0, len(mappings))
	for _, m := range mappings {
		if m.IsUnknown() || m.Confidence < threshold {
			continue
		}
		cell, ok := byCoord[m.CellCoord]
		if !ok {
			continue
		}
		out = append(out, form.Assignment{Cell: cell, Key: m.PlaceholderKey})
	}
	return out
}
