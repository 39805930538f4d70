package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// CellType classifies a candidate cell for tag insertion.
type CellType string

// Cell types.
const (
	CellEmpty     CellType = "empty"      // no visible text; the tag becomes the whole cell
	CellLabelOnly CellType = "label_only" // label text such as "성분명:"; the tag is appended
)

// UnknownKey is the placeholder key given to a cell the classifier could not map.
const UnknownKey = "unknown"

// CellCoord addresses a table cell by zero-based table, row and grid column.
type CellCoord struct {
	Table int `json:"table_index" yaml:"table_index"`
	Row   int `json:"row_index" yaml:"row_index"`
	Cell  int `json:"cell_index" yaml:"cell_index"`
}

// ID returns the compact identifier used in classifier prompts, e.g. "T0R3C1".
func (c CellCoord) ID() string {
	return fmt.Sprintf("T%dR%dC%d", c.Table, c.Row, c.Cell)
}

// String implements fmt.Stringer.
func (c CellCoord) String() string {
	return c.ID()
}

// ParseCellID parses a "T{table}R{row}C{cell}" identifier.
func ParseCellID(id string) (CellCoord, error) {
	var c CellCoord
	n, err := fmt.Sscanf(strings.TrimSpace(id), "T%dR%dC%d", &c.Table, &c.Row, &c.Cell)
	if err != nil || n != 3 {
		return CellCoord{}, eris.Errorf("model: invalid cell id %q", id)
	}
	if c.Table < 0 || c.Row < 0 || c.Cell < 0 || c.ID() != strings.TrimSpace(id) {
		return CellCoord{}, eris.Errorf("model: invalid cell id %q", id)
	}
	return c, nil
}

// TaggableCell is a candidate cell found by the scanner. Question carries the
// contextual label text used to choose a key; CurrentText is the cell's
// existing text ("" for empty cells).
type TaggableCell struct {
	CellCoord
	Question    string   `json:"question" yaml:"question"`
	CurrentText string   `json:"current_text" yaml:"current_text"`
	Type        CellType `json:"cell_type" yaml:"cell_type"`
}

// CellTagMapping is a proposed key for one candidate cell.
type CellTagMapping struct {
	CellCoord
	Question       string     `json:"question" yaml:"question"`
	PlaceholderKey string     `json:"placeholder_key" yaml:"placeholder_key"`
	Confidence     Confidence `json:"confidence" yaml:"confidence"`
}

// IsUnknown reports whether the mapping needs a manual decision.
func (m CellTagMapping) IsUnknown() bool {
	return m.PlaceholderKey == "" || m.PlaceholderKey == UnknownKey
}

// FallbackMapping returns the unknown/low mapping for a cell.
func FallbackMapping(c TaggableCell) CellTagMapping {
	return CellTagMapping{
		CellCoord:      c.CellCoord,
		Question:       c.Question,
		PlaceholderKey: UnknownKey,
		Confidence:     ConfidenceLow,
	}
}

// Tag renders the literal placeholder token for key.
func Tag(key string) string {
	return "{{" + key + "}}"
}
