package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcdoc/dcform-cli/internal/docx/docxtest"
	"github.com/dcdoc/dcform-cli/internal/model"
)

func TestTaggedCells(t *testing.T) {
	t.Parallel()

	wide := `<w:tc><w:tcPr><w:gridSpan w:val="2"/></w:tcPr>` + docxtest.P("{{cost_", "effectiveness}}") + `</w:tc>`
	doc := openDoc(t, docxtest.Tbl(
		docxtest.Tr(docxtest.TcText("효능: {{efficacy}}"), docxtest.TcText("plain"), docxtest.TcText("")),
		docxtest.Tr(docxtest.TcText("비용"), wide),
	))

	cells, keys := TaggedCells(doc)
	require.Len(t, cells, 2)

	assert.Equal(t, model.TaggableCell{
		CellCoord:   model.CellCoord{Table: 0, Row: 0, Cell: 0},
		Question:    "효능:",
		CurrentText: "효능:",
		Type:        model.CellLabelOnly,
	}, cells[0])
	assert.Equal(t, model.TaggableCell{
		CellCoord: model.CellCoord{Table: 0, Row: 1, Cell: 1},
		Question:  "비용",
		Type:      model.CellEmpty,
	}, cells[1])

	assert.Equal(t, map[model.CellCoord]string{
		{Table: 0, Row: 0, Cell: 0}: "efficacy",
		{Table: 0, Row: 1, Cell: 1}: "cost_effectiveness",
	}, keys)
}

func TestTaggedCells_Untagged(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.TextTable([][]string{{"a:", ""}}))
	cells, keys := TaggedCells(doc)
	assert.Empty(t, cells)
	assert.Empty(t, keys)
}

func TestTaggedCells_FeedsReinsert(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.TextTable([][]string{{"효능: {{efficacy}}", "{{safety}}"}}))
	cells, keys := TaggedCells(doc)
	require.Len(t, cells, 2)

	StripPlaceholderTags(doc)
	var assignments []Assignment
	for _, c := range cells {
		key := keys[c.CellCoord]
		if key == "efficacy" {
			key = "efficacy_summary"
		}
		assignments = append(assignments, Assignment{Cell: c, Key: key})
	}
	_, err := InsertPlaceholderTags(doc, assignments)
	require.NoError(t, err)

	assert.Equal(t, []string{"efficacy_summary", "safety"}, FindPlaceholders(doc))
	assert.Equal(t, "효능: {{efficacy_summary}}", cellTextAt(t, doc, 0, 0, 0))
}

func TestExtractText(t *testing.T) {
	t.Parallel()

	wide := `<w:tc><w:tcPr><w:gridSpan w:val="2"/></w:tcPr>` + docxtest.P("merged") + `</w:tc>`
	doc := openDoc(t, docxtest.P("  Title  ")+docxtest.P("")+docxtest.Tbl(
		docxtest.Tr(docxtest.TcText("a"), docxtest.TcText("")),
		docxtest.Tr(wide),
	))
	assert.Equal(t, "Title\na\nmerged", ExtractText(doc))
}

func TestCandidateCells(t *testing.T) {
	t.Parallel()

	untagged := openDoc(t, docxtest.TextTable([][]string{{"성분명", ""}}))
	cells, keys := CandidateCells(untagged)
	require.Len(t, cells, 1)
	assert.Equal(t, model.CellEmpty, cells[0].Type)
	assert.Nil(t, keys)

	tagged := openDoc(t, docxtest.TextTable([][]string{{"성분명", "{{drug_name}}"}}))
	cells, keys = CandidateCells(tagged)
	require.Len(t, cells, 1)
	assert.Equal(t, "성분명", cells[0].Question)
	assert.Equal(t, "drug_name", keys[cells[0].CellCoord])
}
