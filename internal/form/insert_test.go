package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/docx/docxtest"
	"github.com/dcdoc/dcform-cli/internal/model"
)

func cellTextAt(t *testing.T, doc *docx.Document, table, row, col int) string {
	t.Helper()
	c, err := doc.Tables()[table].Cell(row, col)
	require.NoError(t, err)
	return c.Text()
}

func TestInsertPlaceholderTags_EmptyCellRoundTrip(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.TextTable([][]string{{"안전성", ""}}))
	cells := DetectTaggableCells(doc)
	require.Len(t, cells, 1)

	out, err := InsertPlaceholderTags(doc, []Assignment{{Cell: cells[0], Key: "safety"}})
	require.NoError(t, err)

	tagged, err := docx.Open(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"safety"}, FindPlaceholders(tagged))
	assert.Equal(t, "{{safety}}", cellTextAt(t, tagged, 0, 0, 1))
}

func TestInsertPlaceholderTags_LabelCell(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.TextTable([][]string{{"효능:"}}))
	cells := DetectTaggableCells(doc)
	require.Len(t, cells, 1)
	require.Equal(t, model.CellLabelOnly, cells[0].Type)

	out, err := InsertPlaceholderTags(doc, []Assignment{{Cell: cells[0], Key: "efficacy"}})
	require.NoError(t, err)

	tagged, err := docx.Open(out)
	require.NoError(t, err)
	assert.Equal(t, "효능: {{efficacy}}", cellTextAt(t, tagged, 0, 0, 0))
}

func TestInsertPlaceholderTags_LabelKeepsFormatting(t *testing.T) {
	t.Parallel()

	cell := `<w:tc><w:p><w:r><w:rPr><w:rFonts w:eastAsia="맑은 고딕"/><w:b/></w:rPr><w:t>성분</w:t></w:r><w:r><w:t>명:</w:t></w:r></w:p></w:tc>`
	doc := openDoc(t, docxtest.Tbl(docxtest.Tr(cell)))
	cells := DetectTaggableCells(doc)
	require.Len(t, cells, 1)

	_, err := InsertPlaceholderTags(doc, []Assignment{{Cell: cells[0], Key: "ingredient"}})
	require.NoError(t, err)

	c, err := doc.Tables()[0].Cell(0, 0)
	require.NoError(t, err)
	runs := c.Paragraphs()[0].Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, "성분명: {{ingredient}}", runs[0].Text())
	f := runs[0].Format()
	assert.Equal(t, "맑은 고딕", f.FontName)
	require.NotNil(t, f.Bold)
	assert.True(t, *f.Bold)
}

func TestInsertPlaceholderTags_SkipsEmptyAndInvalidKeys(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.TextTable([][]string{{"a", "", ""}}))
	cells := DetectTaggableCells(doc)
	require.Len(t, cells, 2)

	out, err := InsertPlaceholderTags(doc, []Assignment{
		{Cell: cells[0], Key: "   "},
		{Cell: cells[1], Key: "not a key"},
	})
	require.NoError(t, err)

	tagged, err := docx.Open(out)
	require.NoError(t, err)
	assert.Empty(t, FindPlaceholders(tagged))
}

func TestInsertPlaceholderTags_DoublesWithoutStrip(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.TextTable([][]string{{"효능:"}}))
	cells := DetectTaggableCells(doc)
	_, err := InsertPlaceholderTags(doc, []Assignment{{Cell: cells[0], Key: "efficacy"}})
	require.NoError(t, err)

	again := DetectTaggableCells(doc)
	assert.Empty(t, again, "a tagged label no longer reads as a bare label")

	relabel := cells[0]
	relabel.CurrentText = cellTextAt(t, doc, 0, 0, 0)
	_, err = InsertPlaceholderTags(doc, []Assignment{{Cell: relabel, Key: "efficacy"}})
	require.NoError(t, err)
	assert.Equal(t, "효능: {{efficacy}} {{efficacy}}", cellTextAt(t, doc, 0, 0, 0))
}

func TestFillCells(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.Tbl(
		docxtest.Tr(docxtest.Tc(docxtest.P("q1"), docxtest.P("keep")), docxtest.TcText("")),
		docxtest.Tr(`<w:tc><w:tcPr/></w:tc>`, docxtest.TcText("x")),
	))

	n := FillCells(doc, map[model.CellCoord]string{
		{Table: 0, Row: 0, Cell: 0}: "first",
		{Table: 0, Row: 0, Cell: 1}: "answer",
		{Table: 0, Row: 1, Cell: 0}: "no paragraphs",
		{Table: 0, Row: 5, Cell: 0}: "row out of range",
		{Table: 3, Row: 0, Cell: 0}: "table out of range",
	})
	assert.Equal(t, 3, n)
	assert.Equal(t, "first\nkeep", cellTextAt(t, doc, 0, 0, 0))
	assert.Equal(t, "answer", cellTextAt(t, doc, 0, 0, 1))
	assert.Equal(t, "no paragraphs", cellTextAt(t, doc, 0, 1, 0))
}

func TestAssignmentTagText(t *testing.T) {
	t.Parallel()

	label := Assignment{Cell: model.TaggableCell{CurrentText: "용법:", Type: model.CellLabelOnly}, Key: " dosage "}
	assert.Equal(t, "용법: {{dosage}}", label.TagText())

	empty := Assignment{Cell: model.TaggableCell{Type: model.CellEmpty}, Key: "dosage"}
	assert.Equal(t, "{{dosage}}", empty.TagText())
}
