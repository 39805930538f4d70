package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/docx/docxtest"
	"github.com/dcdoc/dcform-cli/internal/model"
)

func openDoc(t *testing.T, body string) *docx.Document {
	t.Helper()
	doc, err := docx.Open(docxtest.Build(t, body))
	require.NoError(t, err)
	return doc
}

func TestIsLabelOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"성분명:", true},
		{"판매회사：", true},
		{"용량(mg)", true},
		{"[비고]", true},
		{"구분）", true},
		{"효능:   ", true},
		{"  효능:", true},
		{"해당없음", false},
		{"", false},
		{"   ", false},
		{":", false},
		{"line one:\nline two", false},
		{"ratio 1:2", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsLabelOnly(tt.text))
		})
	}
}

func TestDetectTaggableCells_EmptyAndLabel(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.TextTable([][]string{
		{"성분명:", ""},
		{"해당없음", "효능", ""},
		{"", ""},
	}))

	got := DetectTaggableCells(doc)
	require.Len(t, got, 5)

	// Row 0: the empty cell first, then the label pass.
	assert.Equal(t, model.TaggableCell{
		CellCoord: model.CellCoord{Table: 0, Row: 0, Cell: 1},
		Question:  "성분명:",
		Type:      model.CellEmpty,
	}, got[0])
	assert.Equal(t, model.TaggableCell{
		CellCoord:   model.CellCoord{Table: 0, Row: 0, Cell: 0},
		Question:    "성분명:",
		CurrentText: "성분명:",
		Type:        model.CellLabelOnly,
	}, got[1])

	assert.Equal(t, model.CellCoord{Table: 0, Row: 1, Cell: 2}, got[2].CellCoord)
	assert.Equal(t, "해당없음 / 효능", got[2].Question)
	assert.Equal(t, model.CellEmpty, got[2].Type)

	assert.Equal(t, "", got[3].Question)
	assert.Equal(t, "", got[4].Question)
	assert.Equal(t, 0, got[3].Cell)
	assert.Equal(t, 1, got[4].Cell)
}

func TestDetectTaggableCells_LabelBoundary(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.TextTable([][]string{{"성분명:"}, {"해당없음"}, {""}}))
	got := DetectTaggableCells(doc)
	require.Len(t, got, 2)
	assert.Equal(t, model.CellLabelOnly, got[0].Type)
	assert.Equal(t, 0, got[0].Row)
	assert.Equal(t, model.CellEmpty, got[1].Type)
	assert.Equal(t, 2, got[1].Row)
}

func TestDetectTaggableCells_MergedCellCountedOnce(t *testing.T) {
	t.Parallel()

	wide := `<w:tc><w:tcPr><w:gridSpan w:val="3"/></w:tcPr><w:p/></w:tc>`
	doc := openDoc(t, docxtest.Tbl(
		docxtest.Tr(docxtest.TcText("비고"), wide),
	))

	got := DetectTaggableCells(doc)
	require.Len(t, got, 1)
	assert.Equal(t, model.CellCoord{Table: 0, Row: 0, Cell: 1}, got[0].CellCoord)
	assert.Equal(t, "비고", got[0].Question)
}

func TestDetectTaggableCells_NoTables(t *testing.T) {
	t.Parallel()

	doc := openDoc(t, docxtest.P("no tables here:"))
	assert.Empty(t, DetectTaggableCells(doc))
}

func TestDetectTaggableCells_NormalizesDecomposedHangul(t *testing.T) {
	t.Parallel()

	// "효능:" written as conjoining jamo.
	decomposed := "\u1112\u116d\u1102\u1173\u11bc:"
	doc := openDoc(t, docxtest.TextTable([][]string{{decomposed}}))

	got := DetectTaggableCells(doc)
	require.Len(t, got, 1)
	assert.Equal(t, "효능:", got[0].CurrentText)
}

func TestDetectTaggableCells_MultipleTables(t *testing.T) {
	t.Parallel()

	doc := openDoc(t,
		docxtest.TextTable([][]string{{"a", "b"}})+
			docxtest.P("between")+
			docxtest.TextTable([][]string{{"안전성:", ""}}),
	)

	got := DetectTaggableCells(doc)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.Equal(t, 1, c.Table)
	}
}
