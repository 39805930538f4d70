package tagger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcdoc/dcform-cli/internal/model"
)

func testCells() []model.TaggableCell {
	return []model.TaggableCell{
		{CellCoord: model.CellCoord{Table: 0, Row: 1, Cell: 1}, Question: "효능 / 효과", Type: model.CellEmpty},
		{CellCoord: model.CellCoord{Table: 0, Row: 2, Cell: 1}, Question: "안전성", Type: model.CellEmpty},
		{CellCoord: model.CellCoord{Table: 0, Row: 3, Cell: 0}, Question: "약가:", CurrentText: "약가:", Type: model.CellLabelOnly},
	}
}

func staticClassifier(text string, err error) (Classifier, *[]Prompt) {
	var calls []Prompt
	return ClassifierFunc(func(_ context.Context, p Prompt) (string, error) {
		calls = append(calls, p)
		return text, err
	}), &calls
}

func coords(ms []model.CellTagMapping) []model.CellCoord {
	out := make([]model.CellCoord, len(ms))
	for i, m := range ms {
		out[i] = m.CellCoord
	}
	return out
}

func cellCoords(cs []model.TaggableCell) []model.CellCoord {
	out := make([]model.CellCoord, len(cs))
	for i, c := range cs {
		out[i] = c.CellCoord
	}
	return out
}

func TestGenerateCellTags_FullResponse(t *testing.T) {
	t.Parallel()

	// Response order differs from cell order on purpose.
	c, calls := staticClassifier(`{"mappings":[
		{"cell_id":"T0R3C0","placeholder_key":"cost_effectiveness","confidence":"medium"},
		{"cell_id":"T0R1C1","placeholder_key":"efficacy","confidence":"high"},
		{"cell_id":"T0R2C1","placeholder_key":"safety","confidence":"high"}
	]}`, nil)

	cells := testCells()
	got := GenerateCellTags(context.Background(), c, cells, model.DefaultCatalog())

	require.Len(t, *calls, 1)
	require.Len(t, got, len(cells))
	assert.Equal(t, cellCoords(cells), coords(got))

	assert.Equal(t, "efficacy", got[0].PlaceholderKey)
	assert.Equal(t, model.ConfidenceHigh, got[0].Confidence)
	assert.Equal(t, "효능 / 효과", got[0].Question)
	assert.Equal(t, "safety", got[1].PlaceholderKey)
	assert.Equal(t, "cost_effectiveness", got[2].PlaceholderKey)
	assert.Equal(t, model.ConfidenceMedium, got[2].Confidence)
}

func TestGenerateCellTags_PartialResponseBackfills(t *testing.T) {
	t.Parallel()

	c, _ := staticClassifier("```json\n{\"mappings\":[{\"cell_id\":\"T0R2C1\",\"placeholder_key\":\"safety\",\"confidence\":\"high\"}]}\n```", nil)

	cells := testCells()
	got := GenerateCellTags(context.Background(), c, cells, model.DefaultCatalog())

	require.Len(t, got, 3)
	assert.Equal(t, cellCoords(cells), coords(got))
	assert.True(t, got[0].IsUnknown())
	assert.Equal(t, model.ConfidenceLow, got[0].Confidence)
	assert.Equal(t, "safety", got[1].PlaceholderKey)
	assert.True(t, got[2].IsUnknown())
}

func TestGenerateCellTags_FallbackAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		err  error
	}{
		{name: "classifier error", err: errors.New("connection refused")},
		{name: "unparseable", text: "no idea, sorry"},
		{name: "empty mappings", text: `{"mappings": []}`},
		{name: "missing mappings field", text: `{"result": "ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, _ := staticClassifier(tt.text, tt.err)

			cells := testCells()
			got := GenerateCellTags(context.Background(), c, cells, model.DefaultCatalog())

			require.Len(t, got, len(cells))
			for i, m := range got {
				assert.Equal(t, cells[i].CellCoord, m.CellCoord)
				assert.Equal(t, cells[i].Question, m.Question)
				assert.Equal(t, model.UnknownKey, m.PlaceholderKey)
				assert.Equal(t, model.ConfidenceLow, m.Confidence)
			}
		})
	}
}

func TestGenerateCellTags_NoCellsSkipsClassifier(t *testing.T) {
	t.Parallel()

	c, calls := staticClassifier(`{}`, nil)
	got := GenerateCellTags(context.Background(), c, nil, model.DefaultCatalog())

	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, *calls)
}

func TestGenerateCellTags_NilCatalogUsesDefault(t *testing.T) {
	t.Parallel()

	c, calls := staticClassifier(`{"mappings":[{"cell_id":"T0R1C1","placeholder_key":"efficacy","confidence":"high"}]}`, nil)
	got := GenerateCellTags(context.Background(), c, testCells()[:1], nil)

	require.Len(t, got, 1)
	assert.Equal(t, "efficacy", got[0].PlaceholderKey)
	assert.Contains(t, (*calls)[0].System, "indication_dosage")
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	cells := testCells()
	proposals := []Proposal{
		{CellID: "T0R1C1", Key: "efficacy", Confidence: model.ConfidenceHigh},
		{CellID: "T0R1C1", Key: "safety", Confidence: model.ConfidenceMedium}, // duplicate: first wins
		{CellID: "T9R9C9", Key: "safety", Confidence: model.ConfidenceHigh},   // never asked about
		{CellID: "T0R2C1", Key: "made_up_key", Confidence: model.ConfidenceHigh},
		{CellID: "T0R3C0", Key: model.UnknownKey, Confidence: model.ConfidenceMedium},
	}

	got := Reconcile(cells, proposals, model.DefaultCatalog())

	require.Len(t, got, 3)
	assert.Equal(t, cellCoords(cells), coords(got))
	assert.Equal(t, "efficacy", got[0].PlaceholderKey)
	assert.Equal(t, model.ConfidenceHigh, got[0].Confidence)

	assert.Equal(t, model.FallbackMapping(cells[1]), got[1])

	assert.Equal(t, model.UnknownKey, got[2].PlaceholderKey)
	assert.Equal(t, model.ConfidenceMedium, got[2].Confidence)
}

func TestReconcile_Bijection(t *testing.T) {
	t.Parallel()

	var cells []model.TaggableCell
	for r := 0; r < 20; r++ {
		cells = append(cells, model.TaggableCell{CellCoord: model.CellCoord{Table: 1, Row: r, Cell: 1}})
	}
	proposals := []Proposal{
		{CellID: "T1R19C1", Key: "safety"},
		{CellID: "T1R0C1", Key: "efficacy"},
		{CellID: "T1R5C1", Key: "efficacy"},
		{CellID: "garbage", Key: "efficacy"},
	}

	got := Reconcile(cells, proposals, model.DefaultCatalog())

	require.Len(t, got, len(cells))
	seen := map[model.CellCoord]bool{}
	for i, m := range got {
		assert.Equal(t, cells[i].CellCoord, m.CellCoord)
		assert.False(t, seen[m.CellCoord])
		seen[m.CellCoord] = true
	}
	assert.Equal(t, "safety", got[19].PlaceholderKey)
	assert.Equal(t, "efficacy", got[5].PlaceholderKey)
	assert.True(t, got[1].IsUnknown())
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	cells := []model.TaggableCell{
		{CellCoord: model.CellCoord{Table: 0, Row: 1, Cell: 1}, Question: "효능\n효과"},
		{CellCoord: model.CellCoord{Table: 2, Row: 0, Cell: 3}},
	}
	catalog := model.NewCatalog([]model.Field{
		{Key: "efficacy", Description: "효능", Core: true},
		{Key: "storage_handling", Description: "보관"},
	})

	p := BuildPrompt(cells, catalog)

	assert.Contains(t, p.System, "1. efficacy - 효능")
	assert.NotContains(t, p.System, "2. storage_handling")
	assert.Contains(t, p.System, `"storage_handling": "보관"`)
	assert.Contains(t, p.System, `"mappings"`)

	assert.Contains(t, p.User, "T0R1C1 | 효능 효과\n")
	assert.Contains(t, p.User, "T2R0C3 | (빈 셀)\n")
	assert.NotContains(t, p.System, "T0R1C1 |")
}
