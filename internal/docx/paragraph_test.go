package docx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcdoc/dcform-cli/internal/docx/docxtest"
)

func openParagraph(t *testing.T, p string) *Paragraph {
	t.Helper()
	doc, err := Open(docxtest.Build(t, p))
	require.NoError(t, err)
	paras := doc.Paragraphs()
	require.Len(t, paras, 1)
	return paras[0]
}

func TestParagraph_RunTextSpansRuns(t *testing.T) {
	t.Parallel()

	p := openParagraph(t, docxtest.P("{{eff", "icacy}}", " tail"))
	assert.Len(t, p.Runs(), 3)
	assert.Equal(t, "{{efficacy}} tail", p.RunText())
}

func TestParagraph_TextIncludesHyperlinks(t *testing.T) {
	t.Parallel()

	p := openParagraph(t, `<w:p>`+docxtest.R("see ")+`<w:hyperlink r:id="rId9">`+docxtest.R("link")+`</w:hyperlink></w:p>`)
	assert.Equal(t, "see link", p.Text())
	assert.Equal(t, "see ", p.RunText())
	assert.Len(t, p.Runs(), 1)
}

func TestRun_TextSpecialElements(t *testing.T) {
	t.Parallel()

	p := openParagraph(t, `<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t><w:br w:type="page"/><w:cr/><w:noBreakHyphen/></w:r></w:p>`)
	assert.Equal(t, "a\tb\nc\n-", p.Runs()[0].Text())
}

func TestParagraph_AddRunAppends(t *testing.T) {
	t.Parallel()

	p := openParagraph(t, docxtest.P("label"))
	r := p.AddRun(" {{safety}}")
	assert.Equal(t, " {{safety}}", r.Text())
	assert.Equal(t, "label {{safety}}", p.Text())
	assert.Len(t, p.Runs(), 2)
}

func TestParagraph_SetTextKeepsFirstRunFormat(t *testing.T) {
	t.Parallel()

	p := openParagraph(t, `<w:p><w:pPr><w:jc w:val="center"/></w:pPr>`+
		`<w:r><w:rPr><w:rFonts w:ascii="Malgun Gothic"/><w:b/><w:sz w:val="22"/></w:rPr><w:t>{{eff</w:t></w:r>`+
		`<w:r><w:rPr><w:i/></w:rPr><w:t>icacy}}</w:t></w:r></w:p>`)

	p.SetText("좋음")
	runs := p.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, "좋음", p.Text())
	assert.NotNil(t, p.node.child("w", "pPr"))

	f := runs[0].Format()
	require.NotNil(t, f.Bold)
	assert.True(t, *f.Bold)
	assert.Nil(t, f.Italic)
	assert.Equal(t, "Malgun Gothic", f.FontName)
	assert.Equal(t, 22, f.Size)
}

func TestParagraph_SetTextWithoutRuns(t *testing.T) {
	t.Parallel()

	p := openParagraph(t, `<w:p/>`)
	p.SetText("value")
	assert.Equal(t, "value", p.Text())
	assert.True(t, p.Runs()[0].Format().IsZero())
}

func TestParagraph_SetTextMultiline(t *testing.T) {
	t.Parallel()

	p := openParagraph(t, docxtest.P("x"))
	p.SetText("line1\nline2\tend\r")
	assert.Equal(t, "line1\nline2\tend", p.Text())
}

func TestParagraph_SetTextSurvivesRoundTrip(t *testing.T) {
	t.Parallel()

	doc, err := Open(docxtest.Build(t, docxtest.P("{{a}}")))
	require.NoError(t, err)
	doc.Paragraphs()[0].SetText("  spaced <value> ")

	out, err := doc.Bytes()
	require.NoError(t, err)
	again, err := Open(out)
	require.NoError(t, err)
	assert.Equal(t, "  spaced <value> ", again.Paragraphs()[0].Text())
}
