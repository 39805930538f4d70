package docx

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcdoc/dcform-cli/internal/docx/docxtest"
)

func TestOpen_InvalidZip(t *testing.T) {
	t.Parallel()

	_, err := Open([]byte("not a zip"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docx: open zip archive")
}

func TestOpen_MissingDocumentPart(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<Types/>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Open(buf.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word/document.xml")
}

func TestOpen_MalformedXML(t *testing.T) {
	t.Parallel()

	data := docxtest.Package(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body></w:document>`)
	_, err := Open(data)
	require.Error(t, err)
}

func TestOpen_WrongRoot(t *testing.T) {
	t.Parallel()

	data := docxtest.Package(t, `<root/>`)
	_, err := Open(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "w:document")
}

func TestOpen_NoBody(t *testing.T) {
	t.Parallel()

	data := docxtest.Package(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`)
	_, err := Open(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "w:body")
}

func TestDocument_ParagraphsAndTables(t *testing.T) {
	t.Parallel()

	body := docxtest.P("Title") +
		docxtest.TextTable([][]string{{"a", "b"}}) +
		docxtest.P("Footer", " text")
	doc, err := Open(docxtest.Build(t, body))
	require.NoError(t, err)

	paras := doc.Paragraphs()
	require.Len(t, paras, 2)
	assert.Equal(t, "Title", paras[0].Text())
	assert.Equal(t, "Footer text", paras[1].Text())

	tables := doc.Tables()
	require.Len(t, tables, 1)
	require.Len(t, tables[0].Rows(), 1)
}

func TestDocument_BytesRoundTrip(t *testing.T) {
	t.Parallel()

	body := docxtest.P("A & B < C") + docxtest.TextTable([][]string{{"x", ""}})
	data := docxtest.Build(t, body)

	doc, err := Open(data)
	require.NoError(t, err)
	out, err := doc.Bytes()
	require.NoError(t, err)

	again, err := Open(out)
	require.NoError(t, err)
	assert.Equal(t, "A & B < C", again.Paragraphs()[0].Text())

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"}, names)
}

func TestDocument_BytesPreservesUntouchedXML(t *testing.T) {
	t.Parallel()

	src := docxtest.DocumentXML(docxtest.P("same"))
	doc, err := Open(docxtest.Package(t, src))
	require.NoError(t, err)

	out, err := doc.Bytes()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name != documentPart {
			continue
		}
		got, err := readZipFile(f)
		require.NoError(t, err)
		assert.Contains(t, string(got), `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`)
		assert.Contains(t, string(got), `<w:t xml:space="preserve">same</w:t>`)
		assert.Contains(t, string(got), `<w:sectPr/>`)
	}
}

func TestOpenFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := OpenFile("/nonexistent/form.docx")
	require.Error(t, err)
}
