// Package docxtest builds minimal in-memory .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const rels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// DocumentXML wraps body content in a w:document root.
func DocumentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <w:body>` + body + `<w:sectPr/></w:body>
</w:document>`
}

// Package zips a document part into a .docx package.
func Package(t testing.TB, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range []struct{ name, data string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", rels},
		{"word/document.xml", documentXML},
	} {
		w, err := zw.Create(p.name)
		if err != nil {
			t.Fatalf("create %s: %v", p.name, err)
		}
		if _, err := w.Write([]byte(p.data)); err != nil {
			t.Fatalf("write %s: %v", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// Build returns a .docx package whose body holds the given XML.
func Build(t testing.TB, body string) []byte {
	t.Helper()
	return Package(t, DocumentXML(body))
}

// P renders a paragraph with one run per argument.
func P(runs ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for _, r := range runs {
		sb.WriteString(R(r))
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// R renders a plain run.
func R(text string) string {
	return fmt.Sprintf(`<w:r><w:t xml:space="preserve">%s</w:t></w:r>`, escape(text))
}

// Tc renders a cell containing the given paragraphs. An empty cell still
// gets one empty paragraph, as Word writes it.
func Tc(paras ...string) string {
	if len(paras) == 0 {
		paras = []string{"<w:p/>"}
	}
	return "<w:tc>" + strings.Join(paras, "") + "</w:tc>"
}

// TcText renders a cell with a single one-run paragraph, or an empty
// paragraph when text is "".
func TcText(text string) string {
	if text == "" {
		return Tc()
	}
	return Tc(P(text))
}

// Tr renders a row of cells.
func Tr(cells ...string) string {
	return "<w:tr>" + strings.Join(cells, "") + "</w:tr>"
}

// Tbl renders a table of rows.
func Tbl(rows ...string) string {
	return "<w:tbl><w:tblPr/>" + strings.Join(rows, "") + "</w:tbl>"
}

// TextTable renders a table from a grid of cell texts.
func TextTable(grid [][]string) string {
	rows := make([]string, len(grid))
	for i, r := range grid {
		cells := make([]string, len(r))
		for j, text := range r {
			cells[j] = TcText(text)
		}
		rows[i] = Tr(cells...)
	}
	return Tbl(rows...)
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
