// Package docx reads Word (.docx) packages into a mutable tree of tables,
// paragraphs and runs, and writes them back. Only word/document.xml is
// parsed; every other part of the package is carried through untouched.
package docx

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
)

const (
	documentPart = "word/document.xml"
	nsW          = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// part is one entry of the zip package, kept in archive order.
type part struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

// Document is an in-memory .docx package. It is not safe for concurrent use;
// one caller owns a Document for the duration of a scan or rewrite.
type Document struct {
	parts []part
	main  int
	root  *node
	body  *node
}

// Open parses a .docx package from bytes.
func Open(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "docx: open zip archive")
	}

	doc := &Document{main: -1}
	for _, f := range zr.File {
		content, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		if f.Name == documentPart {
			doc.main = len(doc.parts)
		}
		doc.parts = append(doc.parts, part{
			name:     f.Name,
			method:   f.Method,
			modified: f.Modified,
			data:     content,
		})
	}
	if doc.main < 0 {
		return nil, eris.Errorf("docx: missing required part %s", documentPart)
	}

	root, err := parseXML(doc.parts[doc.main].data)
	if err != nil {
		return nil, err
	}
	el := root.documentElement()
	if !el.is("w", "document") {
		return nil, eris.New("docx: document part has no w:document root")
	}
	if ns, _ := el.attr("xmlns", "w"); ns != nsW {
		return nil, eris.Errorf("docx: unsupported main namespace binding %q", ns)
	}
	body := el.child("w", "body")
	if body == nil {
		return nil, eris.New("docx: document has no w:body")
	}

	doc.root = root
	doc.body = body
	return doc, nil
}

// OpenFile reads and parses a .docx file from disk.
func OpenFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "docx: read %s", path)
	}
	return Open(data)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "docx: open part %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "docx: read part %s", f.Name)
	}
	return data, nil
}

// Bytes serializes the document, including any mutations, into a fresh
// .docx package. The receiver stays usable afterwards.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i, p := range d.parts {
		data := p.data
		if i == d.main {
			data = serialize(d.root)
		}

		hdr := &zip.FileHeader{
			Name:     p.name,
			Method:   p.method,
			Modified: p.modified,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, eris.Wrapf(err, "docx: create part %s", p.name)
		}
		if _, err := w.Write(data); err != nil {
			return nil, eris.Wrapf(err, "docx: write part %s", p.name)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, eris.Wrap(err, "docx: close zip archive")
	}
	return buf.Bytes(), nil
}

// Paragraphs returns the body-level paragraphs in document order. Paragraphs
// inside tables are reached through Tables.
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, p := range d.body.childrenNamed("w", "p") {
		out = append(out, &Paragraph{node: p})
	}
	return out
}

// Tables returns the body-level tables in document order.
func (d *Document) Tables() []*Table {
	var out []*Table
	for _, t := range d.body.childrenNamed("w", "tbl") {
		out = append(out, newTable(t))
	}
	return out
}
