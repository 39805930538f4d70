package docx

import (
	"encoding/xml"
	"strings"
)

// Paragraph is a w:p element.
type Paragraph struct {
	node *node
}

// Run is a w:r element: a span of text sharing one formatting definition.
type Run struct {
	node *node
}

// Runs returns the paragraph's direct runs. Runs nested in hyperlinks or
// other wrappers are not included.
func (p *Paragraph) Runs() []*Run {
	var out []*Run
	for _, r := range p.node.childrenNamed("w", "r") {
		out = append(out, &Run{node: r})
	}
	return out
}

// RunText returns the concatenated text of the paragraph's direct runs.
// A placeholder split across runs reads as one string here.
func (p *Paragraph) RunText() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// Text returns the visible paragraph text, including runs inside hyperlinks.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, c := range p.node.children {
		switch {
		case c.is("w", "r"):
			sb.WriteString((&Run{node: c}).Text())
		case c.is("w", "hyperlink"):
			for _, r := range c.childrenNamed("w", "r") {
				sb.WriteString((&Run{node: r}).Text())
			}
		}
	}
	return sb.String()
}

// AddRun appends a new unformatted run holding text.
func (p *Paragraph) AddRun(text string) *Run {
	r := &Run{node: newElement("w", "r")}
	r.setText(text)
	p.node.appendChild(r.node)
	return r
}

// SetText replaces all of the paragraph's direct runs with one run holding
// text. The new run takes the formatting of the first original run; a
// paragraph that had no runs gets an unformatted run. Paragraph properties,
// bookmarks and other non-run children stay in place.
func (p *Paragraph) SetText(text string) {
	runs := p.Runs()
	if len(runs) == 0 {
		p.AddRun(text)
		return
	}

	format := runs[0].Format()
	for _, r := range runs {
		p.node.removeChild(r.node)
	}
	p.AddRun(text).ApplyFormat(format)
}

// Text returns the run's text. Tabs read as "\t", line breaks and carriage
// returns as "\n".
func (r *Run) Text() string {
	var sb strings.Builder
	for _, c := range r.node.children {
		if c.kind != elementNode || c.name.Space != "w" {
			continue
		}
		switch c.name.Local {
		case "t":
			for _, t := range c.children {
				if t.kind == textNode {
					sb.Write(t.data)
				}
			}
		case "tab", "ptab":
			sb.WriteByte('\t')
		case "br":
			if typ, _ := c.attr("w", "type"); typ == "" || typ == "textWrapping" {
				sb.WriteByte('\n')
			}
		case "cr":
			sb.WriteByte('\n')
		case "noBreakHyphen":
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// setText replaces the run's content (keeping w:rPr) with text, mapping tabs
// to w:tab and newlines to w:br.
func (r *Run) setText(text string) {
	kept := r.node.children[:0]
	for _, c := range r.node.children {
		if c.is("w", "rPr") {
			kept = append(kept, c)
		}
	}
	r.node.children = kept

	var pending strings.Builder
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		t := newElement("w", "t", xml.Attr{Name: xml.Name{Space: "xml", Local: "space"}, Value: "preserve"})
		t.appendChild(newText(pending.String()))
		r.node.appendChild(t)
		pending.Reset()
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			r.node.appendChild(newElement("w", "tab"))
		case '\n':
			flush()
			r.node.appendChild(newElement("w", "br"))
		case '\r':
		default:
			pending.WriteRune(ch)
		}
	}
	flush()
}
