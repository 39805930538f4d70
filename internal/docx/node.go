package docx

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
)

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	commentNode
	procInstNode
	directiveNode
)

// node is a raw XML tree node. Names keep their source prefix (e.g. "w")
// rather than a resolved namespace URI so that a parsed part serializes back
// with the same prefixes and xmlns declarations it was read with.
type node struct {
	kind     nodeKind
	name     xml.Name
	attrs    []xml.Attr
	children []*node
	parent   *node
	data     []byte
}

func newElement(prefix, local string, attrs ...xml.Attr) *node {
	return &node{kind: elementNode, name: xml.Name{Space: prefix, Local: local}, attrs: attrs}
}

func newText(s string) *node {
	return &node{kind: textNode, data: []byte(s)}
}

func wAttr(local, val string) xml.Attr {
	return xml.Attr{Name: xml.Name{Space: "w", Local: local}, Value: val}
}

// is reports whether n is an element with the given prefix and local name.
func (n *node) is(prefix, local string) bool {
	return n != nil && n.kind == elementNode && n.name.Space == prefix && n.name.Local == local
}

// attr returns the value of the attribute with the given prefix and local name.
func (n *node) attr(prefix, local string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name.Space == prefix && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func (n *node) setAttr(prefix, local, val string) {
	for i, a := range n.attrs {
		if a.Name.Space == prefix && a.Name.Local == local {
			n.attrs[i].Value = val
			return
		}
	}
	n.attrs = append(n.attrs, xml.Attr{Name: xml.Name{Space: prefix, Local: local}, Value: val})
}

// child returns the first direct child element with the given name.
func (n *node) child(prefix, local string) *node {
	for _, c := range n.children {
		if c.is(prefix, local) {
			return c
		}
	}
	return nil
}

// childrenNamed returns all direct child elements with the given name.
func (n *node) childrenNamed(prefix, local string) []*node {
	var out []*node
	for _, c := range n.children {
		if c.is(prefix, local) {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) appendChild(c *node) {
	c.parent = n
	n.children = append(n.children, c)
}

func (n *node) insertChild(idx int, c *node) {
	c.parent = n
	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = c
}

func (n *node) removeChild(c *node) {
	for i, x := range n.children {
		if x == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return
		}
	}
}

// parseXML builds a node tree from raw XML bytes. The returned root is a
// synthetic container whose children are the top-level tokens (prolog,
// document element, trailing comments).
func parseXML(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	root := &node{kind: elementNode}
	cur := root
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "docx: parse xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &node{kind: elementNode, name: t.Name, attrs: append([]xml.Attr(nil), t.Attr...)}
			cur.appendChild(el)
			cur = el
		case xml.EndElement:
			if cur == root || cur.name != t.Name {
				return nil, eris.Errorf("docx: unexpected end element %s:%s", t.Name.Space, t.Name.Local)
			}
			cur = cur.parent
		case xml.CharData:
			cur.appendChild(&node{kind: textNode, data: append([]byte(nil), t...)})
		case xml.Comment:
			cur.appendChild(&node{kind: commentNode, data: append([]byte(nil), t...)})
		case xml.ProcInst:
			cur.appendChild(&node{kind: procInstNode, name: xml.Name{Local: t.Target}, data: append([]byte(nil), t.Inst...)})
		case xml.Directive:
			cur.appendChild(&node{kind: directiveNode, data: append([]byte(nil), t...)})
		}
	}
	if cur != root {
		return nil, eris.New("docx: unclosed element at end of xml")
	}
	return root, nil
}

// documentElement returns the first element child of a parsed root.
func (n *node) documentElement() *node {
	for _, c := range n.children {
		if c.kind == elementNode {
			return c
		}
	}
	return nil
}

// serialize writes the tree under root (exclusive) back to XML.
func serialize(root *node) []byte {
	var buf bytes.Buffer
	for _, c := range root.children {
		writeNode(&buf, c)
	}
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n *node) {
	switch n.kind {
	case textNode:
		escapeText(buf, n.data)
	case commentNode:
		buf.WriteString("<!--")
		buf.Write(n.data)
		buf.WriteString("-->")
	case procInstNode:
		buf.WriteString("<?")
		buf.WriteString(n.name.Local)
		if len(n.data) > 0 {
			buf.WriteByte(' ')
			buf.Write(n.data)
		}
		buf.WriteString("?>")
	case directiveNode:
		buf.WriteString("<!")
		buf.Write(n.data)
		buf.WriteByte('>')
	case elementNode:
		buf.WriteByte('<')
		writeName(buf, n.name)
		for _, a := range n.attrs {
			buf.WriteByte(' ')
			writeName(buf, a.Name)
			buf.WriteString(`="`)
			escapeAttr(buf, a.Value)
			buf.WriteByte('"')
		}
		if len(n.children) == 0 {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for _, c := range n.children {
			writeNode(buf, c)
		}
		buf.WriteString("</")
		writeName(buf, n.name)
		buf.WriteByte('>')
	}
}

func writeName(buf *bytes.Buffer, name xml.Name) {
	if name.Space != "" {
		buf.WriteString(name.Space)
		buf.WriteByte(':')
	}
	buf.WriteString(name.Local)
}

// escapeText escapes character data. Newlines and tabs are left as-is so
// inter-element formatting of the source part survives a round trip.
func escapeText(buf *bytes.Buffer, data []byte) {
	for _, b := range data {
		switch b {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		default:
			buf.WriteByte(b)
		}
	}
}

func escapeAttr(buf *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '"':
			buf.WriteString("&quot;")
		case '\t':
			buf.WriteString("&#x9;")
		case '\n':
			buf.WriteString("&#xA;")
		case '\r':
			buf.WriteString("&#xD;")
		default:
			buf.WriteByte(c)
		}
	}
}
