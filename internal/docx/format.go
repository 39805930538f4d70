package docx

import "strconv"

// RunFormat is a snapshot of character formatting taken from a run before
// the run is destroyed. Zero values (nil, "", 0) mean "inherit": they are
// not written when the snapshot is applied.
type RunFormat struct {
	Bold      *bool
	Italic    *bool
	Underline string // w:u style, e.g. "single"; "none" switches underline off
	FontName  string
	Size      int    // half-points, as stored in w:sz
	Color     string // RRGGBB
}

// IsZero reports whether the snapshot carries no formatting at all.
func (f RunFormat) IsZero() bool {
	return f.Bold == nil && f.Italic == nil && f.Underline == "" &&
		f.FontName == "" && f.Size == 0 && f.Color == ""
}

// Format captures the run's direct formatting.
func (r *Run) Format() RunFormat {
	var f RunFormat
	rPr := r.node.child("w", "rPr")
	if rPr == nil {
		return f
	}

	f.Bold = onOff(rPr.child("w", "b"))
	f.Italic = onOff(rPr.child("w", "i"))

	if u := rPr.child("w", "u"); u != nil {
		f.Underline = "single"
		if v, ok := u.attr("w", "val"); ok && v != "" {
			f.Underline = v
		}
	}

	if fonts := rPr.child("w", "rFonts"); fonts != nil {
		for _, key := range []string{"ascii", "hAnsi", "eastAsia"} {
			if v, ok := fonts.attr("w", key); ok && v != "" {
				f.FontName = v
				break
			}
		}
	}

	if sz := rPr.child("w", "sz"); sz != nil {
		v, _ := sz.attr("w", "val")
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Size = n
		}
	}

	if c := rPr.child("w", "color"); c != nil {
		if v, _ := c.attr("w", "val"); v != "" && v != "auto" {
			f.Color = v
		}
	}
	return f
}

// onOff reads a w:ST_OnOff toggle element. A missing element is nil.
func onOff(n *node) *bool {
	if n == nil {
		return nil
	}
	v, ok := n.attr("w", "val")
	on := !ok || (v != "0" && v != "false" && v != "off")
	return &on
}

// rPrOrder is the schema order of the w:rPr children RunFormat touches,
// interleaved with the siblings they must precede or follow.
var rPrOrder = []string{
	"rStyle", "rFonts", "b", "bCs", "i", "iCs", "caps", "smallCaps", "strike",
	"dstrike", "outline", "shadow", "emboss", "imprint", "noProof", "snapToGrid",
	"vanish", "webHidden", "color", "spacing", "w", "kern", "position", "sz",
	"szCs", "highlight", "u", "effect", "bdr", "shd", "fitText", "vertAlign",
	"rtl", "cs", "em", "lang", "eastAsianLayout", "specVanish", "oMath",
}

// ApplyFormat writes every set field of f onto the run.
func (r *Run) ApplyFormat(f RunFormat) {
	if f.IsZero() {
		return
	}
	rPr := r.node.child("w", "rPr")
	if rPr == nil {
		rPr = newElement("w", "rPr")
		r.node.insertChild(0, rPr)
	}

	if f.FontName != "" {
		fonts := newElement("w", "rFonts",
			wAttr("ascii", f.FontName),
			wAttr("hAnsi", f.FontName),
			wAttr("eastAsia", f.FontName),
		)
		setProperty(rPr, fonts)
	}
	if f.Bold != nil {
		setProperty(rPr, toggle("b", *f.Bold))
	}
	if f.Italic != nil {
		setProperty(rPr, toggle("i", *f.Italic))
	}
	if f.Color != "" {
		setProperty(rPr, newElement("w", "color", wAttr("val", f.Color)))
	}
	if f.Size > 0 {
		setProperty(rPr, newElement("w", "sz", wAttr("val", strconv.Itoa(f.Size))))
	}
	if f.Underline != "" {
		setProperty(rPr, newElement("w", "u", wAttr("val", f.Underline)))
	}
}

func toggle(local string, on bool) *node {
	if on {
		return newElement("w", local)
	}
	return newElement("w", local, wAttr("val", "0"))
}

// setProperty replaces the existing property element of the same name or
// inserts el at its schema position.
func setProperty(rPr, el *node) {
	if old := rPr.child("w", el.name.Local); old != nil {
		for i, c := range rPr.children {
			if c == old {
				el.parent = rPr
				rPr.children[i] = el
				return
			}
		}
	}

	rank := orderOf(el.name.Local)
	for i, c := range rPr.children {
		if c.kind == elementNode && c.name.Space == "w" && orderOf(c.name.Local) > rank {
			rPr.insertChild(i, el)
			return
		}
	}
	rPr.appendChild(el)
}

func orderOf(local string) int {
	for i, name := range rPrOrder {
		if name == local {
			return i
		}
	}
	return len(rPrOrder)
}
