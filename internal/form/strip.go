package form

import (
	"regexp"

	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/docx"
)

// strippable matches a tag together with one space directly before it, the
// exact shape InsertPlaceholderTags appends to a label.
var strippable = regexp.MustCompile(` ?\{\{[\p{L}\p{N}_]+\}\}`)

// StripPlaceholderTags removes every placeholder tag from the document's
// table cells and returns the number of tags removed. Stripping a document
// produced by InsertPlaceholderTags restores the original cell text, so
// strip followed by insert re-tags a form without doubling tags.
func StripPlaceholderTags(doc *docx.Document) int {
	removed := 0
	for _, t := range doc.Tables() {
		walkTableParagraphs(t, func(p *docx.Paragraph) {
			if len(p.Runs()) == 0 {
				return
			}
			text := p.RunText()
			n := len(strippable.FindAllStringIndex(text, -1))
			if n == 0 {
				return
			}
			p.SetText(strippable.ReplaceAllString(text, ""))
			removed += n
		})
	}

	zap.L().Info("form: stripped placeholder tags", zap.Int("tags", removed))
	return removed
}
