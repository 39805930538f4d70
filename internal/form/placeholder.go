package form

import (
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/docx"
)

// placeholderPattern matches a {{key}} tag. Keys are letters, digits and
// underscores; there is no escaping and no nesting.
var placeholderPattern = regexp.MustCompile(`\{\{([\p{L}\p{N}_]+)\}\}`)

// IsValidKey reports whether key can be written as a placeholder tag.
func IsValidKey(key string) bool {
	tag := "{{" + key + "}}"
	return placeholderPattern.FindString(tag) == tag
}

// KeysIn returns the placeholder keys in s in order of appearance,
// duplicates included.
func KeysIn(s string) []string {
	var keys []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		keys = append(keys, m[1])
	}
	return keys
}

// FindPlaceholders returns the sorted, de-duplicated keys of every
// placeholder in the document's body and table paragraphs. Each paragraph is
// read as the concatenation of its runs, so a tag split across runs is found.
func FindPlaceholders(doc *docx.Document) []string {
	seen := make(map[string]bool)
	walkParagraphs(doc, func(p *docx.Paragraph) {
		for _, k := range KeysIn(p.RunText()) {
			seen[k] = true
		}
	})

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReplacePlaceholders substitutes every {{key}} whose key is in replacements
// and returns the number of paragraphs rewritten. Tags with no replacement
// are left as literal text. A rewritten paragraph is collapsed to a single
// run carrying its first run's formatting; paragraphs without a substitution
// are not touched.
func ReplacePlaceholders(doc *docx.Document, replacements map[string]string) int {
	changed := 0
	walkParagraphs(doc, func(p *docx.Paragraph) {
		if replaceInParagraph(p, replacements) {
			changed++
		}
	})

	zap.L().Debug("form: replaced placeholders",
		zap.Int("paragraphs", changed),
		zap.Int("replacements", len(replacements)),
	)
	return changed
}

// ReplacePlaceholdersBytes opens a .docx package, substitutes placeholders
// and returns the rewritten package. The input slice is not modified.
func ReplacePlaceholdersBytes(data []byte, replacements map[string]string) ([]byte, int, error) {
	doc, err := docx.Open(data)
	if err != nil {
		return nil, 0, err
	}
	n := ReplacePlaceholders(doc, replacements)
	out, err := doc.Bytes()
	if err != nil {
		return nil, 0, err
	}
	return out, n, nil
}

func replaceInParagraph(p *docx.Paragraph, replacements map[string]string) bool {
	if len(p.Runs()) == 0 {
		return false
	}
	text := p.RunText()
	if !placeholderPattern.MatchString(text) {
		return false
	}

	hit := false
	out := placeholderPattern.ReplaceAllStringFunc(text, func(tag string) string {
		v, ok := replacements[tag[2:len(tag)-2]]
		if !ok {
			return tag
		}
		hit = true
		return v
	})
	if !hit {
		return false
	}

	p.SetText(out)
	return true
}
