package tagger

import (
	"encoding/json"
	"strings"

	"github.com/dcdoc/dcform-cli/internal/model"
)

// Proposal is one mapping entry read from a classifier response, before it
// is reconciled against the cells that were asked about.
type Proposal struct {
	CellID     string
	Key        string
	Confidence model.Confidence
}

// extractor pulls a JSON candidate out of raw response text.
type extractor struct {
	name    string
	extract func(string) (string, bool)
}

// extractors run in order; the first candidate that decodes as a response
// object wins.
var extractors = []extractor{
	{"direct", func(s string) (string, bool) { return strings.TrimSpace(s), true }},
	{"fenced", stripFences},
	{"braces", firstObject},
}

// ParseResponse decodes a classifier response. It accepts bare JSON, JSON
// wrapped in a markdown code fence, and JSON embedded in prose. ok is false
// when no strategy yields a JSON object.
func ParseResponse(text string) (proposals []Proposal, ok bool) {
	for _, ex := range extractors {
		candidate, found := ex.extract(text)
		if !found || candidate == "" {
			continue
		}
		entries, decoded := decodeEntries(candidate)
		if decoded {
			return entries, true
		}
	}
	return nil, false
}

// stripFences removes a leading ```json (or ```) line and a trailing fence.
func stripFences(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s), true
}

// firstObject returns the first balanced {...} block, ignoring braces that
// appear inside JSON strings.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

type responseEnvelope struct {
	Mappings []json.RawMessage `json:"mappings"`
	Legacy   []json.RawMessage `json:"태그_매핑"`
}

type responseEntry struct {
	CellID           string  `json:"cell_id"`
	PlaceholderKey   *string `json:"placeholder_key"`
	Confidence       string  `json:"confidence"`
	LegacyConfidence string  `json:"확신도"`
}

func decodeEntries(candidate string) ([]Proposal, bool) {
	var env responseEnvelope
	if err := json.Unmarshal([]byte(candidate), &env); err != nil {
		return nil, false
	}

	raw := env.Mappings
	if len(raw) == 0 {
		raw = env.Legacy
	}

	out := make([]Proposal, 0, len(raw))
	for _, r := range raw {
		var e responseEntry
		if err := json.Unmarshal(r, &e); err != nil {
			continue
		}
		if e.CellID == "" {
			continue
		}
		key := model.UnknownKey
		if e.PlaceholderKey != nil {
			key = strings.TrimSpace(*e.PlaceholderKey)
		}
		conf := e.Confidence
		if conf == "" {
			conf = e.LegacyConfidence
		}
		out = append(out, Proposal{
			CellID:     strings.TrimSpace(e.CellID),
			Key:        key,
			Confidence: model.ParseConfidence(conf),
		})
	}
	return out, true
}
