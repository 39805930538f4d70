package model

import "strings"

// Confidence is the classifier's ordinal self-assessment of a mapping.
// The zero value is ConfidenceLow.
type Confidence int

// Confidence levels, ordered low to high.
const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// confidenceNames maps accepted spellings to levels. The classifier is
// prompted in Korean and may answer with either vocabulary.
var confidenceNames = map[string]Confidence{
	"high":   ConfidenceHigh,
	"medium": ConfidenceMedium,
	"low":    ConfidenceLow,
	"높음":     ConfidenceHigh,
	"중간":     ConfidenceMedium,
	"낮음":     ConfidenceLow,
}

// ParseConfidence maps a level name to a Confidence. Unrecognized input is
// ConfidenceLow.
func ParseConfidence(s string) Confidence {
	c, _ := LookupConfidence(s)
	return c
}

// LookupConfidence is ParseConfidence for user-supplied thresholds: ok is
// false when s names no level.
func LookupConfidence(s string) (c Confidence, ok bool) {
	c, ok = confidenceNames[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// String returns the canonical English name.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// Label returns the Korean display label.
func (c Confidence) Label() string {
	switch c {
	case ConfidenceHigh:
		return "높음"
	case ConfidenceMedium:
		return "중간"
	default:
		return "낮음"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Confidence) UnmarshalText(b []byte) error {
	*c = ParseConfidence(string(b))
	return nil
}
