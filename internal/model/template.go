package model

import "time"

// TemplateMode is the tagging state of a hospital template.
type TemplateMode string

// Template modes. A template moves from needs_tagging to tagged once
// placeholder tags have been inserted.
const (
	ModeNeedsTagging TemplateMode = "needs_tagging"
	ModeTagged       TemplateMode = "tagged"
)

// ModeFor derives the mode from the placeholders found in a document.
func ModeFor(placeholders []string) TemplateMode {
	if len(placeholders) > 0 {
		return ModeTagged
	}
	return ModeNeedsTagging
}

// Template is a registered hospital form.
type Template struct {
	ID           string       `json:"id"`
	Hospital     string       `json:"hospital"`
	FileName     string       `json:"file_name"`
	Mode         TemplateMode `json:"mode"`
	Placeholders []string     `json:"placeholders"`
	Document     []byte       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
