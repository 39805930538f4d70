package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/form"
	"github.com/dcdoc/dcform-cli/internal/model"
)

// ErrNotFound is returned (wrapped) when a template does not exist.
var ErrNotFound = eris.New("store: not found")

// TemplateFilter specifies criteria for listing templates.
type TemplateFilter struct {
	Hospital string             `json:"hospital,omitempty"`
	Mode     model.TemplateMode `json:"mode,omitempty"`
	Limit    int                `json:"limit,omitempty"`
	Offset   int                `json:"offset,omitempty"`
}

// Store persists hospital form templates and the tag mappings proposed for
// them. Documents are only ever written as complete byte buffers.
type Store interface {
	// Templates
	CreateTemplate(ctx context.Context, t *model.Template) (*model.Template, error)
	UpdateTemplateDocument(ctx context.Context, id string, document []byte, placeholders []string) (*model.Template, error)
	GetTemplate(ctx context.Context, id string) (*model.Template, error)
	ListTemplates(ctx context.Context, filter TemplateFilter) ([]model.Template, error)
	DeleteTemplate(ctx context.Context, id string) error

	// Tag mappings
	SaveTagMappings(ctx context.Context, templateID string, mappings []model.CellTagMapping) error
	GetTagMappings(ctx context.Context, templateID string) ([]model.CellTagMapping, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// TemplateFromDocument parses document and returns an unsaved template with
// its placeholders and mode filled in.
func TemplateFromDocument(hospital, fileName string, document []byte) (*model.Template, error) {
	if hospital == "" {
		return nil, eris.New("store: hospital is required")
	}
	doc, err := docx.Open(document)
	if err != nil {
		return nil, eris.Wrapf(err, "store: parse template %s", fileName)
	}
	placeholders := form.FindPlaceholders(doc)
	return &model.Template{
		Hospital:     hospital,
		FileName:     fileName,
		Mode:         model.ModeFor(placeholders),
		Placeholders: placeholders,
		Document:     document,
	}, nil
}

// DocumentPlaceholders parses document and returns its placeholder keys.
func DocumentPlaceholders(document []byte) ([]string, error) {
	doc, err := docx.Open(document)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse document")
	}
	return form.FindPlaceholders(doc), nil
}

func listLimit(f TemplateFilter) int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}
