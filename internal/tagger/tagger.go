// Package tagger proposes a semantic field key for each taggable form cell
// by asking a text classifier, and reconciles the answer into exactly one
// mapping per cell.
package tagger

import (
	"context"

	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/model"
)

// Classifier answers a classification prompt with free text that should
// contain the JSON mapping object.
type Classifier interface {
	Classify(ctx context.Context, prompt Prompt) (string, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, prompt Prompt) (string, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// GenerateCellTags returns one mapping per input cell, in input order.
//
// The classifier is called once. If it fails, or its response cannot be
// parsed, or it proposes nothing, every cell falls back to unknown/low.
// Cells the response leaves out fall back individually; entries for cell
// ids that were not asked about are dropped, and for a repeated cell id the
// first entry wins. Classification problems are logged, never returned.
func GenerateCellTags(ctx context.Context, c Classifier, cells []model.TaggableCell, catalog *model.Catalog) []model.CellTagMapping {
	if len(cells) == 0 {
		return []model.CellTagMapping{}
	}
	if catalog == nil {
		catalog = model.DefaultCatalog()
	}

	log := zap.L().With(zap.Int("cells", len(cells)))

	text, err := c.Classify(ctx, BuildPrompt(cells, catalog))
	if err != nil {
		log.Warn("tagger: classifier call failed, falling back to unknown", zap.Error(err))
		return fallbackAll(cells)
	}

	proposals, ok := ParseResponse(text)
	if !ok {
		log.Warn("tagger: unparseable classifier response, falling back to unknown",
			zap.Int("response_len", len(text)),
		)
		return fallbackAll(cells)
	}
	if len(proposals) == 0 {
		log.Warn("tagger: classifier proposed no mappings, falling back to unknown")
		return fallbackAll(cells)
	}

	out := Reconcile(cells, proposals, catalog)

	var unknown int
	for _, m := range out {
		if m.IsUnknown() {
			unknown++
		}
	}
	log.Info("tagger: generated cell tags",
		zap.Int("proposals", len(proposals)),
		zap.Int("unknown", unknown),
	)
	return out
}

// Reconcile turns proposals into exactly one mapping per cell. Keys outside
// the catalog are replaced with unknown/low so that only fillable tags are
// ever proposed.
func Reconcile(cells []model.TaggableCell, proposals []Proposal, catalog *model.Catalog) []model.CellTagMapping {
	byID := make(map[string]Proposal, len(proposals))
	for _, p := range proposals {
		if _, seen := byID[p.CellID]; seen {
			zap.L().Debug("tagger: duplicate cell id in response, keeping first", zap.String("cell_id", p.CellID))
			continue
		}
		byID[p.CellID] = p
	}

	out := make([]model.CellTagMapping, 0, len(cells))
	for _, cell := range cells {
		p, ok := byID[cell.ID()]
		if !ok {
			zap.L().Debug("tagger: cell missing from response", zap.String("cell_id", cell.ID()))
			out = append(out, model.FallbackMapping(cell))
			continue
		}

		m := model.CellTagMapping{
			CellCoord:      cell.CellCoord,
			Question:       cell.Question,
			PlaceholderKey: p.Key,
			Confidence:     p.Confidence,
		}
		if p.Key != model.UnknownKey && (catalog == nil || !catalog.Has(p.Key)) {
			zap.L().Debug("tagger: key not in catalog",
				zap.String("cell_id", cell.ID()),
				zap.String("key", p.Key),
			)
			m = model.FallbackMapping(cell)
		}
		out = append(out, m)
	}

	if len(byID) > 0 {
		asked := make(map[string]struct{}, len(cells))
		for _, cell := range cells {
			asked[cell.ID()] = struct{}{}
		}
		for id := range byID {
			if _, ok := asked[id]; !ok {
				zap.L().Debug("tagger: dropping mapping for unknown cell id", zap.String("cell_id", id))
			}
		}
	}
	return out
}

func fallbackAll(cells []model.TaggableCell) []model.CellTagMapping {
	out := make([]model.CellTagMapping, len(cells))
	for i, c := range cells {
		out[i] = model.FallbackMapping(c)
	}
	return out
}
