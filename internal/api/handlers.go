package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/form"
	"github.com/dcdoc/dcform-cli/internal/model"
	"github.com/dcdoc/dcform-cli/internal/sheet"
	"github.com/dcdoc/dcform-cli/internal/store"
	"github.com/dcdoc/dcform-cli/internal/tagger"
)

const (
	headerRemoved = "X-Removed-Tags"
	fieldReview   = "review"
)

type scanResponse struct {
	Mode         model.TemplateMode   `json:"mode"`
	Placeholders []string             `json:"placeholders"`
	Cells        []model.TaggableCell `json:"cells"`
}

type suggestResponse struct {
	Cells       []model.TaggableCell   `json:"cells"`
	Mappings    []model.CellTagMapping `json:"mappings"`
	CurrentKeys map[string]string      `json:"current_keys,omitempty"`
}

type templateResponse struct {
	*model.Template
	Mappings []model.CellTagMapping `json:"mappings,omitempty"`
}

type applyRequest struct {
	Assignments   []form.Assignment `json:"assignments"`
	MinConfidence string            `json:"min_confidence"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scan(u.doc))
}

func scan(doc *docx.Document) scanResponse {
	placeholders := form.FindPlaceholders(doc)
	cells := form.DetectTaggableCells(doc)
	if cells == nil {
		cells = []model.TaggableCell{}
	}
	return scanResponse{
		Mode:         model.ModeFor(placeholders),
		Placeholders: placeholders,
		Cells:        cells,
	}
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if !s.requireClassifier(w) {
		return
	}
	u, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.suggest(r, u.doc))
}

func (s *Server) suggest(r *http.Request, doc *docx.Document) suggestResponse {
	cells, keys := form.CandidateCells(doc)
	if cells == nil {
		cells = []model.TaggableCell{}
	}
	resp := suggestResponse{
		Cells:    cells,
		Mappings: tagger.GenerateCellTags(r.Context(), s.classifier, cells, s.catalog),
	}
	if len(keys) > 0 {
		resp.CurrentKeys = make(map[string]string, len(keys))
		for c, k := range keys {
			resp.CurrentKeys[c.ID()] = k
		}
	}
	return resp
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	assignments, err := u.assignments()
	if err != nil {
		writeError(w, err)
		return
	}

	if r.FormValue("keep_existing") != "true" {
		form.StripPlaceholderTags(u.doc)
	}
	data, err := form.InsertPlaceholderTags(u.doc, assignments)
	if err != nil {
		writeError(w, eris.Wrap(err, "api: insert tags"))
		return
	}
	writeDocument(w, outputName(u.fileName, "tagged"), data)
}

// assignments reads the assignments from an uploaded review workbook, or
// from the JSON assignments field when no workbook was sent.
func (u *upload) assignments() ([]form.Assignment, error) {
	if f, _, err := u.r.FormFile(fieldReview); err == nil {
		defer f.Close() //nolint:errcheck
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, badRequest("read review workbook: %v", err)
		}
		out, err := sheet.ReadReviewBytes(data)
		if err != nil {
			return nil, badRequest("invalid review workbook: %v", err)
		}
		return out, nil
	}

	var out []form.Assignment
	if err := u.jsonField(fieldAssignments, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) handleStrip(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	n := form.StripPlaceholderTags(u.doc)
	data, err := u.doc.Bytes()
	if err != nil {
		writeError(w, eris.Wrap(err, "api: strip tags"))
		return
	}
	w.Header().Set(headerRemoved, strconv.Itoa(n))
	writeDocument(w, outputName(u.fileName, "untagged"), data)
}

func (s *Server) handleFill(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	answers, err := u.answers()
	if err != nil {
		writeError(w, err)
		return
	}

	n := form.ReplacePlaceholders(u.doc, answers)
	data, err := u.doc.Bytes()
	if err != nil {
		writeError(w, eris.Wrap(err, "api: fill document"))
		return
	}
	w.Header().Set(headerReplaced, strconv.Itoa(n))
	writeDocument(w, outputName(u.fileName, "filled"), data)
}

// answers reads key/value answers from an uploaded answers file (.xlsx,
// .yaml or .json), or from the JSON answers field.
func (u *upload) answers() (map[string]string, error) {
	if f, hdr, err := u.r.FormFile(fieldAnswers); err == nil {
		defer f.Close() //nolint:errcheck
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, badRequest("read answers file: %v", err)
		}
		out, err := sheet.DecodeAnswers(data, filepath.Ext(hdr.Filename))
		if err != nil {
			return nil, badRequest("invalid answers file: %v", err)
		}
		return out, nil
	}

	out := map[string]string{}
	if err := u.jsonField(fieldAnswers, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TemplateFilter{Hospital: q.Get("hospital")}

	switch mode := model.TemplateMode(q.Get("mode")); mode {
	case "", model.ModeNeedsTagging, model.ModeTagged:
		filter.Mode = mode
	default:
		writeError(w, badRequest("invalid mode %q", mode))
		return
	}

	var err error
	if filter.Limit, err = queryInt(q.Get("limit")); err != nil {
		writeError(w, badRequest("invalid limit"))
		return
	}
	if filter.Offset, err = queryInt(q.Get("offset")); err != nil {
		writeError(w, badRequest("invalid offset"))
		return
	}

	templates, err := s.store.ListTemplates(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if templates == nil {
		templates = []model.Template{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Errorf("api: invalid integer %q", v)
	}
	return n, nil
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	u, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	hospital := r.FormValue(fieldHospital)
	if hospital == "" {
		writeError(w, badRequest("missing %q field", fieldHospital))
		return
	}

	tmpl, err := store.TemplateFromDocument(hospital, u.fileName, u.data)
	if err != nil {
		writeError(w, badRequest("invalid template: %v", err))
		return
	}
	created, err := s.store.CreateTemplate(r.Context(), tmpl)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tmpl, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	mappings, err := s.store.GetTagMappings(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templateResponse{Template: tmpl, Mappings: mappings})
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTemplateDocument(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.store.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeDocument(w, tmpl.FileName, tmpl.Document)
}

// handleTemplateSuggest classifies a stored template's cells and saves the
// proposals as the template's tag mappings.
func (s *Server) handleTemplateSuggest(w http.ResponseWriter, r *http.Request) {
	if !s.requireClassifier(w) {
		return
	}
	id := chi.URLParam(r, "id")
	tmpl, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := docx.Open(tmpl.Document)
	if err != nil {
		writeError(w, eris.Wrapf(err, "api: open template %s", id))
		return
	}

	resp := s.suggest(r, doc)
	if err := s.store.SaveTagMappings(r.Context(), id, resp.Mappings); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTemplateTags re-tags a stored template. Existing tags are stripped
// first. The body carries explicit assignments; when it has none, the saved
// mappings at or above min_confidence (default high) are applied to the
// stripped form's cells.
func (s *Server) handleTemplateTags(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req applyRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, badRequest("invalid request body: %v", err))
		return
	}
	threshold := model.ConfidenceHigh
	if req.MinConfidence != "" {
		var ok bool
		if threshold, ok = model.LookupConfidence(req.MinConfidence); !ok {
			writeError(w, badRequest("invalid min_confidence %q (want high, medium or low)", req.MinConfidence))
			return
		}
	}

	tmpl, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := docx.Open(tmpl.Document)
	if err != nil {
		writeError(w, eris.Wrapf(err, "api: open template %s", id))
		return
	}

	form.StripPlaceholderTags(doc)
	assignments := req.Assignments
	if len(assignments) == 0 {
		mappings, err := s.store.GetTagMappings(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if len(mappings) == 0 {
			writeError(w, badRequest("no assignments given and no saved mappings for template %s", id))
			return
		}
		assignments = tagger.Accept(form.DetectTaggableCells(doc), mappings, threshold)
	}

	data, err := form.InsertPlaceholderTags(doc, assignments)
	if err != nil {
		writeError(w, eris.Wrap(err, "api: insert tags"))
		return
	}
	updated, err := s.store.UpdateTemplateDocument(r.Context(), id, data, form.FindPlaceholders(doc))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) requireClassifier(w http.ResponseWriter) bool {
	if s.classifier != nil {
		return true
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "tag suggestion is not configured"})
	return false
}
