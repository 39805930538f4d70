package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/store"
)

const (
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	headerReplaced  = "X-Replaced-Paragraphs"

	fieldDocument    = "document"
	fieldAssignments = "assignments"
	fieldAnswers     = "answers"
	fieldHospital    = "hospital"
)

// errBadRequest marks client errors.
var errBadRequest = eris.New("api: bad request")

func badRequest(format string, args ...any) error {
	return eris.Wrapf(errBadRequest, format, args...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError maps err to a status code and writes a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		msg = strings.TrimSuffix(err.Error(), ": "+errBadRequest.Error())
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		msg = "not found"
	default:
		zap.L().Error("api: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeDocument(w http.ResponseWriter, fileName string, data []byte) {
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.L().Warn("api: write document", zap.Error(err))
	}
}

// upload is a parsed multipart request carrying a document.
type upload struct {
	fileName string
	data     []byte
	doc      *docx.Document
	r        *http.Request
}

// readUpload parses the multipart body and the document field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		return nil, badRequest("invalid multipart body: %v", err)
	}

	f, hdr, err := r.FormFile(fieldDocument)
	if err != nil {
		return nil, badRequest("missing %q file field", fieldDocument)
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, badRequest("read document: %v", err)
	}
	doc, err := docx.Open(data)
	if err != nil {
		return nil, badRequest("document is not a valid .docx file")
	}

	return &upload{fileName: path.Base(hdr.Filename), data: data, doc: doc, r: r}, nil
}

// jsonField decodes a JSON form value into v. A missing field is an error
// unless optional is set.
func (u *upload) jsonField(name string, v any, optional bool) error {
	raw := u.r.FormValue(name)
	if raw == "" {
		if optional {
			return nil
		}
		return badRequest("missing %q field", name)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return badRequest("invalid %q field: %v", name, err)
	}
	return nil
}

// outputName derives a download name, e.g. "form.docx" → "form_tagged.docx".
func outputName(fileName, suffix string) string {
	base := strings.TrimSuffix(fileName, path.Ext(fileName))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "_" + suffix + ".docx"
}
