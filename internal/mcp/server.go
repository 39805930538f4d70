// Package mcp exposes the form tagging operations as Model Context Protocol
// tools over stdio.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/form"
	"github.com/dcdoc/dcform-cli/internal/model"
	"github.com/dcdoc/dcform-cli/internal/sheet"
	"github.com/dcdoc/dcform-cli/internal/tagger"
)

// WriteFunc persists an output document.
type WriteFunc func(path string, data []byte) error

// Options configures a Server.
type Options struct {
	Name    string
	Version string
	// WriteFile defaults to os.WriteFile with 0644 permissions.
	WriteFile WriteFunc
}

// Server wraps an MCP server with the form tools registered.
type Server struct {
	classifier tagger.Classifier
	catalog    *model.Catalog
	write      WriteFunc
	mcpServer  *server.MCPServer
}

// NewServer registers the tools. classifier may be nil, in which case
// suggest_tags reports that classification is not configured.
func NewServer(classifier tagger.Classifier, catalog *model.Catalog, opts Options) *Server {
	if catalog == nil {
		catalog = model.DefaultCatalog()
	}
	if opts.Name == "" {
		opts.Name = "dcform"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	write := opts.WriteFile
	if write == nil {
		write = func(path string, data []byte) error {
			return os.WriteFile(path, data, 0o644)
		}
	}

	s := &Server{
		classifier: classifier,
		catalog:    catalog,
		write:      write,
		mcpServer:  server.NewMCPServer(opts.Name, opts.Version, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	pathArg := mcpgo.WithString("path", mcpgo.Required(), mcpgo.Description("Full path to the .docx form"))
	outArg := mcpgo.WithString("out", mcpgo.Description("Output path; defaults to a suffixed copy next to the input"))

	s.mcpServer.AddTool(mcpgo.NewTool("scan_form",
		mcpgo.WithDescription("Report a form's mode, existing placeholders and taggable cells"),
		pathArg,
	), s.handleScan)

	s.mcpServer.AddTool(mcpgo.NewTool("suggest_tags",
		mcpgo.WithDescription("Propose a placeholder key and confidence for every taggable cell"),
		pathArg,
		mcpgo.WithString("review_path", mcpgo.Description("Also write a review .xlsx here for manual editing")),
	), s.handleSuggest)

	s.mcpServer.AddTool(mcpgo.NewTool("apply_tags",
		mcpgo.WithDescription("Insert {{key}} tags from a review workbook or from suggest_tags mappings; "+
			"existing tags are stripped first"),
		pathArg,
		mcpgo.WithString("review_path", mcpgo.Description("Review .xlsx with accepted keys")),
		mcpgo.WithString("mappings", mcpgo.Description("JSON array of mappings as returned by suggest_tags")),
		mcpgo.WithString("min_confidence", mcpgo.Description("Lowest confidence applied from mappings: high (default), medium or low")),
		mcpgo.WithBoolean("keep_existing", mcpgo.Description("Keep existing tags instead of re-tagging")),
		outArg,
	), s.handleApply)

	s.mcpServer.AddTool(mcpgo.NewTool("strip_tags",
		mcpgo.WithDescription("Remove every placeholder tag from a form"),
		pathArg,
		outArg,
	), s.handleStrip)

	s.mcpServer.AddTool(mcpgo.NewTool("fill_form",
		mcpgo.WithDescription("Replace placeholders with answers from a .yaml, .json or .xlsx file"),
		pathArg,
		mcpgo.WithString("answers_path", mcpgo.Required(), mcpgo.Description("Answers file")),
		outArg,
	), s.handleFill)
}

// ServeStdio blocks serving tools on stdin/stdout.
func (s *Server) ServeStdio() error {
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return eris.Wrap(err, "mcp: serve stdio")
	}
	return nil
}

type scanResult struct {
	Mode         model.TemplateMode   `json:"mode"`
	Placeholders []string             `json:"placeholders"`
	Cells        []model.TaggableCell `json:"cells"`
}

type writeResult struct {
	Path         string   `json:"path"`
	Changed      int      `json:"changed"`
	Placeholders []string `json:"placeholders"`
}

func (s *Server) handleScan(_ context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	doc, errResult := openArg(request)
	if errResult != nil {
		return errResult, nil
	}
	placeholders := form.FindPlaceholders(doc)
	cells := form.DetectTaggableCells(doc)
	if cells == nil {
		cells = []model.TaggableCell{}
	}
	return jsonResult(scanResult{
		Mode:         model.ModeFor(placeholders),
		Placeholders: placeholders,
		Cells:        cells,
	})
}

func (s *Server) handleSuggest(ctx context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.classifier == nil {
		return mcpgo.NewToolResultError("classification is not configured (set anthropic.key)"), nil
	}
	doc, errResult := openArg(request)
	if errResult != nil {
		return errResult, nil
	}
	cells, _ := form.CandidateCells(doc)
	mappings := tagger.GenerateCellTags(ctx, s.classifier, cells, s.catalog)
	if mappings == nil {
		mappings = []model.CellTagMapping{}
	}

	if reviewPath, _ := request.GetArguments()["review_path"].(string); reviewPath != "" {
		var buf bytes.Buffer
		if err := sheet.WriteReview(&buf, cells, mappings); err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
		if err := s.write(reviewPath, buf.Bytes()); err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
	}
	return jsonResult(mappings)
}

func (s *Server) handleApply(_ context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	args := request.GetArguments()
	reviewPath, _ := args["review_path"].(string)
	mappingsJSON, _ := args["mappings"].(string)
	if (reviewPath == "") == (mappingsJSON == "") {
		return mcpgo.NewToolResultError("exactly one of review_path or mappings is required"), nil
	}
	threshold := model.ConfidenceHigh
	if v, _ := args["min_confidence"].(string); v != "" {
		var ok bool
		if threshold, ok = model.LookupConfidence(v); !ok {
			return mcpgo.NewToolResultError(fmt.Sprintf("invalid min_confidence %q (want high, medium or low)", v)), nil
		}
	}

	doc, errResult := openArg(request)
	if errResult != nil {
		return errResult, nil
	}
	if keep, _ := args["keep_existing"].(bool); !keep {
		form.StripPlaceholderTags(doc)
	}

	var assignments []form.Assignment
	if reviewPath != "" {
		var err error
		if assignments, err = sheet.ReadReview(reviewPath); err != nil {
			return mcpgo.NewToolResultError(err.Error()), nil
		}
	} else {
		var mappings []model.CellTagMapping
		if err := json.Unmarshal([]byte(mappingsJSON), &mappings); err != nil {
			return mcpgo.NewToolResultError("invalid mappings: " + err.Error()), nil
		}
		assignments = tagger.Accept(form.DetectTaggableCells(doc), mappings, threshold)
	}
	data, err := form.InsertPlaceholderTags(doc, assignments)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return s.writeOutput(request, "tagged", data, doc, len(assignments))
}

func (s *Server) handleStrip(_ context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	doc, errResult := openArg(request)
	if errResult != nil {
		return errResult, nil
	}
	removed := form.StripPlaceholderTags(doc)
	data, err := doc.Bytes()
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return s.writeOutput(request, "untagged", data, doc, removed)
}

func (s *Server) handleFill(_ context.Context, request mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	answersPath, err := request.RequireString("answers_path")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	answers, err := sheet.LoadAnswers(answersPath)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	doc, errResult := openArg(request)
	if errResult != nil {
		return errResult, nil
	}
	replaced := form.ReplacePlaceholders(doc, answers)
	data, err := doc.Bytes()
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return s.writeOutput(request, "filled", data, doc, replaced)
}

func (s *Server) writeOutput(request mcpgo.CallToolRequest, suffix string, data []byte, doc *docx.Document, changed int) (*mcpgo.CallToolResult, error) {
	in, _ := request.RequireString("path")
	out, _ := request.GetArguments()["out"].(string)
	path := out
	if path == "" {
		ext := filepath.Ext(in)
		path = strings.TrimSuffix(in, ext) + "_" + suffix + ext
	}
	if err := s.write(path, data); err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	zap.L().Info("mcp: document written",
		zap.String("tool", request.Params.Name),
		zap.String("path", path),
		zap.Int("changed", changed),
	)
	return jsonResult(writeResult{Path: path, Changed: changed, Placeholders: form.FindPlaceholders(doc)})
}

func openArg(request mcpgo.CallToolRequest) (*docx.Document, *mcpgo.CallToolResult) {
	path, err := request.RequireString("path")
	if err != nil {
		return nil, mcpgo.NewToolResultError(err.Error())
	}
	doc, err := docx.OpenFile(path)
	if err != nil {
		return nil, mcpgo.NewToolResultError(err.Error())
	}
	return doc, nil
}

func jsonResult(v any) (*mcpgo.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "mcp: encode result")
	}
	return mcpgo.NewToolResultText(string(data)), nil
}
