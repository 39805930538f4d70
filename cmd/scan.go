package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dcdoc/dcform-cli/internal/form"
	"github.com/dcdoc/dcform-cli/internal/model"
)

// scanReport is the scan result for one document.
type scanReport struct {
	Path         string               `json:"path"`
	Mode         model.TemplateMode   `json:"mode"`
	Placeholders []string             `json:"placeholders"`
	Cells        []model.TaggableCell `json:"cells"`
	Error        string               `json:"error,omitempty"`
}

var scanCmd = &cobra.Command{
	Use:   "scan <form.docx>...",
	Short: "List the taggable cells and placeholders of DC forms",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		reports := scanDocuments(args, concurrency)
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(reports); err != nil {
				return err
			}
		} else {
			formatScanReports(os.Stdout, reports)
		}
		return scanFailures(reports)
	},
}

// scanFailures returns an error naming how many documents could not be
// scanned, or nil when all were read.
func scanFailures(reports []scanReport) error {
	failed := 0
	for _, r := range reports {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return eris.Errorf("scan: %d of %d documents could not be read", failed, len(reports))
	}
	return nil
}

func init() {
	scanCmd.Flags().Bool("json", false, "print reports as JSON")
	scanCmd.Flags().Int("concurrency", 4, "documents scanned in parallel")
	rootCmd.AddCommand(scanCmd)
}

// scanDocuments scans paths concurrently. A document that cannot be opened
// gets a report carrying the error; the others are unaffected. Reports keep
// the order of paths.
func scanDocuments(paths []string, concurrency int) []scanReport {
	if concurrency < 1 {
		concurrency = 1
	}
	reports := make([]scanReport, len(paths))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			reports[i] = scanDocument(path)
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

func scanDocument(path string) scanReport {
	r := scanReport{Path: path}
	doc, err := openDocument(path)
	if err != nil {
		zap.L().Warn("scan failed", zap.String("path", path), zap.Error(err))
		r.Error = err.Error()
		return r
	}

	r.Placeholders = form.FindPlaceholders(doc)
	r.Mode = model.ModeFor(r.Placeholders)
	r.Cells = form.DetectTaggableCells(doc)
	zap.L().Debug("scanned document",
		zap.String("path", path),
		zap.Int("cells", len(r.Cells)),
		zap.Int("placeholders", len(r.Placeholders)),
	)
	return r
}

// formatScanReports writes each document's summary and cell table to out.
func formatScanReports(out io.Writer, reports []scanReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, r := range reports {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		if r.Error != "" {
			_, _ = fmt.Fprintf(w, "%s\terror: %s\n", r.Path, r.Error)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d placeholders\t%d cells\n", r.Path, r.Mode, len(r.Placeholders), len(r.Cells))
		if len(r.Cells) == 0 {
			continue
		}
		_, _ = fmt.Fprintln(w, "  CELL\tTYPE\tQUESTION")
		for _, c := range r.Cells {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", c.ID(), c.Type, truncate(c.Question, 60))
		}
	}
	_ = w.Flush()
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
