package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/docx"
	"github.com/dcdoc/dcform-cli/internal/form"
	"github.com/dcdoc/dcform-cli/internal/model"
	"github.com/dcdoc/dcform-cli/internal/sheet"
	"github.com/dcdoc/dcform-cli/internal/tagger"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Propose, apply and strip placeholder tags",
}

// -- tag suggest --

var tagSuggestCmd = &cobra.Command{
	Use:   "suggest <form.docx>",
	Short: "Propose a placeholder key for every taggable cell",
	Long: "Classifies the form's taggable cells and writes a review workbook. Edit the accepted_key column, " +
		"then run \"dcform tag apply --review\". For an already-tagged form the current keys are shown alongside.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		classifier, err := initClassifier()
		if err != nil {
			return err
		}
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		doc, err := openDocument(args[0])
		if err != nil {
			return err
		}

		cells, keys := form.CandidateCells(doc)
		mappings := tagger.GenerateCellTags(ctx, classifier, cells, catalog)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(mappings); err != nil {
				return err
			}
		} else {
			formatMappings(os.Stdout, mappings, keys)
		}

		reviewPath, _ := cmd.Flags().GetString("review")
		if reviewPath == "" {
			reviewPath = reviewPathFor(args[0])
		}
		var buf bytes.Buffer
		if err := sheet.WriteReview(&buf, cells, mappings); err != nil {
			return eris.Wrap(err, "tag suggest")
		}
		if err := writeFileAtomic(reviewPath, buf.Bytes()); err != nil {
			return err
		}

		zap.L().Info("review workbook written",
			zap.String("path", reviewPath),
			zap.Int("cells", len(cells)),
		)
		return nil
	},
}

// -- tag apply --

var tagApplyCmd = &cobra.Command{
	Use:   "apply <form.docx>",
	Short: "Insert placeholder tags from a review workbook or from fresh suggestions",
	Long: "Writes {{key}} tags into the form. Existing tags are stripped first unless --keep-existing is set, " +
		"so applying to a tagged form re-tags it.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reviewPath, _ := cmd.Flags().GetString("review")
		auto, _ := cmd.Flags().GetBool("auto")
		minConfidence, _ := cmd.Flags().GetString("min-confidence")
		keepExisting, _ := cmd.Flags().GetBool("keep-existing")
		out, _ := cmd.Flags().GetString("out")

		if (reviewPath == "") == !auto {
			return eris.New("tag apply: exactly one of --review or --auto is required")
		}
		threshold, ok := model.LookupConfidence(minConfidence)
		if !ok {
			return eris.Errorf("tag apply: invalid --min-confidence %q (want high, medium or low)", minConfidence)
		}

		doc, err := openDocument(args[0])
		if err != nil {
			return err
		}
		if !keepExisting {
			form.StripPlaceholderTags(doc)
		}

		var assignments []form.Assignment
		if auto {
			assignments, err = autoAssignments(ctx, doc, threshold)
		} else {
			assignments, err = sheet.ReadReview(reviewPath)
		}
		if err != nil {
			return err
		}

		data, err := form.InsertPlaceholderTags(doc, assignments)
		if err != nil {
			return eris.Wrap(err, "tag apply")
		}
		path := outputPath(args[0], out, "tagged")
		if err := writeFileAtomic(path, data); err != nil {
			return err
		}

		placeholders := form.FindPlaceholders(doc)
		zap.L().Info("tagged form written",
			zap.String("path", path),
			zap.Int("assignments", len(assignments)),
			zap.Strings("placeholders", placeholders),
		)
		return nil
	},
}

// autoAssignments classifies the form's cells and accepts the proposals at
// or above threshold.
func autoAssignments(ctx context.Context, doc *docx.Document, threshold model.Confidence) ([]form.Assignment, error) {
	classifier, err := initClassifier()
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	cells := form.DetectTaggableCells(doc)
	mappings := tagger.GenerateCellTags(ctx, classifier, cells, catalog)
	return tagger.Accept(cells, mappings, threshold), nil
}

// -- tag strip --

var tagStripCmd = &cobra.Command{
	Use:   "strip <form.docx>",
	Short: "Remove every placeholder tag from a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		doc, err := openDocument(args[0])
		if err != nil {
			return err
		}
		removed := form.StripPlaceholderTags(doc)
		data, err := doc.Bytes()
		if err != nil {
			return eris.Wrap(err, "tag strip")
		}
		path := outputPath(args[0], tagStripOut, "untagged")
		if err := writeFileAtomic(path, data); err != nil {
			return err
		}
		zap.L().Info("untagged form written", zap.String("path", path), zap.Int("removed", removed))
		return nil
	},
}

var tagStripOut string

func init() {
	tagSuggestCmd.Flags().String("review", "", "review workbook path (default <form>_review.xlsx)")
	tagSuggestCmd.Flags().Bool("json", false, "print mappings as JSON")

	tagApplyCmd.Flags().String("review", "", "review workbook with accepted keys")
	tagApplyCmd.Flags().Bool("auto", false, "classify now and accept proposals at or above --min-confidence")
	tagApplyCmd.Flags().String("min-confidence", "high", "lowest confidence accepted with --auto (high, medium, low)")
	tagApplyCmd.Flags().Bool("keep-existing", false, "do not strip existing tags before inserting")
	tagApplyCmd.Flags().String("out", "", "output path (default <form>_tagged.docx)")

	tagStripCmd.Flags().StringVar(&tagStripOut, "out", "", "output path (default <form>_untagged.docx)")

	tagCmd.AddCommand(tagSuggestCmd)
	tagCmd.AddCommand(tagApplyCmd)
	tagCmd.AddCommand(tagStripCmd)
	rootCmd.AddCommand(tagCmd)
}

func reviewPathFor(docPath string) string {
	return strings.TrimSuffix(docPath, filepath.Ext(docPath)) + "_review.xlsx"
}

// formatMappings writes the proposals as a table. current holds the keys of
// an already-tagged form and may be nil.
func formatMappings(out io.Writer, mappings []model.CellTagMapping, current map[model.CellCoord]string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if current != nil {
		_, _ = fmt.Fprintln(w, "CELL\tKEY\tCONFIDENCE\tCURRENT\tQUESTION")
	} else {
		_, _ = fmt.Fprintln(w, "CELL\tKEY\tCONFIDENCE\tQUESTION")
	}
	for _, m := range mappings {
		if current != nil {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.ID(), m.PlaceholderKey, m.Confidence, current[m.CellCoord], truncate(m.Question, 50))
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID(), m.PlaceholderKey, m.Confidence, truncate(m.Question, 50))
	}
	_ = w.Flush()
}
