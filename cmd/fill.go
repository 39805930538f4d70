package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/form"
	"github.com/dcdoc/dcform-cli/internal/sheet"
)

var fillCmd = &cobra.Command{
	Use:   "fill <template.docx>",
	Short: "Replace a tagged template's placeholders with answers",
	Long:  "Reads key/value answers from a .yaml, .json or .xlsx file and writes them into the template's {{key}} placeholders. Keys without an answer stay as tags.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answersPath, _ := cmd.Flags().GetString("answers")
		out, _ := cmd.Flags().GetString("out")

		answers, err := sheet.LoadAnswers(answersPath)
		if err != nil {
			return err
		}
		doc, err := openDocument(args[0])
		if err != nil {
			return err
		}

		replaced := form.ReplacePlaceholders(doc, answers)
		data, err := doc.Bytes()
		if err != nil {
			return eris.Wrap(err, "fill")
		}
		path := outputPath(args[0], out, "filled")
		if err := writeFileAtomic(path, data); err != nil {
			return err
		}

		remaining := form.FindPlaceholders(doc)
		log := zap.L().With(zap.String("path", path))
		if len(remaining) > 0 {
			log.Warn("placeholders left unfilled", zap.Strings("keys", remaining))
		}
		log.Info("filled form written",
			zap.Int("answers", len(answers)),
			zap.Int("paragraphs_replaced", replaced),
		)
		return nil
	},
}

func init() {
	fillCmd.Flags().String("answers", "", "answers file (.yaml, .json or .xlsx)")
	fillCmd.Flags().String("out", "", "output path (default <template>_filled.docx)")
	_ = fillCmd.MarkFlagRequired("answers")
	rootCmd.AddCommand(fillCmd)
}
