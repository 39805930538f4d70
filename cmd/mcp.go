package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/mcp"
	"github.com/dcdoc/dcform-cli/internal/tagger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the form tools over MCP stdio",
	Long: "Runs a Model Context Protocol server on stdin/stdout exposing scan_form, suggest_tags, apply_tags, " +
		"strip_tags and fill_form. suggest_tags needs anthropic.key; logs go to stderr.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}

		var classifier tagger.Classifier
		if cfg.Anthropic.Key != "" {
			if classifier, err = initClassifier(); err != nil {
				return err
			}
		} else {
			zap.L().Warn("anthropic.key not set, suggest_tags disabled")
		}

		srv := mcp.NewServer(classifier, catalog, mcp.Options{
			Name:      rootCmd.Use,
			Version:   cmd.Root().Version,
			WriteFile: writeFileAtomic,
		})
		zap.L().Info("starting mcp server", zap.Int("catalog_fields", catalog.Len()))
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
