package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dcdoc/dcform-cli/internal/model"
	"github.com/dcdoc/dcform-cli/internal/store"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Manage the hospital template registry",
}

// -- templates add --

var templatesAddCmd = &cobra.Command{
	Use:   "add <form.docx>",
	Short: "Register a hospital form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		hospital, _ := cmd.Flags().GetString("hospital")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		tmpl, err := store.TemplateFromDocument(hospital, filepath.Base(args[0]), data)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		created, err := st.CreateTemplate(ctx, tmpl)
		if err != nil {
			return eris.Wrap(err, "templates add")
		}

		zap.L().Info("template registered",
			zap.String("id", created.ID),
			zap.String("hospital", created.Hospital),
			zap.String("mode", string(created.Mode)),
		)
		fmt.Println(created.ID)
		return nil
	},
}

// -- templates list --

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		hospital, _ := cmd.Flags().GetString("hospital")
		mode, _ := cmd.Flags().GetString("mode")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		templates, err := st.ListTemplates(ctx, store.TemplateFilter{
			Hospital: hospital,
			Mode:     model.TemplateMode(mode),
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "templates list")
		}

		if len(templates) == 0 {
			fmt.Fprintln(os.Stderr, "No templates found.")
			return nil
		}
		formatTemplatesList(os.Stdout, templates)
		return nil
	},
}

// -- templates show --

var templatesShowCmd = &cobra.Command{
	Use:   "show <template-id>",
	Short: "Show a template and its saved tag mappings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tmpl, err := st.GetTemplate(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "templates show")
		}
		mappings, err := st.GetTagMappings(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "templates show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*model.Template
			Mappings []model.CellTagMapping `json:"mappings,omitempty"`
		}{tmpl, mappings})
	},
}

// -- templates export --

var templatesExportCmd = &cobra.Command{
	Use:   "export <template-id>",
	Short: "Write a template's current document to disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("out")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tmpl, err := st.GetTemplate(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "templates export")
		}
		if out == "" {
			out = tmpl.FileName
		}
		if err := writeFileAtomic(out, tmpl.Document); err != nil {
			return err
		}
		zap.L().Info("template exported", zap.String("id", tmpl.ID), zap.String("path", out))
		return nil
	},
}

func init() {
	templatesAddCmd.Flags().String("hospital", "", "hospital the form belongs to (required)")
	_ = templatesAddCmd.MarkFlagRequired("hospital")

	templatesListCmd.Flags().String("hospital", "", "filter by hospital")
	templatesListCmd.Flags().String("mode", "", "filter by mode (needs_tagging, tagged)")
	templatesListCmd.Flags().Int("limit", 50, "max number of templates to display")

	templatesExportCmd.Flags().String("out", "", "output path (default the registered file name)")

	templatesCmd.AddCommand(templatesAddCmd)
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
	templatesCmd.AddCommand(templatesExportCmd)
	rootCmd.AddCommand(templatesCmd)
}

// formatTemplatesList writes a tabular list of templates to out.
func formatTemplatesList(out io.Writer, templates []model.Template) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tHOSPITAL\tFILE\tMODE\tKEYS\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t----\t----\t----\t-------")

	for _, t := range templates {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			truncateID(t.ID),
			t.Hospital,
			truncate(t.FileName, 30),
			t.Mode,
			len(t.Placeholders),
			t.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
