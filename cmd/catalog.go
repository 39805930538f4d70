package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dcdoc/dcform-cli/internal/model"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the placeholder key catalog",
	Long:  "Prints the field keys the tagger may assign. A custom catalog is read from tagging.catalog_path.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		queries, _ := cmd.Flags().GetBool("queries")
		formatCatalog(os.Stdout, catalog, queries)
		return nil
	},
}

func init() {
	catalogCmd.Flags().Bool("queries", false, "include each field's retrieval query")
	rootCmd.AddCommand(catalogCmd)
}

func formatCatalog(out io.Writer, catalog *model.Catalog, queries bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if queries {
		_, _ = fmt.Fprintln(w, "KEY\tCORE\tDESCRIPTION\tQUERY")
	} else {
		_, _ = fmt.Fprintln(w, "KEY\tCORE\tDESCRIPTION")
	}
	for _, f := range catalog.Fields() {
		core := ""
		if f.Core {
			core = "*"
		}
		if queries {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Key, core, f.Description, catalog.Query(f.Key))
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", f.Key, core, f.Description)
	}
	_ = w.Flush()
}
