package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/offlinejudge.net/internal/adapter/catalog/filestore"
	"gitlab.com/offlinejudge.net/internal/config"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the SQL problem catalog",
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Seed the SQL catalog from a JSON or YAML problem file",
	Long: `Parse a problem file and upsert every problem into the SQL catalog,
keeping the file order. Requires CATALOG_SOURCE=sql.

Examples:
  DB_DRIVER=sqlite DATABASE_URL=judge.db CATALOG_SOURCE=sql judge catalog import problems.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sysCfg.CatalogConfig.Source != config.CatalogSourceSQL {
			return fmt.Errorf("%w: set CATALOG_SOURCE=sql to import", errs.ErrCatalogReadOnly)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading catalog file: %w", err)
		}
		problems, err := filestore.Parse(data)
		if err != nil {
			return err
		}
		// reject duplicate ids before touching the database
		if _, err := filestore.NewCatalog(problems); err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		for i, p := range problems {
			if err := a.writer.SaveProblem(cmd.Context(), p, i); err != nil {
				return fmt.Errorf("importing %s: %w", p.ID, err)
			}
		}
		logger.Info("Catalog imported", "file", args[0], "problems", len(problems))
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d problems\n", len(problems))
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(importCmd)
	rootCmd.AddCommand(catalogCmd)
}
