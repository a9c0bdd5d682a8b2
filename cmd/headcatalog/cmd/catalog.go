package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/openheads/headcatalog/internal/adapter/outbound/catalogfile"
	"github.com/openheads/headcatalog/internal/config"
	"github.com/openheads/headcatalog/internal/domain/catalog"
)

var strictCatalog bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the catalog definitions",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the categories that would be served",
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, _, err := loadCatalog()
		if err != nil {
			return err
		}
		printCategories(cmd.OutOrStdout(), idx)
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the catalog and report skipped definitions",
	Long: `Load categories_file and items_dir the way the server does and print
every skipped category or item. With --strict any defect is an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, defects, err := loadCatalog()
		if err != nil {
			return err
		}
		return reportDefects(cmd.OutOrStdout(), idx, defects, strictCatalog)
	},
}

func init() {
	catalogValidateCmd.Flags().BoolVar(&strictCatalog, "strict", false, "fail when any definition is skipped")
	catalogCmd.AddCommand(catalogListCmd, catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}

func loadCatalog() (*catalog.Index, []*catalog.LoadError, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	defs, err := catalogfile.New(cfg.Catalog.CategoriesFile, cfg.Catalog.ItemsDir).Definitions()
	if err != nil {
		return nil, nil, err
	}
	idx, defects := catalog.Load(defs)
	return idx, defects, nil
}

func printCategories(w io.Writer, idx *catalog.Index) {
	for _, c := range idx.Categories() {
		price := "free"
		if !c.IsFree() {
			price = fmt.Sprintf("%.2f", c.Price)
		}
		perm := "-"
		if c.RequirePermission {
			perm = c.Permission
		}
		fmt.Fprintf(w, "%-24s %6d items  %10s  %s\n", c.Name, c.ItemCount(), price, perm)
	}
}

func reportDefects(w io.Writer, idx *catalog.Index, defects []*catalog.LoadError, strict bool) error {
	for _, d := range defects {
		fmt.Fprintln(w, "skipped:", d.Error())
	}
	fmt.Fprintf(w, "%d categories, %d items, %d skipped\n", idx.Len(), idx.ItemCount(), len(defects))
	if strict && len(defects) > 0 {
		return fmt.Errorf("%d catalog definitions skipped", len(defects))
	}
	return nil
}
