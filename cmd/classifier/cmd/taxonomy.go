package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magnatepoint/mvp1-sub001/cmd/classifier/config"
	"github.com/magnatepoint/mvp1-sub001/internal/rules"
	"github.com/magnatepoint/mvp1-sub001/internal/taxonomy"
)

var (
	taxTaxonomyFile string
	taxRulesFile    string
	taxRulesOut     string
)

// taxonomyCmd groups taxonomy catalog operations.
var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Inspect and maintain the spending taxonomy",
}

var taxonomyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active categories and subcategories",
	RunE:  runTaxonomyList,
}

var retireSubcategoryCmd = &cobra.Command{
	Use:   "retire-subcategory <code>",
	Short: "Deactivate a subcategory and sweep rules referencing it",
	Long: `Retire-subcategory deactivates one subcategory in the catalog. Rules
that target the retired subcategory keep their category but lose the
subcategory assignment; the parent category stays active.

Pass --rules-out to persist the swept rule catalog.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRetire(args[0], func(c *taxonomy.Catalog, code string) error {
			return c.RetireSubcategory(code)
		})
	},
}

var retireCategoryCmd = &cobra.Command{
	Use:   "retire-category <code>",
	Short: "Deactivate a category and sweep rules referencing it",
	Long: `Retire-category deactivates one category in the catalog. Rules
targeting the retired category are deactivated entirely.

Pass --rules-out to persist the swept rule catalog.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRetire(args[0], func(c *taxonomy.Catalog, code string) error {
			return c.RetireCategory(code)
		})
	},
}

func init() {
	rootCmd.AddCommand(taxonomyCmd)
	taxonomyCmd.AddCommand(taxonomyListCmd)
	taxonomyCmd.AddCommand(retireSubcategoryCmd)
	taxonomyCmd.AddCommand(retireCategoryCmd)

	taxonomyCmd.PersistentFlags().StringVar(&taxTaxonomyFile, "taxonomy-file", "", "taxonomy seed file (YAML, default: built-in)")
	taxonomyCmd.PersistentFlags().StringVar(&taxRulesFile, "rules-file", "", "rule catalog seed file (YAML, default: built-in)")
	taxonomyCmd.PersistentFlags().StringVar(&taxRulesOut, "rules-out", "", "write the swept rule catalog to this path")
}

func runTaxonomyList(cmd *cobra.Command, args []string) error {
	catalog, err := config.LoadCatalog(taxTaxonomyFile)
	if err != nil {
		return err
	}

	snapshot := catalog.Snapshot()
	fmt.Fprintf(os.Stdout, "Taxonomy version %d\n\n", snapshot.Version)

	for _, cat := range snapshot.Categories() {
		status := ""
		if !cat.Active {
			status = " (retired)"
		}
		fmt.Fprintf(os.Stdout, "%-20s %-12s %s%s\n", cat.Code, cat.Type, cat.Name, status)
		for _, sub := range snapshot.SubcategoriesOf(cat.Code) {
			subStatus := ""
			if !sub.Active {
				subStatus = " (retired)"
			}
			fmt.Fprintf(os.Stdout, "  %-18s %s%s\n", sub.Code, sub.Name, subStatus)
		}
	}

	return nil
}

func runRetire(code string, retire func(*taxonomy.Catalog, string) error) error {
	errorHandler := NewCLIErrorHandler()

	catalog, err := config.LoadCatalog(taxTaxonomyFile)
	if err != nil {
		return errorHandler.Exit(err)
	}
	ruleRepo, err := config.LoadRules(taxRulesFile)
	if err != nil {
		return errorHandler.Exit(err)
	}

	if err := retire(catalog, code); err != nil {
		return errorHandler.Exit(err)
	}

	// Classification sweeps apply when a store is attached; from the CLI
	// only the rule catalog is swept.
	guard := taxonomy.NewGuard(catalog, ruleRepo, nil)
	report, err := guard.Sweep()
	if err != nil {
		return errorHandler.Exit(err)
	}

	fmt.Fprintf(os.Stdout, "Retired %s (taxonomy version %d)\n", code, report.CatalogVersion)
	fmt.Fprintf(os.Stdout, "Rules deactivated: %d\n", report.RulesDeactivated)
	fmt.Fprintf(os.Stdout, "Rule subcategories cleared: %d\n", report.RuleSubcategoriesCleared)

	if taxRulesOut != "" {
		if err := rules.SaveSeedFile(ruleRepo, taxRulesOut); err != nil {
			return errorHandler.Exit(err)
		}
		fmt.Fprintf(os.Stdout, "Swept rule catalog written to %s\n", taxRulesOut)
	}

	return nil
}
