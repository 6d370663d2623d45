// Package cmd defines the CLI commands for the catalog-crawler executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog-crawler",
		Short: "Scrapes an online product catalog into clean, queryable records.",
		Long: `catalog-crawler walks a paginated product listing with a headless
browser, extracts the product cards, normalizes them and persists the result
as a CSV snapshot and optionally as Postgres tables.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); defaults apply when omitted")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newSitesCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
