package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mamadou-sy/catalog-crawler/internal/site"
)

// newSitesCmd lists the site adapters compiled into the binary.
func newSitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "Lists the supported catalog sites",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range site.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
