package commands

import (
	"github.com/spf13/cobra"

	"github.com/edgard/what2eat/internal/crawler"
	"github.com/edgard/what2eat/internal/menu"
)

func init() {
	rootCmd.AddCommand(renormalizeCmd)
}

var renormalizeCmd = &cobra.Command{
	Use:   "renormalize <foodpanda|ubereats>",
	Short: "Re-applies the deny-list and the product threshold to cached payloads without network access.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := menu.ParsePlatform(args[0])
		if err != nil {
			return err
		}
		e, err := setup()
		if err != nil {
			return err
		}

		summary, err := e.driver(cmd, p).Renormalize(cmd.Context())
		crawler.RenderSummary(cmd.OutOrStdout(), summary)
		return err
	},
}
