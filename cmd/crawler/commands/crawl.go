package commands

import (
	"github.com/spf13/cobra"

	"github.com/edgard/what2eat/internal/crawler"
	"github.com/edgard/what2eat/internal/menu"
)

func init() {
	rootCmd.AddCommand(
		crawlCmd("foodpanda", "Crawls foodPanda restaurants.", menu.PlatformFoodPanda),
		crawlCmd("ubereats", "Crawls Uber Eats restaurants.", menu.PlatformUberEats),
		crawlCmd("all", "Crawls every platform, one after the other.", menu.PlatformFoodPanda, menu.PlatformUberEats),
	)
}

func crawlCmd(use, short string, platforms ...menu.Platform) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}

			var summaries []crawler.Summary
			defer func() { crawler.RenderSummary(cmd.OutOrStdout(), summaries...) }()

			for _, p := range platforms {
				summary, err := e.driver(cmd, p).Run(cmd.Context())
				summaries = append(summaries, summary)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
}
