package commands

import (
	"github.com/spf13/cobra"

	"psa-scraper/config"
	"psa-scraper/scraper/ebay"
	"psa-scraper/services"
)

func init() {
	gradesCmd.Flags().IntSlice("grades", nil, "PSA grades to search, e.g. 8,9,10 (GRADES)")
	gradesCmd.Flags().String("query", "", "search keywords (SEARCH_QUERY)")
	gradesCmd.Flags().Int("max-results", 0, "links kept per grade (MAX_RESULTS)")
	rootCmd.AddCommand(gradesCmd)
}

var gradesCmd = &cobra.Command{
	Use:   "grades [--grades 1,2,...] [--query Q] [--max-results N]",
	Short: "Searches each PSA grade and saves images into per-grade folders.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Layout = config.LayoutGrade
		return runPipeline(cmd.Context(), cfg, func(c *config.Config, deps *pipelineDeps) services.Discoverer {
			return ebay.NewSearcher(c, deps.http, deps.retry, logger)
		})
	},
}
