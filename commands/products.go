package commands

import (
	"github.com/spf13/cobra"

	"psa-scraper/config"
	"psa-scraper/scraper/ebay"
	"psa-scraper/services"
)

func init() {
	productsCmd.Flags().Int("pages", 0, "category pages to crawl (MAX_PAGES)")
	productsCmd.Flags().String("category-url", "", "category URL template with {page} (CATEGORY_URL)")
	rootCmd.AddCommand(productsCmd)
}

var productsCmd = &cobra.Command{
	Use:   "products [--pages N] [--category-url URL]",
	Short: "Crawls category pages in a headless browser and saves images per listing title.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Layout = config.LayoutProduct
		return runPipeline(cmd.Context(), cfg, func(c *config.Config, _ *pipelineDeps) services.Discoverer {
			return ebay.NewCrawler(c, ebay.ChromeFactory(c, logger), logger)
		})
	},
}
