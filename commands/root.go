package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"psa-scraper/config"
	"psa-scraper/utils"
)

var (
	cfg    *config.Config
	logger = utils.NewLogger()
)

var rootCmd = &cobra.Command{
	Use:   "psa-scraper",
	Short: "psa-scraper builds an image dataset of PSA graded trading cards from eBay listings.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		applyOverrides(cmd, cfg)
		logger.SetDebug(cfg.Debug)
		return cfg.Validate()
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("out", "", "dataset root directory (OUTPUT_DIR)")
	f.String("csv", "", "CSV export path (CSV_OUTPUT_PATH)")
	f.String("image-mode", "", `"single" or "multi" (IMAGE_MODE)`)
	f.Int("max-images", 0, "cap on images per listing in multi mode, 0 = all (MAX_IMAGES)")
	f.Int("concurrency", 0, "parallel image downloads per listing (DOWNLOAD_CONCURRENCY)")
	f.Bool("no-dedupe", false, "process repeated listing URLs again")
	f.Bool("debug", false, "enable debug logging")
}

// applyOverrides copies explicitly set flags over the loaded config.
func applyOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("out") {
		c.OutputDir, _ = flags.GetString("out")
	}
	if flags.Changed("csv") {
		c.CSVOutputPath, _ = flags.GetString("csv")
	}
	if flags.Changed("image-mode") {
		c.ImageMode, _ = flags.GetString("image-mode")
	}
	if flags.Changed("max-images") {
		c.MaxImages, _ = flags.GetInt("max-images")
	}
	if flags.Changed("concurrency") {
		c.DownloadConcurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("no-dedupe") {
		noDedupe, _ := flags.GetBool("no-dedupe")
		c.DedupeListings = !noDedupe
	}
	if flags.Changed("debug") {
		c.Debug, _ = flags.GetBool("debug")
	}

	// subcommand flags
	if flags.Changed("pages") {
		c.MaxPages, _ = flags.GetInt("pages")
	}
	if flags.Changed("category-url") {
		c.CategoryURL, _ = flags.GetString("category-url")
	}
	if flags.Changed("grades") {
		c.Grades, _ = flags.GetIntSlice("grades")
	}
	if flags.Changed("query") {
		c.SearchQuery, _ = flags.GetString("query")
	}
	if flags.Changed("max-results") {
		c.MaxResults, _ = flags.GetInt("max-results")
	}
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
