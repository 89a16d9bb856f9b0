package commands

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"psa-scraper/services"
)

var splitOpts services.SplitOptions

func init() {
	f := splitCmd.Flags()
	f.StringVar(&splitOpts.Source, "source", "", "labelled dataset root (defaults to the output dir)")
	f.StringVar(&splitOpts.TrainDir, "train", "", "train tree (defaults to <source>_split/train)")
	f.StringVar(&splitOpts.TestDir, "test", "", "test tree (defaults to <source>_split/test)")
	f.IntVar(&splitOpts.TestPerLabel, "test-per-label", services.DefaultTestPerLabel, "images per label copied to the test tree")
	f.Int64Var(&splitOpts.Seed, "seed", 0, "shuffle seed, 0 = time based")
	rootCmd.AddCommand(splitCmd)
}

var splitCmd = &cobra.Command{
	Use:   "split [--source DIR] [--train DIR] [--test DIR] [--test-per-label N]",
	Short: "Splits a grade-labelled dataset into train and test trees.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := splitOpts
		if opts.Source == "" {
			opts.Source = cfg.OutputDir
		}
		base := filepath.Clean(opts.Source) + "_split"
		if opts.TrainDir == "" {
			opts.TrainDir = filepath.Join(base, "train")
		}
		if opts.TestDir == "" {
			opts.TestDir = filepath.Join(base, "test")
		}
		if opts.Seed == 0 {
			opts.Seed = time.Now().UnixNano()
		}

		res, err := services.NewSplitter(logger).Split(opts)
		if err != nil {
			return err
		}
		logger.Info("Split %d labels — %d train, %d test → %s, %s",
			res.Labels, res.Train, res.Test, opts.TrainDir, opts.TestDir)
		return nil
	},
}
