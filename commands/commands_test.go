package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psa-scraper/config"
)

func TestApplyOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("out", "", "")
	cmd.Flags().Bool("no-dedupe", false, "")
	cmd.Flags().Int("max-images", 0, "")
	cmd.Flags().IntSlice("grades", nil, "")
	cmd.Flags().Int("pages", 0, "")
	require.NoError(t, cmd.ParseFlags([]string{"--out", "data", "--grades", "9,10", "--no-dedupe", "--max-images", "3"}))

	c := &config.Config{OutputDir: "default", DedupeListings: true, MaxPages: 2, Grades: []int{1}}
	applyOverrides(cmd, c)

	assert.Equal(t, "data", c.OutputDir)
	assert.Equal(t, []int{9, 10}, c.Grades)
	assert.False(t, c.DedupeListings)
	assert.Equal(t, 3, c.MaxImages)
	assert.Equal(t, 2, c.MaxPages)
}

func TestSplitCommand(t *testing.T) {
	src := t.TempDir()
	for _, p := range []string{"10/0/image_1.png", "10/1/image_1.png", "9/0/image_1.png"} {
		full := filepath.Join(src, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
	out := t.TempDir()

	rootCmd.SetArgs([]string{"split",
		"--source", src,
		"--train", filepath.Join(out, "train"),
		"--test", filepath.Join(out, "test"),
		"--test-per-label", "1",
		"--seed", "3",
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	for dir, want := range map[string]int{
		filepath.Join(out, "train", "10"): 1,
		filepath.Join(out, "test", "10"):  1,
		filepath.Join(out, "test", "9"):   1,
	} {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, want, dir)
	}
	assert.NoDirExists(t, filepath.Join(out, "train", "9"))
}
