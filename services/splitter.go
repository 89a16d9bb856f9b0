package services

import (
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"psa-scraper/utils"
)

// DefaultTestPerLabel is how many images per label go to the test set.
const DefaultTestPerLabel = 5

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// SplitOptions controls a train/test split of a labelled dataset.
type SplitOptions struct {
	Source       string
	TrainDir     string
	TestDir      string
	TestPerLabel int
	Seed         int64
}

// SplitResult counts the files copied per side.
type SplitResult struct {
	Labels int
	Train  int
	Test   int
}

// Splitter copies a dataset whose top-level directories are labels into
// separate train and test trees with the same labels.
type Splitter struct {
	logger *utils.Logger
}

func NewSplitter(logger *utils.Logger) *Splitter {
	return &Splitter{logger: logger}
}

// Split shuffles each label's images and copies the first TestPerLabel to
// the test tree and the rest to the train tree. Nested paths are flattened
// into the file name, e.g. "3/image_1.png" becomes "3_image_1.png".
func (s *Splitter) Split(opts SplitOptions) (*SplitResult, error) {
	if opts.TestPerLabel < 0 {
		return nil, fmt.Errorf("split: negative test count %d", opts.TestPerLabel)
	}

	entries, err := os.ReadDir(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("split: read %s: %w", opts.Source, err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	result := &SplitResult{}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		label := e.Name()
		images, err := listImages(filepath.Join(opts.Source, label))
		if err != nil {
			return result, err
		}
		if len(images) == 0 {
			s.logger.Warn("[split] Label %s has no images", label)
			continue
		}

		rng.Shuffle(len(images), func(i, j int) { images[i], images[j] = images[j], images[i] })
		n := min(opts.TestPerLabel, len(images))

		for i, rel := range images {
			dst := filepath.Join(opts.TrainDir, label)
			if i < n {
				dst = filepath.Join(opts.TestDir, label)
			}
			src := filepath.Join(opts.Source, label, rel)
			if err := copyFile(src, filepath.Join(dst, flatName(rel))); err != nil {
				return result, err
			}
		}

		result.Labels++
		result.Test += n
		result.Train += len(images) - n
		s.logger.Info("[split] Label %s: %d train, %d test", label, len(images)-n, n)
	}

	return result, nil
}

// listImages returns image paths under dir, relative to it, in lexical order.
func listImages(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("split: walk %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

func flatName(rel string) string {
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "_")
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("split: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("split: copy %s: %w", src, err)
	}
	return out.Close()
}
