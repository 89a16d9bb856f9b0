package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"psa-scraper/config"
	"psa-scraper/extract"
	"psa-scraper/models"
)

// Layout decides where a listing's images live on disk. A Layout carries
// per-run state (name and index counters) and must not be shared between
// runs.
type Layout interface {
	// Name is the config value selecting this layout.
	Name() string
	// Root is the dataset base folder.
	Root() string
	// CreateListingFolder creates and returns the folder for one listing.
	CreateListingFolder(d *models.ListingDetail) (string, error)
	// ImageName is the file name for the i-th deduplicated candidate.
	ImageName(i int) string
}

// NewLayout builds the layout named by cfg.Layout rooted at cfg.OutputDir.
func NewLayout(cfg *config.Config) (Layout, error) {
	switch cfg.Layout {
	case config.LayoutProduct:
		return NewProductLayout(cfg.OutputDir), nil
	case config.LayoutGrade:
		return NewGradeLayout(cfg.OutputDir), nil
	default:
		return nil, fmt.Errorf("storage: unknown layout %q", cfg.Layout)
	}
}

// ProductLayout stores <root>/<sanitized title>/<i>.jpg.
type ProductLayout struct {
	root string

	mu   sync.Mutex
	used map[string]bool
}

func NewProductLayout(root string) *ProductLayout {
	return &ProductLayout{root: root, used: make(map[string]bool)}
}

func (l *ProductLayout) Name() string { return config.LayoutProduct }
func (l *ProductLayout) Root() string { return l.root }

// CreateListingFolder names the folder after the sanitized title. Titles
// that sanitize to nothing get a generated identifier, and a title already
// used in this run gets a numeric suffix so listings never share a folder.
func (l *ProductLayout) CreateListingFolder(d *models.ListingDetail) (string, error) {
	name := extract.SanitizeFilename(d.Title)
	if name == "" {
		name = "listing-" + uuid.NewString()
	}

	l.mu.Lock()
	candidate := name
	for n := 2; l.used[candidate]; n++ {
		candidate = fmt.Sprintf("%s %d", name, n)
	}
	l.used[candidate] = true
	name = candidate
	l.mu.Unlock()

	folder := filepath.Join(l.root, name)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("layout: create %q: %w", folder, err)
	}
	return folder, nil
}

func (l *ProductLayout) ImageName(i int) string {
	return strconv.Itoa(i) + ".jpg"
}

// GradeLayout stores <root>/<grade>/<listing index>/image_<i+1>.png, the
// listing index counting up per grade within one run.
type GradeLayout struct {
	root string

	mu       sync.Mutex
	counters map[string]int
}

func NewGradeLayout(root string) *GradeLayout {
	return &GradeLayout{root: root, counters: make(map[string]int)}
}

func (l *GradeLayout) Name() string { return config.LayoutGrade }
func (l *GradeLayout) Root() string { return l.root }

func (l *GradeLayout) CreateListingFolder(d *models.ListingDetail) (string, error) {
	label := d.GradeLabel()

	l.mu.Lock()
	index := l.counters[label]
	l.counters[label]++
	l.mu.Unlock()

	folder := filepath.Join(l.root, label, strconv.Itoa(index))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("layout: create %q: %w", folder, err)
	}
	return folder, nil
}

func (l *GradeLayout) ImageName(i int) string {
	return fmt.Sprintf("image_%d.png", i+1)
}
