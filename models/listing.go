package models

import (
	"strconv"
	"time"
)

const (
	UnknownProduct = "Unknown Product"
	NotAvailable   = "N/A"
	UnknownGrade   = "unknown"
)

// ListingRef identifies one marketplace listing. URL is absolute and starts
// with the marketplace item prefix. FilterGrade is the grade the search was
// filtered on, 0 when the listing was discovered without a grade filter.
type ListingRef struct {
	URL         string
	FilterGrade int
}

// ListingDetail is built once from a fetched listing page. Missing text
// fields carry the UnknownProduct / NotAvailable sentinels and a missing
// grade is 0.
type ListingDetail struct {
	Title       string
	Price       string
	Condition   string
	PageGrade   int
	FilterGrade int
	SourceURL   string
	ImageURLs   []string
	ImageFolder string
}

// Grade returns the label used for the grade-partitioned layout. The search
// filter grade wins over the grade read from the page.
func (d *ListingDetail) Grade() int {
	if d.FilterGrade > 0 {
		return d.FilterGrade
	}
	return d.PageGrade
}

// GradeLabel is Grade rendered as a directory name.
func (d *ListingDetail) GradeLabel() string {
	if g := d.Grade(); g > 0 {
		return strconv.Itoa(g)
	}
	return UnknownGrade
}

// GradeConflict reports whether both grade sources are known and disagree.
func (d *ListingDetail) GradeConflict() bool {
	return d.FilterGrade > 0 && d.PageGrade > 0 && d.FilterGrade != d.PageGrade
}

// DownloadedImage exists only for images that passed the size filter and
// were written to disk.
type DownloadedImage struct {
	Filename  string
	Path      string
	SourceURL string
	Bytes     int
	Width     int
	Height    int
}

// DatasetRecord is the one-row-per-listing export structure.
type DatasetRecord struct {
	ID          int64
	Title       string
	Condition   string
	Price       string
	PriceValue  float64
	URL         string
	ImageCount  int
	ImageFolder string
	Grade       int
	PageGrade   int
	FilterGrade int
	ScrapedAt   time.Time
}

// NewDatasetRecord combines a detail with its download outcome.
func NewDatasetRecord(d *ListingDetail, images []*DownloadedImage) *DatasetRecord {
	return &DatasetRecord{
		Title:       d.Title,
		Condition:   d.Condition,
		Price:       d.Price,
		URL:         d.SourceURL,
		ImageCount:  len(images),
		ImageFolder: d.ImageFolder,
		Grade:       d.Grade(),
		PageGrade:   d.PageGrade,
		FilterGrade: d.FilterGrade,
		ScrapedAt:   time.Now(),
	}
}

// GradeStats aggregates one grade bucket of a DatasetReport.
type GradeStats struct {
	Grade    string
	Listings int
	Images   int
}

// DatasetReport holds the summary computed over a finished run.
type DatasetReport struct {
	TotalListings    int
	TotalImages      int
	ListingsNoImages int
	GradeConflicts   int
	AveragePrice     float64
	MinPrice         float64
	MaxPrice         float64
	MostExpensive    *DatasetRecord
	ByGrade          []GradeStats
}
