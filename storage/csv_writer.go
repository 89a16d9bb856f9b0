package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"psa-scraper/config"
	"psa-scraper/models"
)

var (
	productColumns = []string{"Title", "Condition", "Price", "URL", "Image Count", "Image Folder"}
	gradeColumns   = append(append([]string{}, productColumns...), "Grade", "Page Grade", "Filter Grade")
)

// CSVWriter writes dataset records to a CSV file, flushing after every
// Write. It is safe for concurrent use.
type CSVWriter struct {
	mu        sync.Mutex
	file      *os.File
	writer    *csv.Writer
	withGrade bool
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row for layout. Intermediate directories are created
// automatically.
func NewCSVWriter(path, layout string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	withGrade := layout == config.LayoutGrade
	header := productColumns
	if withGrade {
		header = gradeColumns
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w, withGrade: withGrade}, nil
}

// Write appends one row per record in the given order.
func (c *CSVWriter) Write(records []*models.DatasetRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		row := []string{
			r.Title,
			r.Condition,
			r.Price,
			r.URL,
			strconv.Itoa(r.ImageCount),
			r.ImageFolder,
		}
		if c.withGrade {
			row = append(row, gradeCell(r.Grade), gradeCell(r.PageGrade), gradeCell(r.FilterGrade))
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

func gradeCell(g int) string {
	if g <= 0 {
		return models.NotAvailable
	}
	return strconv.Itoa(g)
}
