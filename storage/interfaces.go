package storage

import (
	"context"

	"psa-scraper/models"
)

// RecordWriter is the interface any record sink must satisfy. Write is
// called once per processed listing so an interrupted run leaves a valid
// prefix behind.
type RecordWriter interface {
	Write(records []*models.DatasetRecord) error
	Close() error
}

// ImageMirror copies a saved image somewhere besides the local dataset.
type ImageMirror interface {
	Mirror(ctx context.Context, localPath string, data []byte, contentType string) (string, error)
}

// MultiWriter fans records out to several sinks and reports the first error
// after trying all of them.
type MultiWriter []RecordWriter

func (m MultiWriter) Write(records []*models.DatasetRecord) error {
	var firstErr error
	for _, w := range m {
		if err := w.Write(records); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m MultiWriter) Close() error {
	var firstErr error
	for _, w := range m {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
