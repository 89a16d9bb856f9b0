package services

import (
	"context"
	"fmt"
	"iter"
	"time"

	"psa-scraper/config"
	"psa-scraper/models"
	"psa-scraper/storage"
	"psa-scraper/utils"
)

// Discoverer yields listing references in discovery order.
type Discoverer interface {
	Discover(ctx context.Context) (iter.Seq[models.ListingRef], error)
}

// DetailSource turns a reference into a parsed listing with its folder ready.
type DetailSource interface {
	Fetch(ctx context.Context, ref models.ListingRef) (*models.ListingDetail, error)
}

// ImageCollector saves a listing's images and reports the ones kept.
type ImageCollector interface {
	Collect(ctx context.Context, detail *models.ListingDetail, layout storage.Layout) []*models.DownloadedImage
}

// Assembler drives one run: discover, fetch each listing, save its images
// and emit one record per listing.
type Assembler struct {
	discoverer Discoverer
	details    DetailSource
	images     ImageCollector
	layout     storage.Layout
	sink       storage.RecordWriter
	cleaner    *Cleaner
	throttle   *utils.Throttle
	dedupe     bool
	logger     *utils.Logger
}

func NewAssembler(
	cfg *config.Config,
	discoverer Discoverer,
	details DetailSource,
	images ImageCollector,
	layout storage.Layout,
	sink storage.RecordWriter,
	logger *utils.Logger,
) *Assembler {
	minWait, maxWait := cfg.ThrottleRange()
	return &Assembler{
		discoverer: discoverer,
		details:    details,
		images:     images,
		layout:     layout,
		sink:       sink,
		cleaner:    NewCleaner(logger),
		throttle:   utils.NewThrottle(minWait, maxWait),
		dedupe:     cfg.DedupeListings,
		logger:     logger,
	}
}

// Run returns the records in discovery order. Each record is written to the
// sink as soon as its listing is done, so an interrupted run leaves a valid
// prefix behind. On cancellation the records so far are returned with
// ctx.Err().
func (a *Assembler) Run(ctx context.Context) ([]*models.DatasetRecord, error) {
	start := time.Now()

	refs, err := a.discoverer.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	var seen *utils.URLSet
	if a.dedupe {
		seen = utils.NewURLSet()
	}

	var records []*models.DatasetRecord
	discovered, skipped := 0, 0

	for ref := range refs {
		if ctx.Err() != nil {
			break
		}
		discovered++

		if seen != nil && !seen.Add(ref.URL) {
			a.logger.Debug("[assembler] Duplicate listing skipped: %s", ref.URL)
			continue
		}

		if discovered > 1 {
			if err := a.throttle.Wait(ctx); err != nil {
				break
			}
		}

		detail, err := a.details.Fetch(ctx, ref)
		if err != nil {
			skipped++
			a.logger.Warn("[assembler] Skipping %s: %v", ref.URL, err)
			continue
		}

		images := a.images.Collect(ctx, detail, a.layout)
		rec := models.NewDatasetRecord(detail, images)
		a.cleaner.Normalise(rec)

		if err := a.sink.Write([]*models.DatasetRecord{rec}); err != nil {
			a.logger.Error("[assembler] Writing record for %s: %v", rec.URL, err)
		}
		records = append(records, rec)

		a.logger.Info("[assembler] #%d %s — %d image(s) → %s",
			len(records), truncate(rec.Title, 50), rec.ImageCount, rec.ImageFolder)
	}

	a.logger.Info("[assembler] Done in %v — %d discovered, %d saved, %d skipped",
		time.Since(start).Round(time.Millisecond), discovered, len(records), skipped)

	if err := ctx.Err(); err != nil {
		a.logger.Warn("[assembler] Run interrupted: %v", err)
		return records, err
	}
	return records, nil
}
