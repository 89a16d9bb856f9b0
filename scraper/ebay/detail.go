package ebay

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"psa-scraper/extract"
	"psa-scraper/models"
	"psa-scraper/storage"
	"psa-scraper/utils"
)

// DetailFetcher downloads a listing page, extracts its fields and prepares
// the listing's image folder.
type DetailFetcher struct {
	client *resty.Client
	layout storage.Layout
	retry  *utils.RetryConfig
	logger *utils.Logger
}

func NewDetailFetcher(client *resty.Client, layout storage.Layout, retry *utils.RetryConfig, logger *utils.Logger) *DetailFetcher {
	return &DetailFetcher{client: client, layout: layout, retry: retry, logger: logger}
}

// Fetch returns the parsed listing with its image folder already created.
// A non-200 answer yields an error wrapping ErrListingUnavailable.
func (f *DetailFetcher) Fetch(ctx context.Context, ref models.ListingRef) (*models.ListingDetail, error) {
	doc, err := getDocument(ctx, f.client, f.retry, ref.URL)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("%w: %s (status %d)", ErrListingUnavailable, ref.URL, se.Status)
		}
		return nil, err
	}

	d := ParseListing(doc, ref)
	if d.GradeConflict() {
		f.logger.Warn("[detail] %s: filtered as PSA %d but page says PSA %d, keeping %d",
			ref.URL, d.FilterGrade, d.PageGrade, d.Grade())
	}
	if len(d.ImageURLs) == 0 {
		f.logger.Warn("[detail] %s: no image gallery", ref.URL)
	}

	folder, err := f.layout.CreateListingFolder(d)
	if err != nil {
		return nil, fmt.Errorf("detail: %w", err)
	}
	d.ImageFolder = folder
	return d, nil
}

// ParseListing reads every field from a listing document. Missing fields
// fall back to their sentinels.
func ParseListing(doc *goquery.Document, ref models.ListingRef) *models.ListingDetail {
	d := &models.ListingDetail{
		Title:       extract.TextOr(doc, extract.Title, models.UnknownProduct),
		Price:       extract.TextOr(doc, extract.Price, models.NotAvailable),
		Condition:   extract.TextOr(doc, extract.Condition, models.NotAvailable),
		FilterGrade: ref.FilterGrade,
		SourceURL:   ref.URL,
	}
	if g, ok := extract.Grade(doc); ok {
		d.PageGrade = g
	}
	if urls, ok := extract.GalleryImageURLs(doc); ok {
		for _, u := range urls {
			d.ImageURLs = append(d.ImageURLs, resolveAgainst(u, ref.URL))
		}
	}
	return d
}
