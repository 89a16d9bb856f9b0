package services

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psa-scraper/config"
	"psa-scraper/models"
	"psa-scraper/storage"
)

type fakeDiscoverer struct {
	refs []models.ListingRef
	err  error
}

func (f *fakeDiscoverer) Discover(context.Context) (iter.Seq[models.ListingRef], error) {
	if f.err != nil {
		return nil, f.err
	}
	return slices.Values(f.refs), nil
}

// fakeDetails fails for URLs listed in missing, mirroring a 404 listing.
type fakeDetails struct {
	missing map[string]bool
	fetched []string
	cancel  context.CancelFunc
	stopAt  int
}

func (f *fakeDetails) Fetch(_ context.Context, ref models.ListingRef) (*models.ListingDetail, error) {
	f.fetched = append(f.fetched, ref.URL)
	if f.cancel != nil && len(f.fetched) == f.stopAt {
		f.cancel()
	}
	if f.missing[ref.URL] {
		return nil, errors.New("listing unavailable: status 404")
	}
	return &models.ListingDetail{
		Title:       " Card " + ref.URL + " ",
		Price:       "US $12.50",
		Condition:   models.NotAvailable,
		FilterGrade: ref.FilterGrade,
		SourceURL:   ref.URL,
		ImageFolder: "out/" + ref.URL,
	}, nil
}

type fakeImages struct{ perListing int }

func (f *fakeImages) Collect(_ context.Context, d *models.ListingDetail, _ storage.Layout) []*models.DownloadedImage {
	out := make([]*models.DownloadedImage, f.perListing)
	for i := range out {
		out[i] = &models.DownloadedImage{SourceURL: d.SourceURL}
	}
	return out
}

type recordingSink struct {
	written []*models.DatasetRecord
	calls   int
}

func (r *recordingSink) Write(records []*models.DatasetRecord) error {
	r.calls++
	r.written = append(r.written, records...)
	return nil
}

func (r *recordingSink) Close() error { return nil }

func assemblerConfig() *config.Config {
	return &config.Config{DedupeListings: true, ThrottleMinMs: 0, ThrottleMaxMs: 0}
}

func refs(urls ...string) []models.ListingRef {
	out := make([]models.ListingRef, len(urls))
	for i, u := range urls {
		out[i] = models.ListingRef{URL: u, FilterGrade: 9}
	}
	return out
}

func TestAssemblerSkipsUnavailableListing(t *testing.T) {
	details := &fakeDetails{missing: map[string]bool{"b": true}}
	sink := &recordingSink{}
	a := NewAssembler(assemblerConfig(), &fakeDiscoverer{refs: refs("a", "b", "c")}, details,
		&fakeImages{perListing: 2}, storage.NewGradeLayout(t.TempDir()), sink, newTestLogger())

	records, err := a.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].URL)
	assert.Equal(t, "c", records[1].URL)
	assert.Equal(t, []string{"a", "b", "c"}, details.fetched)

	assert.Equal(t, 2, sink.calls)
	assert.Equal(t, records, sink.written)

	assert.Equal(t, "Card a", records[0].Title)
	assert.Equal(t, 12.5, records[0].PriceValue)
	assert.Equal(t, 2, records[0].ImageCount)
	assert.Equal(t, 9, records[0].Grade)
}

func TestAssemblerDedupesListings(t *testing.T) {
	details := &fakeDetails{}
	a := NewAssembler(assemblerConfig(), &fakeDiscoverer{refs: refs("a", "b", "a")}, details,
		&fakeImages{}, storage.NewGradeLayout(t.TempDir()), &recordingSink{}, newTestLogger())

	records, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, []string{"a", "b"}, details.fetched)
}

func TestAssemblerKeepsDuplicatesWhenDisabled(t *testing.T) {
	cfg := assemblerConfig()
	cfg.DedupeListings = false
	details := &fakeDetails{}
	a := NewAssembler(cfg, &fakeDiscoverer{refs: refs("a", "a")}, details,
		&fakeImages{}, storage.NewGradeLayout(t.TempDir()), &recordingSink{}, newTestLogger())

	records, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestAssemblerThrottlesBetweenListings(t *testing.T) {
	cfg := assemblerConfig()
	cfg.ThrottleMinMs, cfg.ThrottleMaxMs = 30, 30
	a := NewAssembler(cfg, &fakeDiscoverer{refs: refs("a", "b", "c")}, &fakeDetails{},
		&fakeImages{}, storage.NewGradeLayout(t.TempDir()), &recordingSink{}, newTestLogger())

	start := time.Now()
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestAssemblerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	details := &fakeDetails{cancel: cancel, stopAt: 2}
	sink := &recordingSink{}
	a := NewAssembler(assemblerConfig(), &fakeDiscoverer{refs: refs("a", "b", "c", "d")}, details,
		&fakeImages{}, storage.NewGradeLayout(t.TempDir()), sink, newTestLogger())

	records, err := a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, records, 2)
	assert.Len(t, sink.written, 2)
	assert.Equal(t, []string{"a", "b"}, details.fetched)
}

func TestAssemblerDiscoveryFailure(t *testing.T) {
	a := NewAssembler(assemblerConfig(), &fakeDiscoverer{err: errors.New("chrome not found")}, &fakeDetails{},
		&fakeImages{}, storage.NewGradeLayout(t.TempDir()), &recordingSink{}, newTestLogger())

	_, err := a.Run(context.Background())
	assert.ErrorContains(t, err, "discover: chrome not found")
}
