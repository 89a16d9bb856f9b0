package ebay

import (
	"context"
	"iter"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"psa-scraper/config"
	"psa-scraper/extract"
	"psa-scraper/models"
	"psa-scraper/utils"
)

// sortNewlyListed is the marketplace's "newly listed" sort order.
const sortNewlyListed = "12"

// Searcher discovers listings through the grade-filtered search endpoint.
// Result pages are fetched lazily, one grade at a time, as the sequence is
// consumed.
type Searcher struct {
	cfg    *config.Config
	client *resty.Client
	retry  *utils.RetryConfig
	logger *utils.Logger
}

func NewSearcher(cfg *config.Config, client *resty.Client, retry *utils.RetryConfig, logger *utils.Logger) *Searcher {
	return &Searcher{cfg: cfg, client: client, retry: retry, logger: logger}
}

// SearchURL builds the query for one grade. Grade 0 omits the grade filter.
func (s *Searcher) SearchURL(grade int) string {
	q := url.Values{}
	q.Set("_nkw", s.cfg.SearchQuery)
	q.Set("_sop", sortNewlyListed)
	if grade > 0 {
		q.Set(s.cfg.GradeParam, strconv.Itoa(grade))
	}
	return s.cfg.SearchURL + "?" + q.Encode()
}

// Discover yields the results of every configured grade in order. It never
// fails up front; grades whose search fails contribute nothing.
func (s *Searcher) Discover(ctx context.Context) (iter.Seq[models.ListingRef], error) {
	return func(yield func(models.ListingRef) bool) {
		for _, grade := range s.cfg.Grades {
			if ctx.Err() != nil {
				return
			}
			for ref := range s.Search(ctx, grade) {
				if !yield(ref) {
					return
				}
			}
		}
	}, nil
}

// Search yields at most MaxResults listing links for one grade, each tagged
// with that grade.
func (s *Searcher) Search(ctx context.Context, grade int) iter.Seq[models.ListingRef] {
	return func(yield func(models.ListingRef) bool) {
		searchURL := s.SearchURL(grade)
		s.logger.Info("[search] Grade %d — URL: %s", grade, searchURL)

		doc, err := getDocument(ctx, s.client, s.retry, searchURL)
		if err != nil {
			s.logger.Error("[search] Grade %d failed: %v", grade, err)
			return
		}

		count := 0
		doc.Find(extract.Rules[extract.SearchResultLink].Selector()).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if s.cfg.MaxResults > 0 && count >= s.cfg.MaxResults {
				return false
			}
			href, _ := a.Attr("href")
			u, ok := ItemURL(href, s.cfg.BaseURL)
			if !ok {
				return true
			}
			count++
			return yield(models.ListingRef{URL: u, FilterGrade: grade})
		})
		s.logger.Debug("[search] Grade %d yielded %d links", grade, count)
	}
}
