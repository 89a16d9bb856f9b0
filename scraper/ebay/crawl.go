package ebay

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"psa-scraper/config"
	"psa-scraper/extract"
	"psa-scraper/models"
	"psa-scraper/utils"
)

// Crawler discovers listings by rendering paginated category pages in a
// browser. The pages are client-rendered, so a plain GET returns no cards.
type Crawler struct {
	cfg         *config.Config
	newRenderer RendererFactory
	logger      *utils.Logger
}

func NewCrawler(cfg *config.Config, factory RendererFactory, logger *utils.Logger) *Crawler {
	return &Crawler{cfg: cfg, newRenderer: factory, logger: logger}
}

// PageURL fills the page number into a category URL template. Both "{page}"
// and "{}" are accepted as placeholders.
func PageURL(template string, page int) string {
	n := strconv.Itoa(page)
	return strings.NewReplacer("{page}", n, "{}", n).Replace(template)
}

// Discover crawls every configured page up front and yields the collected
// references in page order. Only a renderer that cannot be opened is an
// error; a page that fails to load is logged and skipped.
func (c *Crawler) Discover(ctx context.Context) (iter.Seq[models.ListingRef], error) {
	refs, err := c.Crawl(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Values(refs), nil
}

// Crawl renders pages 1..MaxPages and returns every card link found, in
// document order, without deduplication.
func (c *Crawler) Crawl(ctx context.Context) ([]models.ListingRef, error) {
	renderer, err := c.newRenderer(ctx)
	if err != nil {
		return nil, fmt.Errorf("crawl: open browser: %w", err)
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			c.logger.Warn("[crawl] Browser shutdown: %v", err)
		}
	}()

	selector := extract.Rules[extract.CategoryCardLink].Selector()
	var refs []models.ListingRef

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			c.logger.Warn("[crawl] Interrupted before page %d", page)
			break
		}

		pageURL := PageURL(c.cfg.CategoryURL, page)
		c.logger.Info("[crawl] Scraping page %d — URL: %s", page, pageURL)

		markup, err := renderer.Render(ctx, pageURL, selector)
		if err != nil {
			c.logger.Error("[crawl] Page %d failed: %v", page, err)
			continue
		}

		pageRefs, err := ParseCategoryPage(markup, c.cfg.BaseURL)
		if err != nil {
			c.logger.Error("[crawl] Page %d unparsable: %v", page, err)
			continue
		}
		if len(pageRefs) == 0 {
			c.logger.Warn("[crawl] Page %d returned 0 listings", page)
		}

		refs = append(refs, pageRefs...)
		c.logger.Info("[crawl] Page %d done — %d links, %d so far", page, len(pageRefs), len(refs))
	}

	return refs, nil
}

// ParseCategoryPage extracts card links from rendered category markup.
func ParseCategoryPage(markup, base string) ([]models.ListingRef, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}

	var refs []models.ListingRef
	doc.Find(extract.Rules[extract.CategoryCardLink].Selector()).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if u, ok := ItemURL(href, base); ok {
			refs = append(refs, models.ListingRef{URL: u})
		}
	})
	return refs, nil
}
