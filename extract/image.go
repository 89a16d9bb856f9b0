package extract

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Attributes consulted by ResolveImageURL, highest fidelity first.
const (
	AttrZoom     = "data-zoom-src"
	AttrOriginal = "data-originalsrc"
	AttrSrcset   = "srcset"
	AttrSrc      = "src"
)

// ResolveImageURL picks the best image URL from an <img> node: the zoom
// attribute, then the category-page original source, then the last srcset
// entry, then the plain src. Empty attributes count as absent.
func ResolveImageURL(img *goquery.Selection) (string, bool) {
	if v := attr(img, AttrZoom); v != "" {
		return v, true
	}
	if v := attr(img, AttrOriginal); v != "" {
		return v, true
	}
	if v := LastSrcsetURL(attr(img, AttrSrcset)); v != "" {
		return v, true
	}
	if v := attr(img, AttrSrc); v != "" {
		return v, true
	}
	return "", false
}

// LastSrcsetURL returns the URL token of the last "URL size" entry.
func LastSrcsetURL(srcset string) string {
	entries := strings.Split(srcset, ",")
	for i := len(entries) - 1; i >= 0; i-- {
		fields := strings.Fields(entries[i])
		if len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

// GalleryImageURLs resolves every <img> under the carousel container. It
// returns nil when the page has no carousel; images elsewhere on the page
// are never considered.
func GalleryImageURLs(doc *goquery.Document) ([]string, bool) {
	gallery, ok := Find(doc.Selection, Gallery)
	if !ok {
		return nil, false
	}
	var urls []string
	gallery.Find("img").Each(func(_ int, img *goquery.Selection) {
		if u, ok := ResolveImageURL(img); ok {
			urls = append(urls, u)
		}
	})
	return DedupeURLs(urls), true
}

// DedupeURLs drops repeated URLs, keeping the first occurrence.
func DedupeURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// SanitizeFilename keeps letters, digits, spaces, hyphens and underscores,
// then trims. The result may be empty.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func attr(sel *goquery.Selection, name string) string {
	v, ok := sel.Attr(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
