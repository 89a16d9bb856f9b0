package ebay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"runtime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"psa-scraper/config"
	"psa-scraper/utils"
)

const (
	acceptLanguage = "en-US,en;q=0.9"

	userAgentWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	userAgentMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	userAgentLinux = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// ErrListingUnavailable is returned when a listing page does not answer 200.
var ErrListingUnavailable = errors.New("listing unavailable")

// StatusError is a non-200 HTTP answer.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

// UserAgentFor returns a desktop browser User-Agent matching the host OS
// family, given as a runtime.GOOS value.
func UserAgentFor(goos string) string {
	switch goos {
	case "windows":
		return userAgentWindows
	case "darwin":
		return userAgentMac
	default:
		return userAgentLinux
	}
}

// NewHTTPClient returns the resty client shared by search, detail and image
// requests. Every request carries the spoofed browser headers and waits on
// the per-host limiter.
func NewHTTPClient(cfg *config.Config, limiter *utils.HostLimiter) *resty.Client {
	client := resty.New()
	client.SetTimeout(cfg.HTTPTimeout)
	client.SetHeader("User-Agent", UserAgentFor(runtime.GOOS))
	client.SetHeader("Accept-Language", acceptLanguage)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context(), req.URL)
	})
	return client
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// getDocument fetches and parses an HTML page. Transport errors, 429 and 5xx
// are retried; any other non-200 answer fails immediately with a
// *StatusError.
func getDocument(ctx context.Context, client *resty.Client, retry *utils.RetryConfig, pageURL string) (*goquery.Document, error) {
	var body []byte
	err := retry.Do(ctx, "GET "+pageURL, func() error {
		resp, err := client.R().SetContext(ctx).Get(pageURL)
		if err != nil {
			return fmt.Errorf("GET %s: %w", pageURL, err)
		}
		if resp.StatusCode() != http.StatusOK {
			se := &StatusError{URL: pageURL, Status: resp.StatusCode()}
			if retryableStatus(se.Status) {
				return se
			}
			return utils.Permanent(se)
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// ItemURL resolves href against base and keeps it only when it points at a
// listing under the item path. Query strings and fragments are dropped.
func ItemURL(href, base string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := baseURL.ResolveReference(ref)
	if !strings.EqualFold(abs.Host, baseURL.Host) || !strings.HasPrefix(abs.Path, "/itm/") {
		return "", false
	}
	abs.RawQuery = ""
	abs.Fragment = ""
	return abs.String(), true
}

// resolveAgainst turns protocol-relative or relative image URLs absolute.
func resolveAgainst(raw, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return base.ResolveReference(ref).String()
}
