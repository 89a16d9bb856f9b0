package ebay

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/chromedp/chromedp"

	"psa-scraper/config"
	"psa-scraper/utils"
)

const scrollPause = time.Second

// PageRenderer loads a page in a browser and returns its rendered DOM.
type PageRenderer interface {
	// Render navigates to pageURL, waits until readySelector matches (or
	// the settle fallback elapses) and returns the document's outer HTML.
	Render(ctx context.Context, pageURL, readySelector string) (string, error)
	Close() error
}

// RendererFactory opens one renderer for the duration of a crawl.
type RendererFactory func(ctx context.Context) (PageRenderer, error)

// ChromeRenderer drives one headless Chrome tab through chromedp.
type ChromeRenderer struct {
	logger       *utils.Logger
	tab          context.Context
	cancelTab    context.CancelFunc
	cancelAlloc  context.CancelFunc
	navTimeout   time.Duration
	readyTimeout time.Duration
	settle       time.Duration
}

// ChromeFactory returns a RendererFactory that launches Chrome with cfg.
func ChromeFactory(cfg *config.Config, logger *utils.Logger) RendererFactory {
	return func(ctx context.Context) (PageRenderer, error) {
		return NewChromeRenderer(ctx, cfg, logger)
	}
}

// NewChromeRenderer launches the browser. A failure here is fatal to the
// crawl and is returned to the caller.
func NewChromeRenderer(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*ChromeRenderer, error) {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	logger.Info("[browser] Using browser binary: %s", orDefault(chromeBin, "chromedp default"))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(UserAgentFor(runtime.GOOS)),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	// Suppress chromedp log noise
	tab, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(tab); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browser: start chrome: %w", err)
	}

	return &ChromeRenderer{
		logger:       logger,
		tab:          tab,
		cancelTab:    cancelTab,
		cancelAlloc:  cancelAlloc,
		navTimeout:   cfg.HTTPTimeout * 2,
		readyTimeout: time.Duration(cfg.ReadyTimeoutMs) * time.Millisecond,
		settle:       time.Duration(cfg.SettleMs) * time.Millisecond,
	}, nil
}

func (r *ChromeRenderer) Render(ctx context.Context, pageURL, readySelector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	navCtx, cancelNav := context.WithTimeout(r.tab, r.navTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(pageURL))
	cancelNav()
	if err != nil {
		return "", fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}

	if !r.waitReady(readySelector) {
		r.logger.Warn("[browser] %q not ready after %v on %s, settling for %v",
			readySelector, r.readyTimeout, pageURL, r.settle)
		if err := sleepCtx(ctx, r.settle); err != nil {
			return "", err
		}
	}

	var markup string
	readCtx, cancelRead := context.WithTimeout(r.tab, r.navTimeout)
	defer cancelRead()
	// Scroll to trigger lazy-loaded cards below the fold
	err = chromedp.Run(readCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(scrollPause),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("browser: read DOM of %s: %w", pageURL, err)
	}
	return markup, nil
}

func (r *ChromeRenderer) waitReady(selector string) bool {
	if selector == "" || r.readyTimeout <= 0 {
		return false
	}
	ctx, cancel := context.WithTimeout(r.tab, r.readyTimeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)) == nil
}

// Close shuts the browser down. It is safe to call more than once.
func (r *ChromeRenderer) Close() error {
	if r.tab == nil {
		return nil
	}
	err := chromedp.Cancel(r.tab)
	r.cancelTab()
	r.cancelAlloc()
	r.tab = nil
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
