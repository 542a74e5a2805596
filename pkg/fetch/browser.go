package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/watchbuyer/watchbuyer/pkg/whttp"
)

// BrowserConfig controls the headless Chrome session.
type BrowserConfig struct {
	Timeout        time.Duration
	WaitForElement string
	WaitDelay      time.Duration
	ExecPath       string
}

// BrowserFetcher renders pages in headless Chrome and returns the resulting
// DOM, for result pages that are built client-side.
type BrowserFetcher struct {
	config BrowserConfig
}

func NewBrowserFetcher(config BrowserConfig) *BrowserFetcher {
	if config.Timeout <= 0 {
		config.Timeout = 45 * time.Second
	}
	return &BrowserFetcher{config: config}
}

func (b *BrowserFetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(whttp.UserAgent),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	if b.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.config.ExecPath))
	}
	return opts
}

func (b *BrowserFetcher) tasks(url string, out *string) chromedp.Tasks {
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	if b.config.WaitForElement != "" {
		tasks = append(tasks, chromedp.WaitVisible(b.config.WaitForElement))
	}
	if b.config.WaitDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(b.config.WaitDelay))
	}
	return append(tasks, chromedp.OuterHTML("html", out))
}

// Fetch starts a fresh browser per call; no state survives between calls.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, b.config.Timeout)
	defer cancel()

	var page string
	if err := chromedp.Run(runCtx, b.tasks(url, &page)); err != nil {
		return "", fmt.Errorf("rendering %s: %w", url, err)
	}
	return page, nil
}
