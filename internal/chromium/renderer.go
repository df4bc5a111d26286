// Package chromium renders a web page to its post-JavaScript HTML using a
// headless Chrome instance controlled by chromedp, for the profile
// website scraper (C7).
package chromium

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer drives a headless Chrome instance via chromedp.
type Renderer struct {
	Timeout time.Duration
}

// NewRenderer builds a Renderer with the given per-page timeout (default
// 15s if zero).
func NewRenderer(timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Renderer{Timeout: timeout}
}

// Render navigates to pageURL in a fresh headless browser context and
// returns the rendered document's outer HTML.
func (r *Renderer) Render(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", true))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, r.Timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("chromium: render %s: %w", pageURL, err)
	}
	return html, nil
}
