package webfetch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
)

// ChromeFetcher renders pages in headless Chrome and extracts article text
// with readability. Fetch and extraction failures degrade to a partial Result
// rather than an error; only an invalid URL is rejected outright.
type ChromeFetcher struct {
	Timeout  time.Duration
	MaxChars int
}

func (f *ChromeFetcher) Fetch(ctx context.Context, pageURL string) (Result, error) {
	if strings.TrimSpace(pageURL) == "" {
		return Result{}, errors.New("webfetch: empty url")
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	t0 := time.Now()

	html, err := f.renderHTML(ctx, pageURL)
	if err != nil {
		return Result{URL: pageURL, Status: 599, RenderMS: sinceMS(t0)}, nil
	}

	article, err := readability.FromReader(strings.NewReader(html), parseURL(pageURL))
	if err != nil {
		return Result{URL: pageURL, Status: 200, RenderMS: sinceMS(t0)}, nil
	}

	text := article.TextContent
	if len(text) > f.MaxChars {
		text = text[:f.MaxChars]
	}

	sum := sha1.Sum([]byte(html))

	return Result{
		URL:      pageURL,
		Title:    strings.TrimSpace(article.Title),
		Byline:   strings.TrimSpace(article.Byline),
		Text:     strings.TrimSpace(text),
		HTMLHash: hex.EncodeToString(sum[:]),
		Status:   200,
		RenderMS: sinceMS(t0),
	}, nil
}

func (f *ChromeFetcher) renderHTML(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("hrdesk/1.0 (+https://github.com/hrdesk-ai/hrdesk)"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

func sinceMS(t0 time.Time) int {
	return int(time.Since(t0) / time.Millisecond)
}

func parseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
