// Package webfetch renders a web page in headless Chrome and extracts its
// readable article text. The external search tool uses it to pull full text
// for the most promising hit instead of answering from snippets alone.
package webfetch

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxChars = 20000
)

// Result is the readable content of one fetched page. A degraded fetch still
// returns a Result; callers branch on Status.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline"`
	Text     string `json:"text"`
	HTMLHash string `json:"html_hash"`
	Status   int    `json:"status"`
	RenderMS int    `json:"render_ms"`
}

// Fetcher retrieves one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Result, error)
}

// FetcherType selects a fetch backend.
type FetcherType string

const ChromeFetcherType FetcherType = "chromedp"

var ErrUnsupportedFetcher = errors.New("unsupported fetcher type")

// NewFetcher builds the configured fetcher.
func NewFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int) (Fetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	switch fetcherType {
	case ChromeFetcherType:
		return &ChromeFetcher{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
