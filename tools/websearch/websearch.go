// Package websearch provides public web search for questions the internal
// knowledge base cannot answer. Providers share one interface so the caller
// picks serper or brave purely from configuration.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher finds up to k public web results for a query. sites restricts
// results to the given domains; recencyDays restricts them to the last N days.
// Both are advisory: providers that cannot express a restriction ignore it.
type Searcher interface {
	Discover(ctx context.Context, query string, k int, sites []string, recencyDays int) ([]Result, error)
}

// Provider selects a search backend.
type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

// NewSearcher builds the configured provider.
func NewSearcher(provider Provider, apiKey string) (Searcher, error) {
	switch provider {
	case SerperProvider:
		return &Serper{APIKey: apiKey}, nil
	case BraveProvider:
		return &Brave{APIKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}
