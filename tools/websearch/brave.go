package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const braveBaseURL = "https://api.search.brave.com"

// Brave searches through the Brave Web Search API.
// Docs: https://api.search.brave.com/app/documentation/web-search
type Brave struct {
	APIKey  string
	BaseURL string       // override for tests; defaults to the public endpoint
	Client  *http.Client // defaults to http.DefaultClient
}

func (b *Brave) Discover(ctx context.Context, query string, k int, sites []string, recencyDays int) ([]Result, error) {
	q := query
	if len(sites) > 0 {
		scoped := make([]string, len(sites))
		for i, site := range sites {
			scoped[i] = "site:" + site
		}
		q = query + " " + strings.Join(scoped, " OR ")
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("count", strconv.Itoa(k))
	// The freshness parameter only takes day/week/month buckets; recencyDays
	// is advisory here.
	if recencyDays > 0 && recencyDays <= 7 {
		params.Set("freshness", "pw")
	}

	base := b.BaseURL
	if base == "" {
		base = braveBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/res/v1/web/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := httpClient(b.Client).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave: unexpected status %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("brave: decode response: %w", err)
	}

	out := make([]Result, 0, len(raw.Web.Results))
	for i, item := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, Result{Title: item.Title, URL: item.URL, Snippet: item.Description})
	}
	return out, nil
}
