package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const serperBaseURL = "https://google.serper.dev"

// Serper searches through the serper.dev API.
// Docs: https://serper.dev/
type Serper struct {
	APIKey  string
	BaseURL string       // override for tests; defaults to the public endpoint
	Client  *http.Client // defaults to http.DefaultClient
}

func (s *Serper) Discover(ctx context.Context, query string, k int, sites []string, recencyDays int) ([]Result, error) {
	payload := map[string]any{"q": query, "num": k}
	if len(sites) > 0 {
		payload["site"] = strings.Join(sites, " OR ")
	}
	if recencyDays > 0 {
		payload["tbs"] = fmt.Sprintf("qdr:%d", recencyDays)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	base := s.BaseURL
	if base == "" {
		base = serperBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient(s.Client).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper: unexpected status %d", resp.StatusCode)
	}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("serper: decode response: %w", err)
	}

	out := make([]Result, 0, len(raw.Organic))
	for i, item := range raw.Organic {
		if i >= k {
			break
		}
		out = append(out, Result{Title: item.Title, URL: item.Link, Snippet: item.Snippet})
	}
	return out, nil
}
