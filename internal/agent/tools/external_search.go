package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
	"github.com/hrdesk-ai/hrdesk/internal/helpers"
	"github.com/hrdesk-ai/hrdesk/tools/webfetch"
	"github.com/hrdesk-ai/hrdesk/tools/websearch"
)

const (
	externalTopK      = 5
	fetchExcerptChars = 4000
)

// ExternalSearch answers from the public web: it discovers results through a
// search provider, optionally pulls full text for the top hit, and condenses
// everything into a short summary.
type ExternalSearch struct {
	searcher  websearch.Searcher
	fetcher   webfetch.Fetcher // optional; nil skips full-text enrichment
	generator Generator
	telemetry *telemetry.Telemetry
	model     string
	logger    *log.Logger
}

func NewExternalSearch(searcher websearch.Searcher, fetcher webfetch.Fetcher, gen Generator, tel *telemetry.Telemetry, model string) *ExternalSearch {
	return &ExternalSearch{
		searcher:  searcher,
		fetcher:   fetcher,
		generator: gen,
		telemetry: tel,
		model:     model,
		logger:    log.New(log.Writer(), "[TOOL:WEB] ", log.LstdFlags),
	}
}

func (t *ExternalSearch) Name() string { return capability.ToolWebSearch }

func (t *ExternalSearch) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	query, ok := stringInput(inputs, "query")
	if !ok {
		return nil, errors.New("web_search: query is required")
	}

	results, err := t.searcher.Discover(ctx, query, externalTopK, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("web_search: %w", err)
	}
	results = dedupeByURL(results)
	if len(results) == 0 {
		return map[string]any{
			"results": []any{},
			"summary": "No public web results found for this question.",
			"sources": []string{},
		}, nil
	}

	excerpt := t.fetchExcerpt(ctx, results[0].URL)
	summary := t.summarize(ctx, query, results, excerpt)

	resultMaps := make([]any, 0, len(results))
	sources := make([]string, 0, len(results))
	for _, r := range results {
		resultMaps = append(resultMaps, map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Snippet,
		})
		sources = append(sources, r.URL)
	}

	return map[string]any{
		"results": resultMaps,
		"summary": summary,
		"sources": sources,
	}, nil
}

// fetchExcerpt pulls readable text for the top hit. Fetch problems only cost
// us the enrichment.
func (t *ExternalSearch) fetchExcerpt(ctx context.Context, url string) string {
	if t.fetcher == nil {
		return ""
	}
	page, err := t.fetcher.Fetch(ctx, url)
	if err != nil || page.Status != 200 || page.Text == "" {
		if err != nil {
			t.logger.Printf("fetch %s failed: %v", url, err)
		}
		return ""
	}
	text := page.Text
	if len(text) > fetchExcerptChars {
		text = text[:fetchExcerptChars]
	}
	return text
}

// summarize condenses the results with one generative call; on failure it
// degrades to the raw snippets.
func (t *ExternalSearch) summarize(ctx context.Context, query string, results []websearch.Result, excerpt string) string {
	var listing strings.Builder
	for _, line := range helpers.FormatCitations(toCitations(results)) {
		fmt.Fprintf(&listing, "- %s\n", line)
	}

	prompt := fmt.Sprintf(`You are summarizing public web search results for an HR assistant.

QUESTION: %s

SEARCH RESULTS:
%s`, query, listing.String())
	if excerpt != "" {
		prompt += fmt.Sprintf("\nTOP RESULT FULL TEXT (excerpt):\n%s\n", excerpt)
	}
	prompt += "\nSummarize what these results say about the question in at most three sentences. Plain text only, no preamble."

	summary, err := generate(ctx, t.generator, t.telemetry, "tools", t.model, prompt)
	if err != nil || strings.TrimSpace(summary) == "" {
		t.logger.Printf("summary generation failed, falling back to snippets: %v", err)
		snippets := make([]string, 0, len(results))
		for _, r := range results {
			if r.Snippet != "" {
				snippets = append(snippets, r.Snippet)
			}
		}
		return strings.Join(snippets, " ")
	}
	return strings.TrimSpace(summary)
}

// dedupeByURL canonicalizes result URLs and collapses entries that point at
// the same page through different tracking parameters or fragments. Results
// without a usable URL are dropped because they cannot be cited.
func dedupeByURL(results []websearch.Result) []websearch.Result {
	seen := make(map[string]struct{}, len(results))
	out := make([]websearch.Result, 0, len(results))
	for _, r := range results {
		canonical, err := helpers.CanonicalURL(r.URL)
		if err != nil {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		r.URL = canonical
		out = append(out, r)
	}
	return out
}

func toCitations(results []websearch.Result) []helpers.Citation {
	out := make([]helpers.Citation, 0, len(results))
	for _, r := range results {
		out = append(out, helpers.Citation{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	return out
}
