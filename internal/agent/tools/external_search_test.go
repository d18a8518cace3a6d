package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hrdesk-ai/hrdesk/tools/webfetch"
	"github.com/hrdesk-ai/hrdesk/tools/websearch"
)

func sdiResults() []websearch.Result {
	return []websearch.Result{
		{Title: "EDD SDI rates", URL: "https://edd.ca.gov/sdi", Snippet: "The 2025 SDI withholding rate is 1.1 percent."},
		{Title: "SDI overview", URL: "https://example.org/sdi", Snippet: "State disability insurance basics."},
	}
}

func TestExternalSearchSummarizesResults(t *testing.T) {
	searcher := &stubSearcher{results: sdiResults()}
	fetcher := &stubFetcher{result: webfetch.Result{Status: 200, Text: "Full article: the SDI rate for 2025 is 1.1 percent of wages."}}
	gen := &stubGenerator{script: []string{"The 2025 SDI rate is 1.1 percent."}}
	tool := NewExternalSearch(searcher, fetcher, gen, testTel(), "test-model")

	result, err := tool.Run(context.Background(), map[string]any{"query": "SDI rate 2025"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result["summary"] != "The 2025 SDI rate is 1.1 percent." {
		t.Fatalf("summary not taken from generation: %v", result["summary"])
	}
	sources := result["sources"].([]string)
	if len(sources) != 2 || sources[0] != "https://edd.ca.gov/sdi" {
		t.Fatalf("sources = %v", sources)
	}
	if len(result["results"].([]any)) != 2 {
		t.Fatalf("results not mapped: %v", result["results"])
	}
	if fetcher.calls != 1 {
		t.Fatalf("top hit must be fetched once, got %d", fetcher.calls)
	}
	if !strings.Contains(gen.prompts[0], "Full article") {
		t.Fatalf("fetched text must reach the summary prompt")
	}
}

func TestExternalSearchFallsBackToSnippets(t *testing.T) {
	searcher := &stubSearcher{results: sdiResults()}
	gen := &stubGenerator{} // generation fails
	tool := NewExternalSearch(searcher, nil, gen, testTel(), "test-model")

	result, err := tool.Run(context.Background(), map[string]any{"query": "SDI rate 2025"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	summary := result["summary"].(string)
	if !strings.Contains(summary, "1.1 percent") {
		t.Fatalf("fallback summary must carry the snippets, got %q", summary)
	}
}

func TestExternalSearchNoResults(t *testing.T) {
	searcher := &stubSearcher{}
	gen := &stubGenerator{script: []string{"should not be called"}}
	tool := NewExternalSearch(searcher, nil, gen, testTel(), "test-model")

	result, err := tool.Run(context.Background(), map[string]any{"query": "q"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(result["summary"].(string), "No public web results") {
		t.Fatalf("unexpected summary: %v", result["summary"])
	}
	if gen.calls != 0 {
		t.Fatalf("no results must skip summarization, got %d calls", gen.calls)
	}
}

func TestExternalSearchSearcherErrorPropagates(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("provider quota exceeded")}
	tool := NewExternalSearch(searcher, nil, &stubGenerator{}, testTel(), "test-model")

	if _, err := tool.Run(context.Background(), map[string]any{"query": "q"}); err == nil {
		t.Fatalf("searcher failure must surface as an error")
	}
}

func TestExternalSearchFetchFailureOnlyLosesEnrichment(t *testing.T) {
	searcher := &stubSearcher{results: sdiResults()}
	fetcher := &stubFetcher{err: errors.New("render timeout")}
	gen := &stubGenerator{script: []string{"summary"}}
	tool := NewExternalSearch(searcher, fetcher, gen, testTel(), "test-model")

	result, err := tool.Run(context.Background(), map[string]any{"query": "q"})
	if err != nil {
		t.Fatalf("fetch failure must not fail the tool: %v", err)
	}
	if result["summary"] != "summary" {
		t.Fatalf("summary = %v", result["summary"])
	}
	if strings.Contains(gen.prompts[0], "FULL TEXT") {
		t.Fatalf("failed fetch must not contribute an excerpt")
	}
}

func TestExternalSearchDedupesTrackedURLs(t *testing.T) {
	searcher := &stubSearcher{results: []websearch.Result{
		{Title: "EDD SDI rates", URL: "https://edd.ca.gov/sdi?utm_source=newsletter", Snippet: "1.1 percent."},
		{Title: "EDD SDI rates", URL: "https://edd.ca.gov/sdi#rates", Snippet: "1.1 percent."},
		{Title: "SDI overview", URL: "https://example.org/sdi", Snippet: "Basics."},
	}}
	gen := &stubGenerator{script: []string{"summary"}}
	tool := NewExternalSearch(searcher, nil, gen, testTel(), "test-model")

	result, err := tool.Run(context.Background(), map[string]any{"query": "q"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sources := result["sources"].([]string)
	if len(sources) != 2 {
		t.Fatalf("tracking params and fragments must collapse to one source, got %v", sources)
	}
	if sources[0] != "https://edd.ca.gov/sdi" {
		t.Fatalf("sources must be canonical URLs, got %v", sources[0])
	}
}

func TestExternalSearchRequiresQuery(t *testing.T) {
	tool := NewExternalSearch(&stubSearcher{}, nil, &stubGenerator{}, testTel(), "test-model")
	if _, err := tool.Run(context.Background(), map[string]any{}); err == nil {
		t.Fatalf("missing query must be an error")
	}
}
