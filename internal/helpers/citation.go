// Package helpers holds small normalization and formatting utilities shared
// by the web-facing tools.
package helpers

import "strings"

// maxSnippetLen caps snippet text inside a formatted citation.
const maxSnippetLen = 180

// Citation is one external source referenced in a prompt or a reasoning
// trace.
type Citation struct {
	Title   string
	URL     string
	Snippet string
}

// FormatCitation renders a citation on one line:
//
//	Title: "snippet" (domain) <url>
//
// Empty fields are skipped so partial search results still format cleanly.
func FormatCitation(c Citation) string {
	var parts []string
	if title := strings.TrimSpace(c.Title); title != "" {
		parts = append(parts, title+":")
	}
	if snippet := clipSnippet(c.Snippet); snippet != "" {
		parts = append(parts, `"`+snippet+`"`)
	}
	if domain := Domain(c.URL); domain != "" {
		parts = append(parts, "("+domain+")")
	}
	if link := strings.TrimSpace(c.URL); link != "" {
		parts = append(parts, "<"+link+">")
	}
	return strings.Join(parts, " ")
}

// FormatCitations renders one line per citation, in input order.
func FormatCitations(citations []Citation) []string {
	if len(citations) == 0 {
		return nil
	}
	out := make([]string, 0, len(citations))
	for _, c := range citations {
		out = append(out, FormatCitation(c))
	}
	return out
}

func clipSnippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxSnippetLen {
		s = s[:maxSnippetLen] + "..."
	}
	return s
}
