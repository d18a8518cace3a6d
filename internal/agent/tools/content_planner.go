package tools

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
	"github.com/hrdesk-ai/hrdesk/internal/knowledge"
)

const planGroundingTopK = 3

// ContentPlan drafts an outline for HR content (announcements, policy
// explainers, onboarding material), grounded in related handbook passages
// when any exist.
type ContentPlan struct {
	index     *knowledge.Index
	generator Generator
	telemetry *telemetry.Telemetry
	model     string
	logger    *log.Logger
}

func NewContentPlan(index *knowledge.Index, gen Generator, tel *telemetry.Telemetry, model string) *ContentPlan {
	return &ContentPlan{
		index:     index,
		generator: gen,
		telemetry: tel,
		model:     model,
		logger:    log.New(log.Writer(), "[TOOL:PLAN] ", log.LstdFlags),
	}
}

func (t *ContentPlan) Name() string { return capability.ToolContentPlan }

func (t *ContentPlan) Run(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	request, ok := stringInput(inputs, "request")
	if !ok {
		return nil, errors.New("content_plan: request is required")
	}
	topic, _ := stringInput(inputs, "topic")
	difficulty, _ := stringInput(inputs, "difficulty")

	// Grounding is best effort; an empty index is fine.
	var passages, sources []string
	if hits, err := t.index.Search(ctx, request, topic, planGroundingTopK); err == nil {
		for _, hit := range hits {
			passages = append(passages, hit.Document.Content)
			sources = append(sources, hit.Document.Source)
		}
	}

	outline, err := t.outlineOnce(ctx, request, difficulty, passages)
	if err != nil {
		t.logger.Printf("outline generation failed, using skeleton: %v", err)
		outline = map[string]any{
			"title": request,
			"sections": []any{
				map[string]any{"heading": "Overview", "points": []string{"State the purpose and audience"}},
				map[string]any{"heading": "Policy details", "points": []string{"Pull specifics from the handbook"}},
				map[string]any{"heading": "Next steps", "points": []string{"Who to contact, which forms to file"}},
			},
			"notes": "Automated outlining was unavailable; this is a standard skeleton.",
		}
	}
	outline["sources"] = sources
	return outline, nil
}

func (t *ContentPlan) outlineOnce(ctx context.Context, request, difficulty string, passages []string) (map[string]any, error) {
	var grounding strings.Builder
	for _, p := range passages {
		fmt.Fprintf(&grounding, "- %s\n", p)
	}
	if grounding.Len() == 0 {
		grounding.WriteString("(none)\n")
	}

	prompt := fmt.Sprintf(`You are outlining HR content for an internal author.

REQUEST: %s
AUDIENCE LEVEL: %s

RELATED HANDBOOK PASSAGES:
%s
Produce a practical outline. Two to five sections, each with two to four
concrete points. Work handbook specifics into the points where the passages
support them.

OUTPUT FORMAT (JSON):
{"title": "...", "sections": [{"heading": "...", "points": ["..."]}], "notes": "..."}

Return ONLY strict JSON matching the format above.`, request, orDefault(difficulty, "general"), grounding.String())

	response, err := generate(ctx, t.generator, t.telemetry, "tools", t.model, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Title    string `json:"title"`
		Sections []struct {
			Heading string   `json:"heading"`
			Points  []string `json:"points"`
		} `json:"sections"`
		Notes string `json:"notes"`
	}
	if err := decodeJSON(response, &parsed); err != nil {
		return nil, err
	}
	if strings.TrimSpace(parsed.Title) == "" || len(parsed.Sections) == 0 {
		return nil, errors.New("outline incomplete")
	}

	sections := make([]any, 0, len(parsed.Sections))
	for _, s := range parsed.Sections {
		sections = append(sections, map[string]any{"heading": s.Heading, "points": s.Points})
	}
	return map[string]any{
		"title":    parsed.Title,
		"sections": sections,
		"notes":    parsed.Notes,
	}, nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
