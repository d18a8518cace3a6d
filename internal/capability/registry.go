package capability

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Canonical tool names. The planner vocabulary, the escalation rule and the
// selector's input mappings refer to tools by these names; new tools register
// under their own name without touching Decide/Execute.
const (
	ToolKnowledgeSearch = "knowledge_search"
	ToolWebSearch       = "web_search"
	ToolPolicyCompare   = "policy_compare"
	ToolFactCheck       = "fact_check"
	ToolContentPlan     = "content_plan"
)

// Tool is the uniform capability interface. Implementations must be stateless
// with respect to per-request data so one instance can serve concurrent runs.
type Tool interface {
	Name() string
	Run(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// ToolCard represents registry metadata for a capability.
type ToolCard struct {
	Name         string                 `json:"name"`
	Version      string                 `json:"version"`
	Description  string                 `json:"description"`
	InputSchema  map[string]interface{} `json:"input_schema"`
	OutputSchema map[string]interface{} `json:"output_schema"`
	CostEstimate float64                `json:"cost_estimate"`
	SideEffects  []string               `json:"side_effects"`
	Checksum     string                 `json:"checksum"`
	Signature    string                 `json:"signature"`
}

// DefaultToolCards returns the built-in capability cards with their input schemas.
func DefaultToolCards() []ToolCard {
	str := func() map[string]interface{} { return map[string]interface{}{"type": "string"} }
	obj := func(props map[string]interface{}, required ...string) map[string]interface{} {
		schema := map[string]interface{}{
			"$schema":    "http://json-schema.org/draft-07/schema#",
			"type":       "object",
			"properties": props,
		}
		if len(required) > 0 {
			schema["required"] = required
		}
		return schema
	}
	return []ToolCard{
		{
			Name:        ToolKnowledgeSearch,
			Version:     "v1",
			Description: "Searches the internal HR knowledge base and scores retrieval quality",
			InputSchema: obj(map[string]interface{}{
				"query": str(),
				"topic": str(),
				"topK":  map[string]interface{}{"type": "integer"},
			}, "query"),
			OutputSchema: obj(map[string]interface{}{}),
		},
		{
			Name:        ToolWebSearch,
			Version:     "v1",
			Description: "Searches the public web for HR guidance outside the handbook",
			InputSchema: obj(map[string]interface{}{
				"query": str(),
			}, "query"),
			OutputSchema: obj(map[string]interface{}{}),
			SideEffects:  []string{"network"},
		},
		{
			Name:        ToolPolicyCompare,
			Version:     "v1",
			Description: "Compares two policies or benefit options side by side",
			InputSchema: obj(map[string]interface{}{
				"itemA":          str(),
				"itemB":          str(),
				"topic":          str(),
				"comparisonType": str(),
			}, "itemA"),
			OutputSchema: obj(map[string]interface{}{}),
		},
		{
			Name:        ToolFactCheck,
			Version:     "v1",
			Description: "Verifies a claim against the internal knowledge base",
			InputSchema: obj(map[string]interface{}{
				"claim": str(),
				"topic": str(),
			}, "claim"),
			OutputSchema: obj(map[string]interface{}{}),
		},
		{
			Name:        ToolContentPlan,
			Version:     "v1",
			Description: "Drafts an outline for HR content such as announcements or policy docs",
			InputSchema: obj(map[string]interface{}{
				"request":    str(),
				"topic":      str(),
				"difficulty": str(),
			}, "request"),
			OutputSchema: obj(map[string]interface{}{}),
		},
	}
}

// Registry holds validated ToolCards and bound implementations keyed by tool
// name. Bind everything during startup; the registry is read-only once runs
// start.
type Registry struct {
	cards map[string]ToolCard
	tools map[string]Tool
}

// ErrToolMissing indicates a required tool is not registered.
var ErrToolMissing = fmt.Errorf("required tool missing")

// NewRegistry validates ToolCards, keeps the highest version per name, and
// ensures required tools exist.
func NewRegistry(cards []ToolCard, signingSecret string, required []string) (*Registry, error) {
	reg := &Registry{cards: make(map[string]ToolCard), tools: make(map[string]Tool)}
	for _, tc := range cards {
		if err := ValidateToolCard(tc); err != nil {
			return nil, fmt.Errorf("tool %s@%s invalid: %w", tc.Name, tc.Version, err)
		}
		if err := validateSignature(tc, signingSecret); err != nil {
			return nil, fmt.Errorf("tool %s@%s signature invalid: %w", tc.Name, tc.Version, err)
		}
		existing, ok := reg.cards[tc.Name]
		if !ok || versionGreater(tc.Version, existing.Version) {
			reg.cards[tc.Name] = tc
		}
	}
	if len(required) == 0 {
		required = []string{ToolKnowledgeSearch, ToolWebSearch, ToolPolicyCompare, ToolFactCheck, ToolContentPlan}
	}
	for _, r := range required {
		if _, ok := reg.cards[r]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolMissing, r)
		}
	}
	return reg, nil
}

// Bind attaches a runnable implementation to its card.
func (r *Registry) Bind(t Tool) error {
	if _, ok := r.cards[t.Name()]; !ok {
		return fmt.Errorf("%w: no card for %s", ErrToolMissing, t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Resolve returns the bound implementation for a tool name.
func (r *Registry) Resolve(name string) (Tool, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	return t, nil
}

// Card returns the ToolCard for a tool name.
func (r *Registry) Card(name string) (ToolCard, bool) {
	if r == nil {
		return ToolCard{}, false
	}
	tc, ok := r.cards[name]
	return tc, ok
}

// Names returns the card names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.cards))
	for name := range r.cards {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidateInput checks tool inputs against the card's input schema. Cards
// without a schema accept any inputs.
func (r *Registry) ValidateInput(name string, inputs map[string]any) error {
	tc, ok := r.Card(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	if len(tc.InputSchema) == 0 {
		return nil
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(tc.InputSchema), gojsonschema.NewGoLoader(inputs))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid inputs for %s: %s", name, strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateToolCard checks structural requirements: name and version present,
// schemas loadable.
func ValidateToolCard(tc ToolCard) error {
	if strings.TrimSpace(tc.Name) == "" {
		return fmt.Errorf("tool card name is required")
	}
	if strings.TrimSpace(tc.Version) == "" {
		return fmt.Errorf("tool card version is required")
	}
	for field, schema := range map[string]map[string]interface{}{"input_schema": tc.InputSchema, "output_schema": tc.OutputSchema} {
		if len(schema) == 0 {
			continue
		}
		if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
			return fmt.Errorf("%s does not compile: %w", field, err)
		}
	}
	return nil
}

// ComputeChecksum returns a deterministic hash of the ToolCard payload
// (excluding checksum and signature fields).
func ComputeChecksum(tc ToolCard) (string, error) {
	payload := map[string]interface{}{
		"name":          tc.Name,
		"version":       tc.Version,
		"description":   tc.Description,
		"input_schema":  tc.InputSchema,
		"output_schema": tc.OutputSchema,
		"cost_estimate": tc.CostEstimate,
		"side_effects":  tc.SideEffects,
	}
	normalized, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChecksum recomputes the card checksum and compares it to the stored one.
func VerifyChecksum(tc ToolCard) error {
	expected, err := ComputeChecksum(tc)
	if err != nil {
		return err
	}
	if expected != tc.Checksum {
		return fmt.Errorf("checksum mismatch for %s@%s", tc.Name, tc.Version)
	}
	return nil
}

// SignToolCard computes an HMAC signature over the card checksum.
func SignToolCard(tc ToolCard, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}
	checksum, err := ComputeChecksum(tc)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(checksum))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func validateSignature(tc ToolCard, secret string) error {
	if secret == "" {
		return nil
	}
	expected, err := SignToolCard(tc, secret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(tc.Signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func versionGreater(a, b string) bool {
	if a == b {
		return false
	}
	// naive semver compare
	return compareVersionParts(splitVersion(a), splitVersion(b)) > 0
}

func splitVersion(v string) []int {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		fmt.Sscanf(p, "%d", &out[i])
	}
	return out
}

func compareVersionParts(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai, bi := 0, 0
		if i < len(a) {
			ai = a[i]
		}
		if i < len(b) {
			bi = b[i]
		}
		if ai > bi {
			return 1
		}
		if ai < bi {
			return -1
		}
	}
	return 0
}
