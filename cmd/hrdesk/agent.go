package main

import (
	"context"
	"fmt"
	"log"

	"github.com/hrdesk-ai/hrdesk/config"
	core "github.com/hrdesk-ai/hrdesk/internal/agent/core"
	agenttools "github.com/hrdesk-ai/hrdesk/internal/agent/tools"
	"github.com/hrdesk-ai/hrdesk/internal/agent/telemetry"
	"github.com/hrdesk-ai/hrdesk/internal/capability"
	"github.com/hrdesk-ai/hrdesk/internal/knowledge"
	"github.com/hrdesk-ai/hrdesk/internal/llm"
	"github.com/hrdesk-ai/hrdesk/internal/runtime"
	"github.com/hrdesk-ai/hrdesk/internal/store"
	"github.com/hrdesk-ai/hrdesk/tools/webfetch"
	"github.com/hrdesk-ai/hrdesk/tools/websearch"
)

// newRefresher wires the embedding provider and an empty in-memory index
// around the store, so one-shot commands can rebuild retrieval state the same
// way the server does on boot.
func newRefresher(st *store.Store, cfg *config.Config) (*knowledge.Refresher, llm.Provider, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}
	index, err := knowledge.NewIndex(provider, cfg.Knowledge.EmbeddingModel)
	if err != nil {
		return nil, nil, fmt.Errorf("knowledge index: %w", err)
	}
	refresher := &knowledge.Refresher{
		Store:    st,
		Index:    index,
		Embedder: provider,
		Model:    cfg.Knowledge.EmbeddingModel,
		Logger:   log.New(log.Writer(), "[KNOWLEDGE] ", log.LstdFlags),
	}
	return refresher, provider, nil
}

// newOrchestrator wires the full agent stack (registry, tools, telemetry,
// orchestrator) against an already-populated knowledge index.
func newOrchestrator(ctx context.Context, cfg *config.Config, st *store.Store, provider llm.Provider, index *knowledge.Index) (*core.Orchestrator, error) {
	registry, err := runtime.EnsureCapabilityRegistry(ctx, st, cfg)
	if err != nil {
		return nil, fmt.Errorf("capability registry: %w", err)
	}

	searcher, err := websearch.NewSearcher(websearch.Provider(cfg.WebSearch.Provider), cfg.WebSearch.APIKey)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	var fetcher webfetch.Fetcher
	if cfg.WebSearch.FetchContent {
		fetcher, err = webfetch.NewFetcher(webfetch.ChromeFetcherType, cfg.WebSearch.FetchTimeout, cfg.WebSearch.FetchMaxChars)
		if err != nil {
			return nil, fmt.Errorf("web fetch: %w", err)
		}
	}

	tel := telemetry.NewTelemetry(cfg.Telemetry)
	toolModel := cfg.LLM.Routing.Tools
	for _, tool := range []capability.Tool{
		agenttools.NewKnowledgeSearch(index),
		agenttools.NewExternalSearch(searcher, fetcher, provider, tel, toolModel),
		agenttools.NewPolicyCompare(index, provider, tel, toolModel),
		agenttools.NewFactCheck(index, provider, tel, toolModel),
		agenttools.NewContentPlan(index, provider, tel, toolModel),
	} {
		if err := registry.Bind(tool); err != nil {
			return nil, fmt.Errorf("bind %s: %w", tool.Name(), err)
		}
	}

	return core.NewOrchestrator(cfg, nil, tel, registry, provider)
}
