// Package server exposes the HR desk over HTTP: auth, the ask endpoint, run
// history, document management, health and metrics, plus the background
// knowledge refresh scheduler.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

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

// Run builds every dependency from cfg and serves the API until the listener
// stops. Fatal wiring problems return before the listener starts.
func Run(cfg *config.Config) error {
	ctx := context.Background()
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	allowOrigins := cfg.Server.CORSAllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie", "Authorization"},
		AllowCredentials: true,
	}))

	metrics := NewMetrics()
	e.Use(metrics.Middleware())
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", metrics.Handler())

	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	var rdb *redis.Client
	if cfg.Storage.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr(),
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}

	index, err := knowledge.NewIndex(provider, cfg.Knowledge.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("knowledge index: %w", err)
	}
	refresher := &knowledge.Refresher{
		Store:    st,
		Index:    index,
		Embedder: provider,
		Model:    cfg.Knowledge.EmbeddingModel,
		Logger:   log.New(log.Writer(), "[KNOWLEDGE] ", log.LstdFlags),
	}
	// Initial load is best effort: an empty index degrades answers, it does
	// not block the API.
	if err := refresher.Refresh(ctx); err != nil {
		baseLogger.Printf("initial knowledge refresh failed: %v", err)
	}

	registry, err := runtime.EnsureCapabilityRegistry(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("capability registry: %w", err)
	}

	searcher, err := websearch.NewSearcher(websearch.Provider(cfg.WebSearch.Provider), cfg.WebSearch.APIKey)
	if err != nil {
		return fmt.Errorf("web search: %w", err)
	}
	var fetcher webfetch.Fetcher
	if cfg.WebSearch.FetchContent {
		fetcher, err = webfetch.NewFetcher(webfetch.ChromeFetcherType, cfg.WebSearch.FetchTimeout, cfg.WebSearch.FetchMaxChars)
		if err != nil {
			return fmt.Errorf("web fetch: %w", err)
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
			return fmt.Errorf("bind %s: %w", tool.Name(), err)
		}
	}

	orch, err := core.NewOrchestrator(cfg, log.New(log.Writer(), "[ORCHESTRATOR] ", log.LstdFlags), tel, registry, provider)
	if err != nil {
		return err
	}

	secret, err := runtime.LoadJWTSecret(cfg)
	if err != nil {
		return err
	}

	api := e.Group("/api")

	auth := &AuthHandler{Store: st, Secret: secret, AdminEmails: cfg.Server.AdminEmails}
	auth.Register(api.Group("/auth"))

	cache := NewAnswerCache(rdb, cfg.Storage.Redis.AnswerTTL)

	protected := api.Group("", runtime.EchoAuthMiddleware(secret))

	ask := &AskHandler{
		Store:   st,
		Orch:    orch,
		Cache:   cache,
		Metrics: metrics,
		Logger:  log.New(log.Writer(), "[ASK] ", log.LstdFlags),
		Timeout: cfg.Agent.RunTimeout,
	}
	ask.Register(protected)

	runs := &RunsHandler{Store: st}
	runs.Register(protected)

	docs := &DocumentsHandler{
		Store:     st,
		Refresher: refresher,
		Logger:    log.New(log.Writer(), "[DOCS] ", log.LstdFlags),
	}
	docs.Register(protected)

	sched := &Scheduler{
		Refresher: refresher,
		Rdb:       rdb,
		Cron:      cfg.Knowledge.RefreshCron,
		Stop:      make(chan struct{}),
		Logger:    log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
	}
	sched.Start()
	defer close(sched.Stop)

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8090"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// waitTimeout bounds a run when agent.run_timeout is configured.
func waitTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
