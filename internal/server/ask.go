package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	core "github.com/hrdesk-ai/hrdesk/internal/agent/core"
	"github.com/hrdesk-ai/hrdesk/internal/store"
)

// AskHandler answers HR questions: cache lookup, orchestrator run, run
// persistence.
type AskHandler struct {
	Store   *store.Store
	Orch    *core.Orchestrator
	Cache   *AnswerCache
	Metrics *Metrics
	Logger  *log.Logger
	Timeout time.Duration
}

type AskRequest struct {
	Query      string `json:"query"`
	Topic      string `json:"topic,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// AskResponse is the answer payload. Cached responses carry the original
// run's id so clients can still fetch the full trace.
type AskResponse struct {
	ID             string   `json:"id"`
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	ReasoningTrace []string `json:"reasoning_trace"`
	Confidence     float64  `json:"confidence"`
	ToolsUsed      []string `json:"tools_used"`
	QueryType      string   `json:"query_type"`
	Iterations     int      `json:"iterations"`
	Cached         bool     `json:"cached"`
}

func (h *AskHandler) Register(g *echo.Group) {
	g.POST("/ask", h.ask)
}

func (h *AskHandler) ask(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	ctx := c.Request().Context()
	if cached, ok := h.Cache.Get(ctx, req.Query, req.Topic); ok {
		cached.Cached = true
		if h.Metrics != nil {
			h.Metrics.ObserveAsk("cached", 0, 0)
		}
		return c.JSON(http.StatusOK, cached)
	}

	runCtx, cancel := waitTimeout(ctx, h.Timeout)
	defer cancel()

	started := time.Now()
	res, err := h.Orch.Run(runCtx, req.Query, req.Topic, req.Difficulty)
	if err != nil {
		// Run only fails on context cancellation or deadline.
		if h.Metrics != nil {
			h.Metrics.ObserveAsk("timeout", time.Since(started), 0)
		}
		return echo.NewHTTPError(http.StatusGatewayTimeout, "question processing was cancelled")
	}

	id, err := h.Store.SaveRun(ctx, userID, res)
	if err != nil {
		// The user already has their answer; losing the history row is not
		// worth a 500.
		h.logf("save run: %v", err)
		id = res.ID
	}

	resp := AskResponse{
		ID:             id,
		Answer:         res.Answer,
		Sources:        res.Sources,
		ReasoningTrace: res.ReasoningTrace,
		Confidence:     res.Confidence,
		ToolsUsed:      res.ToolsUsed,
		QueryType:      res.QueryType,
		Iterations:     res.Iterations,
		Cached:         false,
	}
	h.Cache.Set(ctx, req.Query, req.Topic, resp)
	if h.Metrics != nil {
		h.Metrics.ObserveAsk("ok", time.Since(started), res.CostEstimate)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AskHandler) logf(format string, args ...interface{}) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}
