package server

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hrdesk-ai/hrdesk/internal/knowledge"
	"github.com/hrdesk-ai/hrdesk/internal/runtime"
	"github.com/hrdesk-ai/hrdesk/internal/store"
)

// DocumentsHandler manages the HR knowledge base. Writes require the admin
// scope and trigger a refresh so new content is searchable immediately.
type DocumentsHandler struct {
	Store     *store.Store
	Refresher *knowledge.Refresher
	Logger    *log.Logger
}

type DocumentRequest struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Topic   string `json:"topic,omitempty"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

func (h *DocumentsHandler) Register(g *echo.Group) {
	g.GET("/documents", h.list)
	g.POST("/documents", h.upsert, runtime.RequireScopes(runtime.ScopeAdmin))
}

func (h *DocumentsHandler) list(c echo.Context) error {
	docs, err := h.Store.ListDocuments(c.Request().Context(), c.QueryParam("topic"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if docs == nil {
		docs = []knowledge.Document{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"documents": docs})
}

func (h *DocumentsHandler) upsert(c echo.Context) error {
	var req DocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	if req.Title == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title and content are required")
	}

	ctx := c.Request().Context()
	// Embedding is left empty so the refresher computes a vector for the new
	// content.
	id, err := h.Store.UpsertDocument(ctx, knowledge.Document{
		ID:      req.ID,
		Title:   req.Title,
		Topic:   strings.TrimSpace(req.Topic),
		Content: req.Content,
		Source:  strings.TrimSpace(req.Source),
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.Refresher != nil {
		if err := h.Refresher.Refresh(ctx); err != nil {
			// Document is stored; retrieval catches up on the next scheduled
			// refresh.
			if h.Logger != nil {
				h.Logger.Printf("refresh after upsert %s: %v", id, err)
			}
		}
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}
