package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/models"
	"page-composer-backend/internal/preview"
	"page-composer-backend/internal/session"
	"page-composer-backend/pkg/logger"
)

type BuilderHandler struct {
	manager *session.Manager
}

func NewBuilderHandler(manager *session.Manager) *BuilderHandler {
	return &BuilderHandler{manager: manager}
}

// OpenSession starts a builder session for one page.
// POST /api/builder/sessions
func (h *BuilderHandler) OpenSession(c *gin.Context) {
	var req models.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	s, err := h.manager.Open(c.Request.Context(), req.PageID)
	if errors.Is(err, session.ErrTooManySessions) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Too many open sessions"})
		return
	}
	if err != nil {
		logger.Error(err, "Failed to open builder session", map[string]interface{}{"page_id": req.PageID})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load page schemas"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.ID,
		"page_id":    s.PageID,
		"tree":       s.Tree(),
	})
}

// CloseSession tears down a builder session.
// DELETE /api/builder/sessions/:id
func (h *BuilderHandler) CloseSession(c *gin.Context) {
	if err := h.manager.Close(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session closed"})
}

// GetTree returns the page's section trees.
// GET /api/builder/sessions/:id/tree
func (h *BuilderHandler) GetTree(c *gin.Context) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": s.Tree()})
}

type updateComponentBody struct {
	NodeID       string               `json:"node_id" binding:"required"`
	Settings     map[string]string    `json:"settings"`
	ContentQuery *models.ContentQuery `json:"content_query"`
}

// UpdateComponent saves settings for one node through the boundary.
// POST /api/builder/sessions/:id/components/update
func (h *BuilderHandler) UpdateComponent(c *gin.Context) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var body updateComponentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	form, err := s.EditNode(body.NodeID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "component not found"})
		return
	}
	for name, value := range body.Settings {
		form.SetField(name, value)
	}
	if body.ContentQuery != nil {
		form.SetContentSource(body.ContentQuery.ContentTypeID, body.ContentQuery.Limit,
			body.ContentQuery.SortField, body.ContentQuery.SortOrder)
	}

	if err := s.UpdateComponent(c.Request.Context(), form); err != nil {
		logger.Error(err, "Component update rejected", map[string]interface{}{
			"session_id": s.ID,
			"node_id":    body.NodeID,
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": form.LastError()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "component updated"})
}

// RefreshSchemas re-pulls schemas and rebuilds the trees.
// POST /api/builder/sessions/:id/schemas/refresh
func (h *BuilderHandler) RefreshSchemas(c *gin.Context) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := s.RefreshSchemas(c.Request.Context()); err != nil {
		logger.Error(err, "Schema refresh failed", map[string]interface{}{"session_id": s.ID})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to refresh schemas"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tree": s.Tree()})
}

// GetPreview serves one widget's preview, cache first. ?reload=true forces
// a fresh fetch subject to the debounce window.
// GET /api/builder/sessions/:id/previews/:widgetID
func (h *BuilderHandler) GetPreview(c *gin.Context) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	widgetID, err := strconv.ParseUint(c.Param("widgetID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid widget id"})
		return
	}
	instanceKey := c.DefaultQuery("instance", api.DefaultInstanceKey)

	var payload models.PreviewPayload
	if c.Query("reload") == "true" {
		payload, err = s.ReloadPreview(c.Request.Context(), uint(widgetID), instanceKey)
	} else {
		payload, err = s.Preview(c.Request.Context(), uint(widgetID), instanceKey)
	}

	switch {
	case errors.Is(err, preview.ErrDebounced):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "preview reload debounced"})
		return
	case errors.Is(err, preview.ErrSuperseded):
		c.Status(http.StatusNoContent)
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load preview"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"preview": payload})
}

// BrowseItems pages through a content type's items for the content browser.
// POST /api/builder/sessions/:id/browse
func (h *BuilderHandler) BrowseItems(c *gin.Context) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req models.BrowseItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	browser, err := s.OpenBrowser(c.Request.Context(), req.ContentTypeID, req.WidgetID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to browse content items"})
		return
	}
	if req.Search != "" {
		if err := browser.Search(c.Request.Context(), req.Search); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to browse content items"})
			return
		}
	}
	if req.Page > 1 {
		if err := browser.GoToPage(c.Request.Context(), req.Page); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to browse content items"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      browser.Items(),
		"pagination": browser.Pagination(),
	})
}
