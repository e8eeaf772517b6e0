package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"page-composer-backend/internal/session"
	"page-composer-backend/internal/wizard"
	"page-composer-backend/pkg/logger"
)

type startWizardBody struct {
	SectionID string `json:"section_id" binding:"required"`
	ColumnID  string `json:"column_id" binding:"required"`
}

type chooseWidgetBody struct {
	WidgetID uint   `json:"widget_id" binding:"required"`
	Slug     string `json:"slug" binding:"omitempty,slug"`
}

type chooseContentTypeBody struct {
	ContentTypeID uint `json:"content_type_id" binding:"required"`
}

type selectItemsBody struct {
	ItemIDs     []uint `json:"item_ids"`
	DeselectIDs []uint `json:"deselect_ids"`
}

// StartWizard opens the widget selection flow for one drop target.
// POST /api/builder/sessions/:id/wizard
func (h *BuilderHandler) StartWizard(c *gin.Context) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var body startWizardBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if _, found := s.FindNode(body.ColumnID); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "column not found"})
		return
	}

	w := s.StartWizard(body.SectionID, body.ColumnID)
	c.JSON(http.StatusCreated, gin.H{"state": w.State()})
}

// ChooseWidget records the widget selection and returns the content types
// the widget can bind to.
// POST /api/builder/sessions/:id/wizard/widget
func (h *BuilderHandler) ChooseWidget(c *gin.Context) {
	s, w, ok := h.wizardFor(c)
	if !ok {
		return
	}

	var body chooseWidgetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	ws, found := s.WidgetSchemaByID(body.WidgetID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "widget not found"})
		return
	}

	associable, err := s.AssociableContentTypes(c.Request.Context(), ws)
	if err != nil {
		logger.Error(err, "Failed to load associable content types", map[string]interface{}{
			"session_id": s.ID,
			"widget_id":  body.WidgetID,
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load content types"})
		return
	}

	if err := w.ChooseWidget(ws, body.WidgetID, associable); err != nil {
		respondWizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":         w.State(),
		"content_types": associable,
	})
}

// ChooseContentType records the content type selection.
// POST /api/builder/sessions/:id/wizard/content-type
func (h *BuilderHandler) ChooseContentType(c *gin.Context) {
	_, w, ok := h.wizardFor(c)
	if !ok {
		return
	}

	var body chooseContentTypeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	for _, ct := range w.AssociableContentTypes() {
		if ct.ID == body.ContentTypeID {
			if err := w.ChooseContentType(ct); err != nil {
				respondWizardError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"state": w.State()})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "content type not offered by this widget"})
}

// SelectItems adds and removes items from the wizard's selection set.
// POST /api/builder/sessions/:id/wizard/items
func (h *BuilderHandler) SelectItems(c *gin.Context) {
	_, w, ok := h.wizardFor(c)
	if !ok {
		return
	}

	var body selectItemsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	for _, id := range body.ItemIDs {
		if err := w.SelectItem(id); err != nil {
			respondWizardError(c, err)
			return
		}
	}
	for _, id := range body.DeselectIDs {
		w.DeselectItem(id)
	}
	c.JSON(http.StatusOK, gin.H{
		"state":    w.State(),
		"item_ids": w.SelectedItems(),
	})
}

// WizardNext validates the current step and advances.
// POST /api/builder/sessions/:id/wizard/next
func (h *BuilderHandler) WizardNext(c *gin.Context) {
	s, w, ok := h.wizardFor(c)
	if !ok {
		return
	}

	if err := w.Next(); err != nil {
		respondWizardError(c, err)
		return
	}

	resp := gin.H{"state": w.State()}
	if w.State() == wizard.StateComplete {
		resp["tree"] = s.Tree()
	}
	c.JSON(http.StatusOK, resp)
}

// WizardBack moves to the previous step, keeping selections.
// POST /api/builder/sessions/:id/wizard/back
func (h *BuilderHandler) WizardBack(c *gin.Context) {
	_, w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	w.Back()
	c.JSON(http.StatusOK, gin.H{"state": w.State()})
}

// WizardCancel discards the flow.
// POST /api/builder/sessions/:id/wizard/cancel
func (h *BuilderHandler) WizardCancel(c *gin.Context) {
	_, w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	w.Cancel()
	c.JSON(http.StatusOK, gin.H{"state": w.State()})
}

// CreateContentType suspends the wizard for the external content-type
// creation flow.
// POST /api/builder/sessions/:id/wizard/content-type/new
func (h *BuilderHandler) CreateContentType(c *gin.Context) {
	_, w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	if err := w.RequestNewContentType(); err != nil {
		respondWizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": w.State()})
}

// CreateItem suspends the wizard for the external item creation flow.
// POST /api/builder/sessions/:id/wizard/items/new
func (h *BuilderHandler) CreateItem(c *gin.Context) {
	_, w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	if err := w.RequestNewItem(); err != nil {
		respondWizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": w.State()})
}

// WizardResume returns from a suspended external flow.
// POST /api/builder/sessions/:id/wizard/resume
func (h *BuilderHandler) WizardResume(c *gin.Context) {
	_, w, ok := h.wizardFor(c)
	if !ok {
		return
	}
	if err := w.Resume(); err != nil {
		respondWizardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": w.State()})
}

func (h *BuilderHandler) wizardFor(c *gin.Context) (*session.Session, *wizard.Wizard, bool) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, nil, false
	}
	w, ok := s.Wizard()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no wizard in progress"})
		return nil, nil, false
	}
	return s, w, true
}

func respondWizardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wizard.ErrSelectionRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, wizard.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
