package editor

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/composer"
	"page-composer-backend/internal/metrics"
	"page-composer-backend/internal/models"
	"page-composer-backend/internal/preview"
)

const (
	DefaultSortField = "created_at"
	DefaultSortOrder = "desc"
	DefaultItemLimit = 10
)

// Field is one editable setting of a component, rendered as a text input.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ContentSource is the widget-only sub-form binding a widget to externally
// managed content.
type ContentSource struct {
	ContentTypeID uint   `json:"content_type_id"`
	ItemLimit     int    `json:"item_limit"`
	SortField     string `json:"sort_field"`
	SortOrder     string `json:"sort_order"`
}

// Form is the settings form derived from a selected component node. Draft
// edits live here until Save pushes them through the update boundary; a
// failed save leaves both the form and the node untouched apart from the
// inline error.
type Form struct {
	node        *models.ComponentNode
	kind        models.ComponentKind
	componentID uint
	widgetID    uint
	instanceKey string

	Fields  []Field
	Content *ContentSource

	lastError string
}

// Kind returns whether the form edits a section or a widget.
func (f *Form) Kind() models.ComponentKind {
	return f.kind
}

// SetField stages a new value for a settings field.
func (f *Form) SetField(name, value string) {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			f.Fields[i].Value = value
			return
		}
	}
	f.Fields = append(f.Fields, Field{Name: name, Value: value})
}

// SetContentSource stages the widget's content binding. Out-of-range sort
// values are normalised to the defaults rather than rejected.
func (f *Form) SetContentSource(contentTypeID uint, limit int, sortField, sortOrder string) {
	if f.Content == nil {
		f.Content = &ContentSource{}
	}
	if limit <= 0 {
		limit = DefaultItemLimit
	}
	f.Content.ContentTypeID = contentTypeID
	f.Content.ItemLimit = limit
	f.Content.SortField = normaliseSortField(sortField)
	f.Content.SortOrder = normaliseSortOrder(sortOrder)
}

// LastError returns the inline error of the most recent failed save.
func (f *Form) LastError() string {
	return f.lastError
}

// Editor opens settings forms for component nodes and funnels saves through
// the update boundary.
type Editor struct {
	boundary api.Boundary
	pageID   uint
	bus      *composer.Bus
	previews *preview.Cache
}

func NewEditor(boundary api.Boundary, pageID uint, bus *composer.Bus, previews *preview.Cache) *Editor {
	return &Editor{
		boundary: boundary,
		pageID:   pageID,
		bus:      bus,
		previews: previews,
	}
}

// Edit derives a settings form from the node's attributes: one text input
// per non-structural key, plus the content source sub-form for widgets.
func (e *Editor) Edit(node *models.ComponentNode) (*Form, error) {
	if node == nil {
		return nil, fmt.Errorf("no node selected")
	}

	form := &Form{node: node}

	switch node.Kind {
	case models.NodeSection:
		form.kind = models.ComponentSection
		form.componentID = parseUintAttr(node.Attributes, "data-section-id")
	case models.NodeWidget:
		form.kind = models.ComponentWidget
		form.componentID = parseUintAttr(node.Attributes, "data-instance-id")
		form.widgetID = parseUintAttr(node.Attributes, "data-widget-id")
		form.instanceKey = node.Attributes["data-instance-id"]
		form.Content = &ContentSource{
			ItemLimit: DefaultItemLimit,
			SortField: DefaultSortField,
			SortOrder: DefaultSortOrder,
		}
	default:
		return nil, fmt.Errorf("node %s is not editable", node.ID)
	}

	for name, value := range node.Attributes {
		if isStructuralAttr(name) {
			continue
		}
		form.Fields = append(form.Fields, Field{Name: name, Value: value})
	}
	sort.Slice(form.Fields, func(i, j int) bool { return form.Fields[i].Name < form.Fields[j].Name })

	return form, nil
}

// Save pushes the form as a partial update through the boundary. On success
// the node is patched in place and only its preview key is invalidated; on
// failure the draft stays editable and the error is recorded inline.
func (e *Editor) Save(ctx context.Context, form *Form) error {
	if form == nil || form.node == nil {
		return fmt.Errorf("no form to save")
	}

	settings := make(map[string]string, len(form.Fields))
	for _, field := range form.Fields {
		settings[field.Name] = field.Value
	}

	req := models.UpdateComponentRequest{
		ComponentID:   form.componentID,
		ComponentType: form.kind,
		Settings:      settings,
	}
	if form.kind == models.ComponentWidget && form.Content != nil && form.Content.ContentTypeID != 0 {
		req.ContentQuery = &models.ContentQuery{
			ContentTypeID: form.Content.ContentTypeID,
			Limit:         form.Content.ItemLimit,
			SortField:     form.Content.SortField,
			SortOrder:     form.Content.SortOrder,
		}
	}

	if err := e.boundary.UpdateComponent(ctx, e.pageID, req); err != nil {
		metrics.ComponentUpdate("error")
		form.lastError = err.Error()
		return err
	}
	metrics.ComponentUpdate("ok")
	form.lastError = ""

	// Patch the node in place; no full rebuild.
	for name, value := range settings {
		form.node.Attributes[name] = value
	}

	if form.kind == models.ComponentWidget && e.previews != nil {
		e.previews.Invalidate(form.widgetID, form.instanceKey)
	}

	e.bus.Publish(composer.Event{
		Kind:        composer.EventComponentUpdated,
		NodeID:      form.node.ID,
		WidgetID:    form.widgetID,
		InstanceKey: form.instanceKey,
	})
	return nil
}

func isStructuralAttr(name string) bool {
	return strings.HasPrefix(name, "data-") || name == "class" || name == "actions" || name == "message"
}

func parseUintAttr(attrs map[string]string, key string) uint {
	value, err := strconv.ParseUint(attrs[key], 10, 32)
	if err != nil {
		return 0
	}
	return uint(value)
}

func normaliseSortField(value string) string {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "created_at", "updated_at", "title":
		return strings.TrimSpace(strings.ToLower(value))
	default:
		return DefaultSortField
	}
}

func normaliseSortOrder(value string) string {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "asc", "desc":
		return strings.TrimSpace(strings.ToLower(value))
	default:
		return DefaultSortOrder
	}
}
