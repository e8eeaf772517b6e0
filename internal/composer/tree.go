package composer

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"page-composer-backend/internal/models"
	"page-composer-backend/internal/registry"
	"page-composer-backend/internal/schema"
	"page-composer-backend/pkg/logger"
)

const placeholderMessage = "Drop widgets here"

// Builder materializes section schemas into live component trees and owns
// the placeholder bookkeeping for widget mutations. Building never fails:
// per-widget problems degrade to omission plus a warning so the rest of the
// tree survives.
type Builder struct {
	registry *registry.Registry
	bus      *Bus
}

func NewBuilder(reg *registry.Registry, bus *Bus) *Builder {
	return &Builder{registry: reg, bus: bus}
}

// Build constructs the section -> column -> widget tree for one section
// schema. Column order and class values are carried verbatim. A column with
// no realized widgets gets exactly one placeholder node.
func (b *Builder) Build(ss models.SectionSchema) *models.ComponentNode {
	section := &models.ComponentNode{
		Kind: models.NodeSection,
		ID:   sectionNodeID(ss.ID),
		Attributes: map[string]string{
			"data-section-id":   strconv.FormatUint(uint64(ss.ID), 10),
			"data-section-type": ss.Type,
		},
	}

	section.AddChild(headerNode(ss.ID, ss.Name))

	for i, col := range ss.Columns {
		section.AddChild(b.buildColumn(ss.ID, i, col))
	}

	return section
}

// BuildEmpty constructs the tree for a freshly placed section that has no
// persisted schema yet, using the section type's default column layout.
func (b *Builder) BuildEmpty(sectionID uint, name, sectionType string) *models.ComponentNode {
	return b.Build(models.SectionSchema{
		ID:      sectionID,
		Name:    name,
		Type:    sectionType,
		Columns: schema.DefaultColumnLayout(sectionType),
	})
}

func (b *Builder) buildColumn(sectionID uint, index int, col models.ColumnSpec) *models.ComponentNode {
	columnID := col.ID
	if columnID == "" {
		columnID = fmt.Sprintf("col-%d", index+1)
	}

	column := &models.ComponentNode{
		Kind: models.NodeColumn,
		ID:   columnNodeID(sectionID, columnID),
		Attributes: map[string]string{
			"class": col.Class,
		},
	}

	for _, ref := range col.Widgets {
		widget, ok := b.buildWidget(ref)
		if !ok {
			continue
		}
		column.AddChild(widget)
	}

	if len(column.WidgetChildren()) == 0 {
		column.AddChild(newPlaceholder())
	}

	return column
}

// WidgetNode materializes a single widget reference, for mutations outside
// a full build (wizard completion, drops). The same lookup-miss semantics as
// Build apply.
func (b *Builder) WidgetNode(ref models.WidgetInstanceRef) (*models.ComponentNode, bool) {
	return b.buildWidget(ref)
}

func (b *Builder) buildWidget(ref models.WidgetInstanceRef) (*models.ComponentNode, bool) {
	def, ok := b.registry.Component(ref.Slug)
	if !ok {
		logger.Warn("Skipping widget with unregistered slug", map[string]interface{}{
			"slug":      ref.Slug,
			"widget_id": ref.WidgetID,
		})
		return nil, false
	}

	attrs := make(map[string]string, len(def.Attributes)+len(ref.Settings)+1)
	for k, v := range def.Attributes {
		attrs[k] = v
	}
	for k, v := range ref.Settings {
		attrs[k] = v
	}
	attrs["data-widget-id"] = strconv.FormatUint(uint64(ref.WidgetID), 10)
	attrs["data-instance-id"] = strconv.FormatUint(uint64(ref.InstanceID), 10)

	return &models.ComponentNode{
		Kind:       models.NodeWidget,
		ID:         widgetNodeID(ref.InstanceID),
		Attributes: attrs,
	}, true
}

// AttachWidget adds a widget node to a column, drops the column's
// placeholder if present, and announces the mutation on the bus.
func (b *Builder) AttachWidget(root *models.ComponentNode, columnID string, widget *models.ComponentNode) error {
	column := root.Find(columnID)
	if column == nil || column.Kind != models.NodeColumn {
		return fmt.Errorf("column %s not found", columnID)
	}

	// A column must not show "drop widgets here" once it has real content.
	removePlaceholders(column)
	column.AddChild(widget)

	b.bus.Publish(Event{
		Kind:      EventComponentAdded,
		SectionID: root.ID,
		ColumnID:  columnID,
		NodeID:    widget.ID,
	})
	return nil
}

// DetachWidget removes a widget node from a column and restores a single
// placeholder when the column empties. Removing from an already-empty column
// is a no-op, so repeated calls stay idempotent.
func (b *Builder) DetachWidget(root *models.ComponentNode, columnID, widgetNodeID string) error {
	column := root.Find(columnID)
	if column == nil || column.Kind != models.NodeColumn {
		return fmt.Errorf("column %s not found", columnID)
	}

	if !column.RemoveChild(widgetNodeID) {
		return nil
	}

	if len(column.WidgetChildren()) == 0 && !column.HasPlaceholder() {
		column.AddChild(newPlaceholder())
	}

	b.bus.Publish(Event{
		Kind:      EventComponentRemoved,
		SectionID: root.ID,
		ColumnID:  columnID,
		NodeID:    widgetNodeID,
	})
	return nil
}

func removePlaceholders(column *models.ComponentNode) {
	kept := column.Children[:0]
	for _, child := range column.Children {
		if !child.Placeholder {
			kept = append(kept, child)
		}
	}
	column.Children = kept
}

func headerNode(sectionID uint, name string) *models.ComponentNode {
	return &models.ComponentNode{
		Kind: models.NodeHeader,
		ID:   fmt.Sprintf("section-%d-header", sectionID),
		Attributes: map[string]string{
			"title":   name,
			"actions": "configure,delete",
		},
	}
}

func newPlaceholder() *models.ComponentNode {
	return &models.ComponentNode{
		Kind:        models.NodePlaceholder,
		ID:          "placeholder-" + uuid.New().String(),
		Placeholder: true,
		Attributes: map[string]string{
			"message": placeholderMessage,
		},
	}
}

func sectionNodeID(id uint) string {
	return fmt.Sprintf("section-%d", id)
}

func columnNodeID(sectionID uint, columnID string) string {
	return fmt.Sprintf("section-%d-%s", sectionID, columnID)
}

func widgetNodeID(instanceID uint) string {
	return fmt.Sprintf("widget-%d", instanceID)
}
