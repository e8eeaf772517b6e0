package schema

import "page-composer-backend/internal/models"

// DefaultWidgetSchemas returns the built-in layout widgets used when the
// boundary cannot deliver schemas. They keep the builder operational with
// degraded functionality.
func DefaultWidgetSchemas() []models.WidgetSchema {
	return []models.WidgetSchema{
		{
			Slug:          "full-width",
			Name:          "Full Width",
			Category:      "layout",
			Icon:          "layout",
			ComponentType: "widget-full-width",
			Fields: []models.FieldDescriptor{
				{Slug: "title", Label: "Title", Type: models.FieldText},
				{Slug: "body", Label: "Body", Type: models.FieldTextarea},
			},
			Builder: models.BuilderCapabilities{Draggable: true, Droppable: true},
		},
		{
			Slug:          "two-column",
			Name:          "Two Column",
			Category:      "layout",
			Icon:          "columns",
			ComponentType: "widget-two-column",
			Fields: []models.FieldDescriptor{
				{Slug: "left", Label: "Left Column", Type: models.FieldTextarea},
				{Slug: "right", Label: "Right Column", Type: models.FieldTextarea},
			},
			Builder: models.BuilderCapabilities{Draggable: true, Droppable: true},
		},
		{
			Slug:          "three-column",
			Name:          "Three Column",
			Category:      "layout",
			Icon:          "grid",
			ComponentType: "widget-three-column",
			Fields: []models.FieldDescriptor{
				{Slug: "first", Label: "First Column", Type: models.FieldTextarea},
				{Slug: "second", Label: "Second Column", Type: models.FieldTextarea},
				{Slug: "third", Label: "Third Column", Type: models.FieldTextarea},
			},
			Builder: models.BuilderCapabilities{Draggable: true, Droppable: true},
		},
	}
}

// DefaultColumnLayout returns the column specs a fresh section of the given
// type starts with before a schema has been persisted for it.
func DefaultColumnLayout(sectionType string) []models.ColumnSpec {
	switch sectionType {
	case "two-column":
		return []models.ColumnSpec{
			{ID: "col-1", Class: "col-6"},
			{ID: "col-2", Class: "col-6"},
		}
	case "three-column":
		return []models.ColumnSpec{
			{ID: "col-1", Class: "col-4"},
			{ID: "col-2", Class: "col-4"},
			{ID: "col-3", Class: "col-4"},
		}
	default:
		return []models.ColumnSpec{
			{ID: "col-1", Class: "col-12"},
		}
	}
}
