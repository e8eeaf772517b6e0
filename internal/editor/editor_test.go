package editor

import (
	"context"
	"fmt"
	"testing"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/composer"
	"page-composer-backend/internal/models"
	"page-composer-backend/internal/preview"
)

type editorBoundary struct {
	updates    []models.UpdateComponentRequest
	updateErr  error
	items      []models.ContentItem
	pagination models.Pagination
	queries    []api.ItemQuery
	itemsErr   error
}

func (b *editorBoundary) WidgetSchemas(ctx context.Context) ([]models.WidgetSchema, error) {
	return nil, nil
}

func (b *editorBoundary) SectionSchemas(ctx context.Context, pageID uint) ([]models.SectionSchema, error) {
	return nil, nil
}

func (b *editorBoundary) PageComponents(ctx context.Context, pageID uint) ([]models.SectionSchema, error) {
	return nil, nil
}

func (b *editorBoundary) WidgetPreview(ctx context.Context, widgetID uint, instanceKey string) (*models.PreviewPayload, error) {
	return nil, nil
}

func (b *editorBoundary) UpdateComponent(ctx context.Context, pageID uint, req models.UpdateComponentRequest) error {
	b.updates = append(b.updates, req)
	return b.updateErr
}

func (b *editorBoundary) ContentTypes(ctx context.Context, pageID uint) ([]models.ContentType, error) {
	return nil, nil
}

func (b *editorBoundary) ContentItems(ctx context.Context, pageID uint, q api.ItemQuery) ([]models.ContentItem, models.Pagination, error) {
	b.queries = append(b.queries, q)
	if b.itemsErr != nil {
		return nil, models.Pagination{}, b.itemsErr
	}
	return b.items, b.pagination, nil
}

func widgetNode() *models.ComponentNode {
	return &models.ComponentNode{
		ID:   "widget-42",
		Kind: models.NodeWidget,
		Attributes: map[string]string{
			"data-widget-id":   "7",
			"data-instance-id": "42",
			"data-widget-slug": "hero",
			"class":            "widget widget-hero",
			"title":            "Welcome",
			"subtitle":         "Hello there",
		},
	}
}

func TestEditBuildsSortedFieldsFromSettings(t *testing.T) {
	editor := NewEditor(&editorBoundary{}, 1, composer.NewBus(), nil)

	form, err := editor.Edit(widgetNode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Kind() != models.ComponentWidget {
		t.Fatalf("expected widget form, got %s", form.Kind())
	}
	if len(form.Fields) != 2 {
		t.Fatalf("expected 2 settings fields, got %d", len(form.Fields))
	}
	if form.Fields[0].Name != "subtitle" || form.Fields[1].Name != "title" {
		t.Fatalf("expected sorted fields [subtitle title], got [%s %s]", form.Fields[0].Name, form.Fields[1].Name)
	}
	if form.Content == nil {
		t.Fatal("expected content source sub-form on widget")
	}
	if form.Content.SortField != "created_at" || form.Content.SortOrder != "desc" {
		t.Fatalf("expected default sort, got %s %s", form.Content.SortField, form.Content.SortOrder)
	}
}

func TestEditRejectsNonEditableNodes(t *testing.T) {
	editor := NewEditor(&editorBoundary{}, 1, composer.NewBus(), nil)

	node := &models.ComponentNode{ID: "placeholder-x", Kind: models.NodePlaceholder}
	if _, err := editor.Edit(node); err == nil {
		t.Fatal("expected error for placeholder node")
	}
	if _, err := editor.Edit(nil); err == nil {
		t.Fatal("expected error for nil node")
	}
}

func TestSetContentSourceNormalisesSortValues(t *testing.T) {
	form := &Form{}
	form.SetContentSource(3, 0, "popularity", "sideways")

	if form.Content.SortField != "created_at" {
		t.Fatalf("expected fallback sort field, got %s", form.Content.SortField)
	}
	if form.Content.SortOrder != "desc" {
		t.Fatalf("expected fallback sort order, got %s", form.Content.SortOrder)
	}
	if form.Content.ItemLimit != DefaultItemLimit {
		t.Fatalf("expected default limit, got %d", form.Content.ItemLimit)
	}

	form.SetContentSource(3, 6, "Title", "ASC")
	if form.Content.SortField != "title" || form.Content.SortOrder != "asc" {
		t.Fatalf("expected normalised title/asc, got %s/%s", form.Content.SortField, form.Content.SortOrder)
	}
}

func TestSavePatchesNodeAndPublishesUpdate(t *testing.T) {
	boundary := &editorBoundary{}
	bus := composer.NewBus()
	var events []composer.Event
	bus.Subscribe(func(ev composer.Event) { events = append(events, ev) })

	previews := preview.NewCache(preview.DefaultTTL, nil)
	previews.Put(7, "42", models.PreviewPayload{HTML: "<div>old</div>"})

	node := widgetNode()
	editor := NewEditor(boundary, 9, bus, previews)
	form, err := editor.Edit(node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	form.SetField("title", "Changed")
	form.SetContentSource(3, 5, "title", "asc")

	if err := editor.Save(context.Background(), form); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	if len(boundary.updates) != 1 {
		t.Fatalf("expected 1 boundary update, got %d", len(boundary.updates))
	}
	update := boundary.updates[0]
	if update.ComponentID != 42 || update.ComponentType != models.ComponentWidget {
		t.Fatalf("unexpected update target: %+v", update)
	}
	if update.Settings["title"] != "Changed" {
		t.Fatalf("expected staged title in payload, got %q", update.Settings["title"])
	}
	if update.ContentQuery == nil || update.ContentQuery.ContentTypeID != 3 || update.ContentQuery.Limit != 5 {
		t.Fatalf("unexpected content query: %+v", update.ContentQuery)
	}

	if node.Attributes["title"] != "Changed" {
		t.Fatalf("expected node patched in place, got %q", node.Attributes["title"])
	}
	if _, ok := previews.Get(7, "42"); ok {
		t.Fatal("expected saved widget's preview key invalidated")
	}

	if len(events) != 1 || events[0].Kind != composer.EventComponentUpdated {
		t.Fatalf("expected one component_updated event, got %+v", events)
	}
	if events[0].NodeID != "widget-42" {
		t.Fatalf("expected event for widget-42, got %s", events[0].NodeID)
	}
}

func TestSaveFailureKeepsDraftAndNode(t *testing.T) {
	boundary := &editorBoundary{updateErr: fmt.Errorf("boundary rejected update")}
	bus := composer.NewBus()
	var events []composer.Event
	bus.Subscribe(func(ev composer.Event) { events = append(events, ev) })

	node := widgetNode()
	editor := NewEditor(boundary, 9, bus, nil)
	form, _ := editor.Edit(node)
	form.SetField("title", "Changed")

	if err := editor.Save(context.Background(), form); err == nil {
		t.Fatal("expected save error")
	}
	if node.Attributes["title"] != "Welcome" {
		t.Fatalf("expected node untouched on failure, got %q", node.Attributes["title"])
	}
	if form.LastError() == "" {
		t.Fatal("expected inline error recorded on form")
	}
	for _, field := range form.Fields {
		if field.Name == "title" && field.Value != "Changed" {
			t.Fatalf("expected draft preserved, got %q", field.Value)
		}
	}
	if len(events) != 0 {
		t.Fatalf("expected no events on failed save, got %d", len(events))
	}
}

func TestSaveOmitsContentQueryForSections(t *testing.T) {
	boundary := &editorBoundary{}
	node := &models.ComponentNode{
		ID:   "section-5",
		Kind: models.NodeSection,
		Attributes: map[string]string{
			"data-section-id": "5",
			"heading":         "Features",
		},
	}

	editor := NewEditor(boundary, 9, composer.NewBus(), nil)
	form, err := editor.Edit(node)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if form.Content != nil {
		t.Fatal("sections must not carry a content source sub-form")
	}

	if err := editor.Save(context.Background(), form); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if boundary.updates[0].ContentQuery != nil {
		t.Fatal("expected no content query on section update")
	}
	if boundary.updates[0].ComponentType != models.ComponentSection {
		t.Fatalf("expected section update, got %s", boundary.updates[0].ComponentType)
	}
}
