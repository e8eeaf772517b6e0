package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"page-composer-backend/internal/models"
)

func TestWidgetSchemasDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/widgets/schemas" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"schemas":[{"slug":"hero","name":"Hero","component_type":"widget-hero","fields":[{"slug":"title","label":"Title","type":"text"}],"grapesjs_config":{"draggable":true,"droppable":false,"resizable":true}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	schemas, err := client.WidgetSchemas(context.Background())
	if err != nil {
		t.Fatalf("expected schemas, got error: %v", err)
	}
	if len(schemas) != 1 {
		t.Fatalf("expected 1 schema, got %d", len(schemas))
	}
	if schemas[0].Slug != "hero" {
		t.Fatalf("unexpected slug: %q", schemas[0].Slug)
	}
	if !schemas[0].Builder.Draggable || schemas[0].Builder.Droppable {
		t.Fatalf("capability flags not carried verbatim: %+v", schemas[0].Builder)
	}
}

func TestFailureEnvelopeBecomesBoundaryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"schemas unavailable"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	_, err := client.WidgetSchemas(context.Background())
	if err == nil {
		t.Fatalf("expected error for success:false envelope")
	}
	if !errors.Is(err, ErrBoundary) {
		t.Fatalf("expected ErrBoundary, got %v", err)
	}
}

func TestNonOKStatusBecomesBoundaryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	_, err := client.SectionSchemas(context.Background(), 3)
	if !errors.Is(err, ErrBoundary) {
		t.Fatalf("expected ErrBoundary for 502, got %v", err)
	}
}

func TestWidgetPreviewOmitsDefaultInstanceKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("page_section_widget_id") {
			t.Fatalf("default instance key must not be sent as a query param")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"html":"<div>hero</div>","css":".hero{}","widget":{"name":"Hero","category":"marketing"},"data":{"schema":{"slug":"hero"}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	payload, err := client.WidgetPreview(context.Background(), 7, DefaultInstanceKey)
	if err != nil {
		t.Fatalf("expected preview, got error: %v", err)
	}
	if payload.WidgetName != "Hero" || payload.HTML == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestWidgetPreviewRespectsContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.WidgetPreview(ctx, 7, "41")
	if !errors.Is(err, ErrBoundary) {
		t.Fatalf("expected ErrBoundary on timeout, got %v", err)
	}
}

func TestUpdateComponentSendsPartialPayload(t *testing.T) {
	var received models.UpdateComponentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if err := jsonDecode(r, &received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", 5*time.Second)
	css := "wide"
	err := client.UpdateComponent(context.Background(), 3, models.UpdateComponentRequest{
		ComponentID:   12,
		ComponentType: models.ComponentWidget,
		Settings:      map[string]string{"title": "Hello"},
		CSSClasses:    &css,
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if received.ComponentID != 12 || received.ComponentType != models.ComponentWidget {
		t.Fatalf("unexpected request body: %+v", received)
	}
	if received.Padding != nil {
		t.Fatalf("unset fields must stay nil in the payload")
	}
}

func TestContentItemsCarriesPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "12" {
			t.Fatalf("expected limit=12, got %q", got)
		}
		if got := r.URL.Query().Get("search"); got != "launch" {
			t.Fatalf("expected search=launch, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"items":[{"id":1,"title":"Launch day"}],"pagination":{"current_page":2,"per_page":12,"total":25,"has_more":true}}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)
	items, pagination, err := client.ContentItems(context.Background(), 3, ItemQuery{
		ContentTypeID: 9,
		Page:          2,
		Limit:         12,
		Search:        "launch",
	})
	if err != nil {
		t.Fatalf("expected items, got %v", err)
	}
	if len(items) != 1 || items[0].Title != "Launch day" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if !pagination.HasMore || pagination.CurrentPage != 2 {
		t.Fatalf("unexpected pagination: %+v", pagination)
	}
}

func jsonDecode(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}
