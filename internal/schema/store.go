package schema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/metrics"
	"page-composer-backend/internal/models"
	"page-composer-backend/pkg/cache"
	"page-composer-backend/pkg/logger"
)

// Store holds the widget and section schemas a builder session works from.
// It is constructed per session and injected into the registry and tree
// builder; there are no package-level singletons.
//
// Refresh replaces the stored schemas wholesale. Lookups issued mid-refresh
// can return "not found"; callers guard with the generation counter.
type Store struct {
	boundary api.Boundary
	shared   *cache.Cache

	mu         sync.RWMutex
	widgets    map[string]models.WidgetSchema
	sections   map[uint]models.SectionSchema
	generation uint64
}

func NewStore(boundary api.Boundary, shared *cache.Cache) *Store {
	return &Store{
		boundary: boundary,
		shared:   shared,
		widgets:  make(map[string]models.WidgetSchema),
		sections: make(map[uint]models.SectionSchema),
	}
}

// LoadWidgetSchemas fetches widget schemas from the boundary. It fails soft:
// on any fetch failure it falls back to the shared cache and then to the
// built-in default set, so the builder stays usable with degraded
// functionality. The returned slice preserves fetch order.
func (s *Store) LoadWidgetSchemas(ctx context.Context) []models.WidgetSchema {
	schemas, err := s.boundary.WidgetSchemas(ctx)
	if err != nil {
		logger.Warn("Widget schema load failed, trying shared cache", map[string]interface{}{
			"error": err.Error(),
		})

		var cached []models.WidgetSchema
		if s.shared != nil && s.shared.GetCachedWidgetSchemas(&cached) == nil && len(cached) > 0 {
			schemas = cached
			metrics.SchemaLoad("cache")
		} else {
			logger.Warn("Falling back to built-in widget schemas", nil)
			schemas = DefaultWidgetSchemas()
			metrics.SchemaLoad("default")
		}
	} else {
		metrics.SchemaLoad("boundary")
		if s.shared != nil {
			if cacheErr := s.shared.CacheWidgetSchemas(schemas); cacheErr != nil {
				logger.Debug("Failed to share widget schemas", map[string]interface{}{
					"error": cacheErr.Error(),
				})
			}
		}
	}

	s.mu.Lock()
	for _, ws := range schemas {
		s.widgets[normaliseSlug(ws.Slug)] = ws
	}
	s.mu.Unlock()

	return schemas
}

// LoadSectionSchemas fetches the section schemas of a page. Unlike widget
// schemas there is no fallback: a section cannot be synthesized without its
// column and widget data, so failures surface to the caller.
func (s *Store) LoadSectionSchemas(ctx context.Context, pageID uint) ([]models.SectionSchema, error) {
	schemas, err := s.boundary.SectionSchemas(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("load section schemas for page %d: %w", pageID, err)
	}
	metrics.SchemaLoad("boundary")

	s.mu.Lock()
	for _, ss := range schemas {
		s.sections[ss.ID] = ss
	}
	s.mu.Unlock()

	return schemas, nil
}

// LoadPageComponents fetches the page's sections with their widget
// instances embedded, which is the richer initial load. When the components
// endpoint is unavailable it falls back to the bare section schemas; only a
// failure of both surfaces to the caller.
func (s *Store) LoadPageComponents(ctx context.Context, pageID uint) ([]models.SectionSchema, error) {
	schemas, err := s.boundary.PageComponents(ctx, pageID)
	if err != nil {
		logger.Warn("Page components load failed, falling back to section schemas", map[string]interface{}{
			"page_id": pageID,
			"error":   err.Error(),
		})
		return s.LoadSectionSchemas(ctx, pageID)
	}
	metrics.SchemaLoad("boundary")

	s.mu.Lock()
	for _, ss := range schemas {
		s.sections[ss.ID] = ss
	}
	s.mu.Unlock()

	return schemas, nil
}

// WidgetSchema looks up a stored widget schema by slug.
func (s *Store) WidgetSchema(slug string) (models.WidgetSchema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.widgets[normaliseSlug(slug)]
	return ws, ok
}

// SectionSchema looks up a stored section schema by id.
func (s *Store) SectionSchema(id uint) (models.SectionSchema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.sections[id]
	return ss, ok
}

// Refresh clears all stored schemas and refetches them, returning the fresh
// sets and the generation this refresh ran under. The counter is bumped
// before the clear so in-flight tree builds started under the previous
// generation can be discarded instead of installed; callers compare the
// returned generation against Generation before installing a rebuilt tree.
func (s *Store) Refresh(ctx context.Context, pageID uint) ([]models.WidgetSchema, []models.SectionSchema, uint64, error) {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.widgets = make(map[string]models.WidgetSchema)
	s.sections = make(map[uint]models.SectionSchema)
	s.mu.Unlock()

	if s.shared != nil {
		if err := s.shared.InvalidateWidgetSchemas(); err != nil {
			logger.Debug("Failed to invalidate shared widget schemas", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	widgets := s.LoadWidgetSchemas(ctx)
	sections, err := s.LoadPageComponents(ctx, pageID)
	if err != nil {
		return nil, nil, generation, err
	}
	return widgets, sections, generation, nil
}

// Generation returns the current refresh generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func normaliseSlug(slug string) string {
	return strings.TrimSpace(strings.ToLower(slug))
}
