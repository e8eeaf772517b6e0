package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/composer"
	"page-composer-backend/internal/editor"
	"page-composer-backend/internal/metrics"
	"page-composer-backend/internal/models"
	"page-composer-backend/internal/preview"
	"page-composer-backend/internal/registry"
	"page-composer-backend/internal/schema"
	"page-composer-backend/internal/wizard"
	"page-composer-backend/pkg/cache"
	"page-composer-backend/pkg/validator"
)

// Options tunes one session's caches and preview behaviour. Zero values fall
// back to the package defaults.
type Options struct {
	Shared          *cache.Cache
	PreviewTTL      time.Duration
	PreviewTimeout  time.Duration
	PreviewDebounce time.Duration
	// MaxSessions caps the manager's concurrent sessions; zero means
	// unlimited.
	MaxSessions int
}

// Session ties the engine together for one edited page: schema store, widget
// registry, section trees, preview loader, wizard and editor all share its
// event bus. All tree access goes through the session lock.
type Session struct {
	ID     string
	PageID uint

	boundary api.Boundary
	store    *schema.Store
	registry *registry.Registry
	builder  *composer.Builder
	bus      *composer.Bus
	previews *preview.Cache
	loader   *preview.Loader
	editor   *editor.Editor

	mu           sync.RWMutex
	trees        []*models.ComponentNode
	widgetSlugs  map[uint]string
	activeWizard *wizard.Wizard
	ready        bool

	// Instance IDs assigned locally until the boundary persists the widget.
	draftInstanceID atomic.Uint64
}

func New(boundary api.Boundary, pageID uint, opts Options) *Session {
	bus := composer.NewBus()
	store := schema.NewStore(boundary, opts.Shared)
	reg := registry.NewRegistry()
	previews := preview.NewCache(opts.PreviewTTL, opts.Shared)
	loader := preview.NewLoader(boundary, previews, bus, opts.PreviewTimeout, opts.PreviewDebounce)
	loader.SetSanitizer(validator.SanitizeHTML)

	s := &Session{
		ID:          uuid.New().String(),
		PageID:      pageID,
		boundary:    boundary,
		store:       store,
		registry:    reg,
		builder:     composer.NewBuilder(reg, bus),
		bus:         bus,
		previews:    previews,
		loader:      loader,
		editor:      editor.NewEditor(boundary, pageID, bus, previews),
		widgetSlugs: make(map[uint]string),
	}
	s.draftInstanceID.Store(1 << 20)

	bus.Subscribe(func(ev composer.Event) {
		if ev.Kind == composer.EventWidgetBound {
			s.applyBinding(ev)
		}
	})
	return s
}

// Init loads schemas and builds the page's section trees. The order is
// fixed: widget schemas first so the registry can realise widget nodes,
// then section schemas, then the trees.
func (s *Session) Init(ctx context.Context) error {
	widgets := s.store.LoadWidgetSchemas(ctx)
	s.registry.RegisterAll(widgets)
	metrics.SetRegisteredWidgets(s.registry.Size())

	sections, err := s.store.LoadPageComponents(ctx, s.PageID)
	if err != nil {
		return fmt.Errorf("failed to initialise session for page %d: %w", s.PageID, err)
	}

	trees := make([]*models.ComponentNode, 0, len(sections))
	for _, section := range sections {
		trees = append(trees, s.builder.Build(section))
	}

	s.mu.Lock()
	s.trees = trees
	s.widgetSlugs = slugIndex(widgets)
	s.ready = true
	s.mu.Unlock()

	metrics.SessionOpened()
	return nil
}

// Bus exposes the session's event bus for stream subscribers.
func (s *Session) Bus() *composer.Bus {
	return s.bus
}

// Tree returns the page's section trees in section order.
func (s *Session) Tree() []*models.ComponentNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trees := make([]*models.ComponentNode, len(s.trees))
	copy(trees, s.trees)
	return trees
}

// FindNode searches every section tree for the node ID.
func (s *Session) FindNode(nodeID string) (*models.ComponentNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tree := range s.trees {
		if node := tree.Find(nodeID); node != nil {
			return node, true
		}
	}
	return nil, false
}

// EditNode opens the settings form for a node in this session's trees.
func (s *Session) EditNode(nodeID string) (*editor.Form, error) {
	node, ok := s.FindNode(nodeID)
	if !ok {
		return nil, fmt.Errorf("node %s not found in session", nodeID)
	}
	return s.editor.Edit(node)
}

// UpdateComponent is the single funnel for component edits: every save goes
// through the boundary before the tree is touched.
func (s *Session) UpdateComponent(ctx context.Context, form *editor.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.Save(ctx, form)
}

// RefreshSchemas re-pulls schemas and rebuilds the trees. The rebuilt trees
// are only installed if no newer refresh has bumped the store generation in
// the meantime; a superseded rebuild is silently dropped.
func (s *Session) RefreshSchemas(ctx context.Context) error {
	widgets, sections, generation, err := s.store.Refresh(ctx, s.PageID)
	if err != nil {
		return fmt.Errorf("failed to refresh schemas for page %d: %w", s.PageID, err)
	}

	s.registry.RegisterAll(widgets)
	metrics.SetRegisteredWidgets(s.registry.Size())

	trees := make([]*models.ComponentNode, 0, len(sections))
	for _, section := range sections {
		trees = append(trees, s.builder.Build(section))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store.Generation() != generation {
		return nil
	}
	s.trees = trees
	s.widgetSlugs = slugIndex(widgets)
	s.previews.InvalidateAll()
	return nil
}

// StartWizard opens the widget selection wizard for one column. A new start
// displaces any wizard already in flight.
func (s *Session) StartWizard(sectionID, columnID string) *wizard.Wizard {
	w := wizard.New(s.bus, sectionID, columnID)
	s.mu.Lock()
	s.activeWizard = w
	s.mu.Unlock()
	return w
}

// Wizard returns the wizard currently in flight, if any.
func (s *Session) Wizard() (*wizard.Wizard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeWizard, s.activeWizard != nil
}

// WidgetSchemaByID resolves a widget schema through the slug index.
func (s *Session) WidgetSchemaByID(id uint) (models.WidgetSchema, bool) {
	s.mu.RLock()
	slug, ok := s.widgetSlugs[id]
	s.mu.RUnlock()
	if !ok {
		return models.WidgetSchema{}, false
	}
	return s.store.WidgetSchema(slug)
}

// AssociableContentTypes returns the content types the widget can bind to.
// Widgets that do not host content get an empty set, which makes the wizard
// skip the content steps entirely.
func (s *Session) AssociableContentTypes(ctx context.Context, ws models.WidgetSchema) ([]models.ContentType, error) {
	if !ws.SupportsContent {
		return nil, nil
	}
	types, err := s.boundary.ContentTypes(ctx, s.PageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load content types for page %d: %w", s.PageID, err)
	}
	return types, nil
}

// OpenBrowser opens the content browser for one content type.
func (s *Session) OpenBrowser(ctx context.Context, contentTypeID, widgetID uint) (*editor.Browser, error) {
	browser := editor.NewBrowser(s.boundary, s.PageID)
	if err := browser.Open(ctx, contentTypeID, widgetID); err != nil {
		return nil, err
	}
	return browser, nil
}

// Preview serves a widget preview, cache first.
func (s *Session) Preview(ctx context.Context, widgetID uint, instanceKey string) (models.PreviewPayload, error) {
	return s.loader.Load(ctx, widgetID, instanceKey)
}

// ReloadPreview forces a fresh fetch, subject to the loader's debounce.
func (s *Session) ReloadPreview(ctx context.Context, widgetID uint, instanceKey string) (models.PreviewPayload, error) {
	return s.loader.Reload(ctx, widgetID, instanceKey)
}

// Close releases the session's bookkeeping.
func (s *Session) Close() {
	s.mu.Lock()
	wasReady := s.ready
	s.ready = false
	s.mu.Unlock()
	if wasReady {
		metrics.SessionClosed()
	}
}

// applyBinding attaches the wizard's chosen widget to its target column.
// The boundary assigns the persistent instance ID on the next save; until
// then the node carries a draft ID from a high range that cannot collide
// with boundary-issued ones.
func (s *Session) applyBinding(ev composer.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug, ok := s.widgetSlugs[ev.WidgetID]
	if !ok {
		return
	}

	ref := models.WidgetInstanceRef{
		WidgetID:   ev.WidgetID,
		InstanceID: uint(s.draftInstanceID.Add(1)),
		Slug:       slug,
	}
	node, ok := s.builder.WidgetNode(ref)
	if !ok {
		return
	}

	for _, tree := range s.trees {
		if tree.ID != ev.SectionID {
			continue
		}
		if err := s.builder.AttachWidget(tree, ev.ColumnID, node); err == nil {
			return
		}
	}
}

func slugIndex(widgets []models.WidgetSchema) map[uint]string {
	index := make(map[uint]string, len(widgets))
	for _, ws := range widgets {
		index[ws.ID] = ws.Slug
	}
	return index
}
