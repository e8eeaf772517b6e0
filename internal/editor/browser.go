package editor

import (
	"context"
	"fmt"
	"strings"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/models"
)

// BrowserPageSize is how many content items a browser page shows.
const BrowserPageSize = 12

// Browser pages through the items of one content type so a single item can
// be picked for a widget. Selection is confirmed explicitly; opening and
// paging never touch the widget being edited.
type Browser struct {
	boundary api.Boundary
	pageID   uint

	contentTypeID uint
	widgetID      uint
	page          int
	search        string

	items      []models.ContentItem
	pagination models.Pagination
	selected   *uint
}

func NewBrowser(boundary api.Boundary, pageID uint) *Browser {
	return &Browser{boundary: boundary, pageID: pageID}
}

// Open loads the first page of the content type's items. widgetID is passed
// through so the boundary can exclude items already bound elsewhere; zero
// means no exclusion.
func (b *Browser) Open(ctx context.Context, contentTypeID, widgetID uint) error {
	b.contentTypeID = contentTypeID
	b.widgetID = widgetID
	b.page = 1
	b.search = ""
	b.selected = nil
	return b.load(ctx)
}

// Search resets to the first page with the given term applied.
func (b *Browser) Search(ctx context.Context, term string) error {
	b.search = strings.TrimSpace(term)
	b.page = 1
	return b.load(ctx)
}

// GoToPage jumps straight to the given page; the boundary pages server-side
// so no intermediate fetches are needed.
func (b *Browser) GoToPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	b.page = page
	return b.load(ctx)
}

// NextPage advances one page if the boundary reported more.
func (b *Browser) NextPage(ctx context.Context) error {
	if !b.pagination.HasMore {
		return nil
	}
	b.page++
	return b.load(ctx)
}

// PrevPage steps back one page; a no-op on the first page.
func (b *Browser) PrevPage(ctx context.Context) error {
	if b.page <= 1 {
		return nil
	}
	b.page--
	return b.load(ctx)
}

// Select marks one item; choosing another displaces the previous choice.
func (b *Browser) Select(itemID uint) error {
	for _, item := range b.items {
		if item.ID == itemID {
			id := itemID
			b.selected = &id
			return nil
		}
	}
	return fmt.Errorf("item %d is not on the current page", itemID)
}

// Deselect clears the current choice.
func (b *Browser) Deselect() {
	b.selected = nil
}

// Items returns the currently loaded page of items.
func (b *Browser) Items() []models.ContentItem {
	return b.items
}

// Pagination returns the boundary-reported paging state.
func (b *Browser) Pagination() models.Pagination {
	return b.pagination
}

// Selected returns the chosen item ID, or false when nothing is selected.
func (b *Browser) Selected() (uint, bool) {
	if b.selected == nil {
		return 0, false
	}
	return *b.selected, true
}

// Confirm hands back the selection for the caller to apply. The browser
// itself never mutates the widget it was opened for.
func (b *Browser) Confirm() ([]uint, error) {
	if b.selected == nil {
		return nil, fmt.Errorf("no item selected")
	}
	return []uint{*b.selected}, nil
}

func (b *Browser) load(ctx context.Context) error {
	items, pagination, err := b.boundary.ContentItems(ctx, b.pageID, api.ItemQuery{
		ContentTypeID: b.contentTypeID,
		Page:          b.page,
		Limit:         BrowserPageSize,
		Search:        b.search,
		WidgetID:      b.widgetID,
	})
	if err != nil {
		return fmt.Errorf("failed to browse content items: %w", err)
	}
	b.items = items
	b.pagination = pagination
	return nil
}
