package models

// ComponentKind distinguishes the two updatable component families.
type ComponentKind string

const (
	ComponentSection ComponentKind = "section"
	ComponentWidget  ComponentKind = "widget"
)

// ContentQuery describes the content binding of a widget: which content type
// it pulls from, how many items, and how they are ordered.
type ContentQuery struct {
	ContentTypeID uint   `json:"content_type_id"`
	ItemIDs       []uint `json:"item_ids,omitempty"`
	Limit         int    `json:"limit"`
	SortField     string `json:"sort_field"`
	SortOrder     string `json:"sort_order"`
}

// UpdateComponentRequest is the partial-update payload sent through the
// boundary's update endpoint. Nil pointers mean "leave unchanged".
type UpdateComponentRequest struct {
	ComponentID     uint              `json:"component_id" binding:"required"`
	ComponentType   ComponentKind     `json:"component_type" binding:"required,oneof=section widget"`
	Settings        map[string]string `json:"settings,omitempty"`
	ContentQuery    *ContentQuery     `json:"content_query,omitempty"`
	CSSClasses      *string           `json:"css_classes,omitempty"`
	Padding         *string           `json:"padding,omitempty"`
	Margin          *string           `json:"margin,omitempty"`
	BackgroundColor *string           `json:"background_color,omitempty"`
}

// OpenSessionRequest starts a builder session for one page.
type OpenSessionRequest struct {
	PageID uint `json:"page_id" binding:"required"`
}

// BrowseItemsRequest carries the content browser's paging and search state.
type BrowseItemsRequest struct {
	ContentTypeID uint   `json:"content_type_id" binding:"required"`
	Page          int    `json:"page"`
	Search        string `json:"search" binding:"omitempty,no_html"`
	WidgetID      uint   `json:"widget_id"`
}
