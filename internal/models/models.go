package models

// FieldType identifies the editor control family a widget field belongs to.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldColor    FieldType = "color"
	FieldImage    FieldType = "image"
	FieldRepeater FieldType = "repeater"
)

// SelectOption is a single choice for select fields.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldDescriptor describes one editable field of a widget schema.
type FieldDescriptor struct {
	Slug    string         `json:"slug"`
	Label   string         `json:"label"`
	Type    FieldType      `json:"type"`
	Options []SelectOption `json:"options,omitempty"`
}

// BuilderCapabilities carries the drag/drop/resize flags the tree builder
// copies verbatim onto component definitions.
type BuilderCapabilities struct {
	Draggable bool `json:"draggable"`
	Droppable bool `json:"droppable"`
	Resizable bool `json:"resizable"`
}

// WidgetSchema is the declarative description of a widget type, fetched from
// the boundary API and immutable once stored.
type WidgetSchema struct {
	ID            uint                `json:"id"`
	Slug          string              `json:"slug"`
	Name          string              `json:"name"`
	Category      string              `json:"category"`
	Icon          string              `json:"icon"`
	ComponentType string              `json:"component_type"`
	Fields        []FieldDescriptor   `json:"fields"`
	Builder       BuilderCapabilities `json:"grapesjs_config"`
	// SupportsContent marks widgets that bind externally managed content;
	// only these get the wizard's content type and item steps.
	SupportsContent bool `json:"supports_content"`
}

// WidgetInstanceRef points at a concrete widget placement within a column.
type WidgetInstanceRef struct {
	WidgetID   uint              `json:"widget_id"`
	InstanceID uint              `json:"page_section_widget_id"`
	Slug       string            `json:"slug"`
	Settings   map[string]string `json:"settings,omitempty"`
}

// ColumnSpec describes one column of a section schema. Class is carried
// verbatim; the engine never recomputes layout math.
type ColumnSpec struct {
	ID      string              `json:"id"`
	Class   string              `json:"class"`
	Widgets []WidgetInstanceRef `json:"widgets"`
}

// SectionMeta holds aggregate information about a section schema.
type SectionMeta struct {
	WidgetCount int `json:"widget_count"`
}

// SectionSchema describes a section and its column layout, loaded per page.
type SectionSchema struct {
	ID      uint         `json:"id"`
	Name    string       `json:"name"`
	Type    string       `json:"type"`
	Columns []ColumnSpec `json:"columns"`
	Meta    SectionMeta  `json:"meta"`
}

// NodeKind identifies the structural role of a component node.
type NodeKind string

const (
	NodeSection     NodeKind = "section"
	NodeColumn      NodeKind = "column"
	NodeWidget      NodeKind = "widget"
	NodeHeader      NodeKind = "header"
	NodePlaceholder NodeKind = "placeholder"
)

// ComponentNode is one node of the live section/column/widget tree.
type ComponentNode struct {
	Kind        NodeKind          `json:"kind"`
	ID          string            `json:"id"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Children    []*ComponentNode  `json:"children,omitempty"`
	Placeholder bool              `json:"placeholder,omitempty"`
}

// AddChild appends a child node and returns it.
func (n *ComponentNode) AddChild(child *ComponentNode) *ComponentNode {
	n.Children = append(n.Children, child)
	return child
}

// RemoveChild removes the first direct child with the given id and reports
// whether a node was removed.
func (n *ComponentNode) RemoveChild(id string) bool {
	for i, child := range n.Children {
		if child.ID == id {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Find walks the subtree looking for a node with the given id.
func (n *ComponentNode) Find(id string) *ComponentNode {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// HasPlaceholder reports whether any direct child is a placeholder node.
func (n *ComponentNode) HasPlaceholder() bool {
	for _, child := range n.Children {
		if child.Placeholder {
			return true
		}
	}
	return false
}

// WidgetChildren returns the direct children of kind widget.
func (n *ComponentNode) WidgetChildren() []*ComponentNode {
	var widgets []*ComponentNode
	for _, child := range n.Children {
		if child.Kind == NodeWidget {
			widgets = append(widgets, child)
		}
	}
	return widgets
}

// PreviewPayload is the rendered markup for a widget preview plus the schema
// excerpt the editor needs.
type PreviewPayload struct {
	HTML           string                 `json:"html"`
	CSS            string                 `json:"css"`
	WidgetName     string                 `json:"widget_name"`
	WidgetCategory string                 `json:"widget_category"`
	Schema         map[string]interface{} `json:"schema,omitempty"`
}

// ContentType is an externally managed family of content records widgets can
// bind to.
type ContentType struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	ContentCount int    `json:"content_count"`
}

// ContentItem is a single record of a content type.
type ContentItem struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt,omitempty"`
	Image   string `json:"image,omitempty"`
}

// Pagination mirrors the boundary's pagination envelope.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	Total       int  `json:"total"`
	HasMore     bool `json:"has_more"`
}
