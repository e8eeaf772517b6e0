package registry

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"page-composer-backend/internal/models"
	"page-composer-backend/pkg/logger"
)

// TraitType identifies the editor control a trait renders as.
type TraitType string

const (
	TraitText     TraitType = "text"
	TraitTextarea TraitType = "textarea"
	TraitNumber   TraitType = "number"
	TraitSelect   TraitType = "select"
	TraitCheckbox TraitType = "checkbox"
	TraitColor    TraitType = "color"
	TraitButton   TraitType = "button"
)

const (
	CommandOpenImagePicker    = "open-image-picker"
	CommandOpenRepeaterEditor = "open-repeater-editor"
)

// Trait is an editor-facing control descriptor derived from a field
// descriptor.
type Trait struct {
	Name    string                `json:"name"`
	Label   string                `json:"label"`
	Type    TraitType             `json:"type"`
	Options []models.SelectOption `json:"options,omitempty"`
	Text    string                `json:"text,omitempty"`
	Command string                `json:"command,omitempty"`
}

// ComponentDefinition is the renderable form of a widget schema: default
// attributes, capability flags and the ordered trait list.
type ComponentDefinition struct {
	Slug       string            `json:"slug"`
	Type       string            `json:"type"`
	Name       string            `json:"name"`
	Category   string            `json:"category"`
	Icon       string            `json:"icon"`
	Attributes map[string]string `json:"attributes"`
	Draggable  bool              `json:"draggable"`
	Droppable  bool              `json:"droppable"`
	Resizable  bool              `json:"resizable"`
	Traits     []Trait           `json:"traits"`
}

// Registry maps widget slugs to component definitions. Like the schema
// store it is constructed per session and injected where needed.
type Registry struct {
	mu         sync.RWMutex
	components map[string]ComponentDefinition
	schemas    map[string]models.WidgetSchema
}

func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]ComponentDefinition),
		schemas:    make(map[string]models.WidgetSchema),
	}
}

// RegisterSchema compiles a widget schema into a component definition and
// stores both under the normalised slug.
func (r *Registry) RegisterSchema(ws models.WidgetSchema) error {
	slug := strings.TrimSpace(strings.ToLower(ws.Slug))
	if slug == "" {
		return fmt.Errorf("widget schema has no slug")
	}

	def := ComponentDefinition{
		Slug:     slug,
		Type:     ws.ComponentType,
		Name:     ws.Name,
		Category: ws.Category,
		Icon:     ws.Icon,
		Attributes: map[string]string{
			"data-component-type": ws.ComponentType,
			"data-widget-slug":    slug,
			"data-widget-name":    ws.Name,
		},
		// Capability flags come verbatim from the schema.
		Draggable: ws.Builder.Draggable,
		Droppable: ws.Builder.Droppable,
		Resizable: ws.Builder.Resizable,
		Traits:    traitsForFields(ws.Fields),
	}
	if ws.ID != 0 {
		def.Attributes["data-widget-id"] = strconv.FormatUint(uint64(ws.ID), 10)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[slug] = def
	r.schemas[slug] = ws
	return nil
}

// RegisterAll registers every schema in order. Individual failures are
// logged and skipped; registration of the rest continues.
func (r *Registry) RegisterAll(schemas []models.WidgetSchema) {
	for _, ws := range schemas {
		if err := r.RegisterSchema(ws); err != nil {
			logger.Warn("Skipping unregistrable widget schema", map[string]interface{}{
				"slug":  ws.Slug,
				"error": err.Error(),
			})
		}
	}
}

// Component returns the compiled definition for a slug. Unknown slugs are
// absent, not an error; callers must check before use.
func (r *Registry) Component(slug string) (ComponentDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.components[strings.TrimSpace(strings.ToLower(slug))]
	return def, ok
}

// Schema returns the source schema for a slug.
func (r *Registry) Schema(slug string) (models.WidgetSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.schemas[strings.TrimSpace(strings.ToLower(slug))]
	return ws, ok
}

// Size returns the number of registered components.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}

func traitsForFields(fields []models.FieldDescriptor) []Trait {
	traits := make([]Trait, 0, len(fields))
	for _, fd := range fields {
		traits = append(traits, traitForField(fd))
	}
	return traits
}

// traitForField maps a field descriptor onto an editor control. The mapping
// is a closed set; unrecognized field types degrade to a plain text input.
func traitForField(fd models.FieldDescriptor) Trait {
	trait := Trait{Name: fd.Slug, Label: fd.Label}

	switch fd.Type {
	case models.FieldText:
		trait.Type = TraitText
	case models.FieldTextarea:
		trait.Type = TraitTextarea
	case models.FieldNumber:
		trait.Type = TraitNumber
	case models.FieldSelect:
		trait.Type = TraitSelect
		trait.Options = fd.Options
	case models.FieldCheckbox:
		trait.Type = TraitCheckbox
	case models.FieldColor:
		trait.Type = TraitColor
	case models.FieldImage:
		trait.Type = TraitButton
		trait.Text = "Select " + fd.Label
		trait.Command = CommandOpenImagePicker
	case models.FieldRepeater:
		trait.Type = TraitButton
		trait.Text = "Configure " + fd.Label
		trait.Command = CommandOpenRepeaterEditor
	default:
		// Unknown field types render as text so the value stays editable.
		trait.Type = TraitText
	}

	return trait
}
