package wizard

import (
	"errors"
	"fmt"
	"sort"

	"page-composer-backend/internal/composer"
	"page-composer-backend/internal/models"
)

// State names the steps of the widget selection flow.
type State string

const (
	StateSelectWidget      State = "select_widget"
	StateSelectContentType State = "select_content_type"
	StateSelectItems       State = "select_content_items"
	StateComplete          State = "complete"
	StateCancelled         State = "cancelled"
	// StateSuspended is entered when the user branches into an external
	// creation flow (new content type, new item); Resume returns to the
	// step that was suspended.
	StateSuspended State = "suspended"
)

var (
	// ErrSelectionRequired blocks Next when the current step has no valid
	// selection. This is a UI precondition, not a runtime failure.
	ErrSelectionRequired = errors.New("selection required before advancing")

	ErrInvalidTransition = errors.New("transition not allowed in current state")
)

// Wizard is the three-step widget -> content type -> content items flow for
// one drop target. Completing it emits exactly one widget_bound event.
type Wizard struct {
	bus       *composer.Bus
	sectionID string
	columnID  string

	state  State
	resume State

	widget       *models.WidgetSchema
	widgetID     uint
	contentTypes []models.ContentType
	contentType  *models.ContentType
	items        map[uint]struct{}
	completed    bool
}

func New(bus *composer.Bus, sectionID, columnID string) *Wizard {
	return &Wizard{
		bus:       bus,
		sectionID: sectionID,
		columnID:  columnID,
		state:     StateSelectWidget,
		items:     make(map[uint]struct{}),
	}
}

func (w *Wizard) State() State {
	return w.state
}

// ChooseWidget records the widget selection together with the content types
// it can bind to.
func (w *Wizard) ChooseWidget(ws models.WidgetSchema, widgetID uint, associable []models.ContentType) error {
	if w.state != StateSelectWidget {
		return fmt.Errorf("%w: choose widget in %s", ErrInvalidTransition, w.state)
	}
	w.widget = &ws
	w.widgetID = widgetID
	w.contentTypes = associable
	return nil
}

// AssociableContentTypes returns the content types offered by the chosen
// widget. Empty until ChooseWidget has been called.
func (w *Wizard) AssociableContentTypes() []models.ContentType {
	return w.contentTypes
}

// ChooseContentType records the content type selection.
func (w *Wizard) ChooseContentType(ct models.ContentType) error {
	if w.state != StateSelectContentType {
		return fmt.Errorf("%w: choose content type in %s", ErrInvalidTransition, w.state)
	}
	w.contentType = &ct
	return nil
}

// SelectItem adds an item to the selection set.
func (w *Wizard) SelectItem(id uint) error {
	if w.state != StateSelectItems {
		return fmt.Errorf("%w: select item in %s", ErrInvalidTransition, w.state)
	}
	w.items[id] = struct{}{}
	return nil
}

// DeselectItem removes an item from the selection set.
func (w *Wizard) DeselectItem(id uint) {
	delete(w.items, id)
}

// Next re-validates the current step's selection and advances. A widget
// without associable content types skips the remaining steps and completes
// with an empty item set.
func (w *Wizard) Next() error {
	switch w.state {
	case StateSelectWidget:
		if w.widget == nil {
			return ErrSelectionRequired
		}
		if len(w.contentTypes) == 0 {
			w.complete()
			return nil
		}
		w.state = StateSelectContentType
		return nil

	case StateSelectContentType:
		if w.contentType == nil {
			return ErrSelectionRequired
		}
		w.state = StateSelectItems
		return nil

	case StateSelectItems:
		if len(w.items) == 0 {
			return ErrSelectionRequired
		}
		w.complete()
		return nil

	default:
		return fmt.Errorf("%w: next in %s", ErrInvalidTransition, w.state)
	}
}

// Back moves to the previous step. Selections of the step being left are
// preserved so moving forward again needs no re-choosing. Back on the first
// step is a no-op.
func (w *Wizard) Back() {
	switch w.state {
	case StateSelectContentType:
		w.state = StateSelectWidget
	case StateSelectItems:
		w.state = StateSelectContentType
	}
}

// Cancel discards all selections and terminates the flow.
func (w *Wizard) Cancel() {
	w.widget = nil
	w.widgetID = 0
	w.contentTypes = nil
	w.contentType = nil
	w.items = make(map[uint]struct{})
	w.state = StateCancelled
}

// RequestNewContentType suspends the wizard for the external content-type
// creation flow. Resume returns to the same step.
func (w *Wizard) RequestNewContentType() error {
	if w.state != StateSelectContentType {
		return fmt.Errorf("%w: create content type in %s", ErrInvalidTransition, w.state)
	}
	w.resume = w.state
	w.state = StateSuspended
	return nil
}

// RequestNewItem suspends the wizard for the external item creation flow.
func (w *Wizard) RequestNewItem() error {
	if w.state != StateSelectItems {
		return fmt.Errorf("%w: create item in %s", ErrInvalidTransition, w.state)
	}
	w.resume = w.state
	w.state = StateSuspended
	return nil
}

// Resume returns from a suspended external flow to the suspended step.
func (w *Wizard) Resume() error {
	if w.state != StateSuspended {
		return fmt.Errorf("%w: resume in %s", ErrInvalidTransition, w.state)
	}
	w.state = w.resume
	return nil
}

// SelectedContentType returns the chosen content type, if any.
func (w *Wizard) SelectedContentType() (models.ContentType, bool) {
	if w.contentType == nil {
		return models.ContentType{}, false
	}
	return *w.contentType, true
}

// SelectedItems returns the chosen item ids in ascending order.
func (w *Wizard) SelectedItems() []uint {
	ids := make([]uint, 0, len(w.items))
	for id := range w.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (w *Wizard) complete() {
	w.state = StateComplete
	if w.completed {
		return
	}
	w.completed = true

	event := composer.Event{
		Kind:      composer.EventWidgetBound,
		SectionID: w.sectionID,
		ColumnID:  w.columnID,
		WidgetID:  w.widgetID,
		ItemIDs:   w.SelectedItems(),
	}
	if w.contentType != nil {
		event.ContentTypeID = w.contentType.ID
	}
	w.bus.Publish(event)
}
