package composer

import "sync"

// EventKind names the composer events that flow over the bus.
type EventKind string

const (
	EventComponentAdded   EventKind = "component_added"
	EventComponentRemoved EventKind = "component_removed"
	EventComponentUpdated EventKind = "component_updated"
	EventWidgetBound      EventKind = "widget_bound"
	EventPreviewReady     EventKind = "preview_ready"
	EventPreviewFailed    EventKind = "preview_failed"
)

// Event is the single message type published on the bus. Which fields are
// populated depends on the kind; the JSON shape feeds the websocket stream
// directly.
type Event struct {
	Kind          EventKind `json:"event"`
	SectionID     string    `json:"section_id,omitempty"`
	ColumnID      string    `json:"column_id,omitempty"`
	NodeID        string    `json:"node_id,omitempty"`
	WidgetID      uint      `json:"widget_id,omitempty"`
	InstanceKey   string    `json:"instance_key,omitempty"`
	ContentTypeID uint      `json:"content_type_id,omitempty"`
	ItemIDs       []uint    `json:"item_ids,omitempty"`
	Message       string    `json:"message,omitempty"`
	Retryable     bool      `json:"retryable,omitempty"`
}

// Bus is a typed observer list. The tree builder, preview loader and wizard
// publish; the editor, preview cache and websocket stream subscribe. Fan-out
// is synchronous, matching the engine's cooperative execution model.
type Bus struct {
	mu          sync.RWMutex
	nextID      int
	subscribers []subscription
}

type subscription struct {
	id int
	fn func(Event)
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every published event and returns an id
// for Unsubscribe. A nil handler is ignored and gets id 0.
func (b *Bus) Subscribe(fn func(Event)) int {
	if fn == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subscribers = append(b.subscribers, subscription{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes a handler. Unknown ids are a no-op.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub.id == id {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}

// Publish delivers the event to all subscribers in registration order.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := make([]func(Event), 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		handlers = append(handlers, sub.fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
