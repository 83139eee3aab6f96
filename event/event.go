// Package event is the engine's publish/subscribe channel. Delivery is
// synchronous and ordered: Publish invokes every live subscriber on the
// caller's goroutine before returning. Subscribers are expected to treat the
// graph as read-only during a callback.
package event

import "tangle/geom"

// Type identifies what happened.
type Type string

const (
	NodeAdded             Type = "node.added"
	NodeRemoved           Type = "node.removed"
	NodeMoved             Type = "node.moved"
	NodeResized           Type = "node.resized"
	NodeVisibilityChanged Type = "node.visibility_changed"
	NodePortsChanged      Type = "node.ports_changed"
	ConnectionAdded       Type = "connection.added"
	ConnectionRemoved     Type = "connection.removed"
	ConnectionPathChanged Type = "connection.path_changed"
	AnnotationAdded       Type = "annotation.added"
	AnnotationRemoved     Type = "annotation.removed"
	SelectionChanged      Type = "selection.changed"
	ViewportChanged       Type = "viewport.changed"
	GraphLoaded           Type = "graph.loaded"
	GraphCleared          Type = "graph.cleared"
)

// Event is a single notification. ID names the affected entity where one
// exists; bulk events (load, clear, selection) leave it empty.
type Event struct {
	Type   Type
	ID     string
	OldPos geom.Point // NodeMoved
	NewPos geom.Point // NodeMoved
	Size   geom.Size  // NodeResized
	Nodes  []string   // ConnectionAdded/Removed: [source, target]
}

// Handler receives published events.
type Handler func(Event)

// Bus fans events out to subscribers in subscription order. It is not
// goroutine-safe; the engine serializes all access.
type Bus struct {
	nextID     int
	subs       []subscription
	delivering bool
	queue      []Event
}

type subscription struct {
	id int
	fn Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a token for Unsubscribe.
func (b *Bus) Subscribe(fn Handler) int {
	b.nextID++
	b.subs = append(b.subs, subscription{id: b.nextID, fn: fn})
	return b.nextID
}

// Unsubscribe removes the subscription with the given token. Unknown tokens
// are ignored.
func (b *Bus) Unsubscribe(id int) {
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers ev to every subscriber. Events published from inside a
// callback are queued and delivered after the current event finishes, so
// subscribers always observe a consistent order.
func (b *Bus) Publish(ev Event) {
	if b.delivering {
		b.queue = append(b.queue, ev)
		return
	}
	b.delivering = true
	b.deliver(ev)
	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue = b.queue[1:]
		b.deliver(next)
	}
	b.delivering = false
}

func (b *Bus) deliver(ev Event) {
	// Copy so a handler unsubscribing mid-delivery cannot skip a peer.
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	for _, s := range subs {
		s.fn(ev)
	}
}
