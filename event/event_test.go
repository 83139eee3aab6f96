package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(func(Event) { order = append(order, "first") })
	bus.Subscribe(func(Event) { order = append(order, "second") })
	bus.Subscribe(func(Event) { order = append(order, "third") })

	bus.Publish(Event{Type: NodeAdded, ID: "n1"})

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	token := bus.Subscribe(func(Event) { calls++ })

	bus.Publish(Event{Type: NodeAdded})
	bus.Unsubscribe(token)
	bus.Publish(Event{Type: NodeAdded})

	assert.Equal(t, 1, calls)

	// Unknown tokens are ignored.
	bus.Unsubscribe(999)
}

func TestBus_ReentrantPublishQueuesUntilCurrentEventDone(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(func(ev Event) {
		order = append(order, "a:"+string(ev.Type))
		if ev.Type == NodeAdded {
			bus.Publish(Event{Type: SelectionChanged})
		}
	})
	bus.Subscribe(func(ev Event) {
		order = append(order, "b:"+string(ev.Type))
	})

	bus.Publish(Event{Type: NodeAdded})

	// The nested event reaches every subscriber only after the outer event
	// finished its full fan-out.
	assert.Equal(t, []string{
		"a:node.added",
		"b:node.added",
		"a:selection.changed",
		"b:selection.changed",
	}, order)
}

func TestBus_UnsubscribeDuringDeliveryDoesNotSkipPeers(t *testing.T) {
	bus := NewBus()
	var order []string
	var second int
	bus.Subscribe(func(Event) {
		order = append(order, "first")
		bus.Unsubscribe(second)
	})
	second = bus.Subscribe(func(Event) { order = append(order, "second") })
	bus.Subscribe(func(Event) { order = append(order, "third") })

	bus.Publish(Event{Type: GraphCleared})

	// The snapshot taken at delivery time still includes the removed peer.
	assert.Equal(t, []string{"first", "second", "third"}, order)

	order = nil
	bus.Publish(Event{Type: GraphCleared})
	assert.Equal(t, []string{"first", "third"}, order)
}
