// Package eventbus carries engine events to observers without coupling the
// engine to them.
package eventbus

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the untyped EventBus shared between packages; consumers switch
// on the concrete event type.
type Bus struct {
	*TypedBus[Event]
}

// New creates a new Bus.
func New(opts ...Option) *Bus { return &Bus{TypedBus: NewTyped[Event](opts...)} }
