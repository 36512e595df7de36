package events

import "vegov/core/types"

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Convertible is implemented by events that can render themselves as a flat
// attribute map.
type Convertible interface {
	Event() *types.Event
}

// Buffer collects events for a single operation. Events are only published
// once the operation commits, so a failed operation leaves no trace.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Pending returns the buffered events as emitted.
func (b *Buffer) Pending() []Event {
	return append([]Event(nil), b.events...)
}

// Events returns the flattened buffered events in emission order.
func (b *Buffer) Events() []*types.Event {
	out := make([]*types.Event, 0, len(b.events))
	for _, evt := range b.events {
		if c, ok := evt.(Convertible); ok {
			if flat := c.Event(); flat != nil {
				out = append(out, flat)
			}
			continue
		}
		out = append(out, &types.Event{Type: evt.EventType(), Attributes: map[string]string{}})
	}
	return out
}
