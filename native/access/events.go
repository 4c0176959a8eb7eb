package access

import (
	"paywall/core/events"
	"paywall/core/types"
)

// EventTypeContentAccessed is emitted when a consume transition settles.
const EventTypeContentAccessed = "access.content.accessed"

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// ContentAccessedEvent returns the structured payload for a settled consume
// transition.
func ContentAccessedEvent(contentID string, user string, units string, cost string, newTotal string) *types.Event {
	return &types.Event{
		Type: EventTypeContentAccessed,
		Attributes: map[string]string{
			"contentId": contentID,
			"user":      user,
			"units":     units,
			"cost":      cost,
			"newTotal":  newTotal,
		},
	}
}
