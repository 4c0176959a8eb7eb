package catalog

import (
	"paywall/core/events"
	"paywall/core/types"
)

// EventTypeContentRegistered is emitted when a creator registers new content.
const EventTypeContentRegistered = "catalog.content.registered"

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

// ContentRegisteredEvent returns the structured payload announcing a new
// content record.
func ContentRegisteredEvent(contentID string, creator string, rate string, maxUnits string) *types.Event {
	return &types.Event{
		Type: EventTypeContentRegistered,
		Attributes: map[string]string{
			"contentId": contentID,
			"creator":   creator,
			"rate":      rate,
			"maxUnits":  maxUnits,
		},
	}
}
