package earnings

import (
	"paywall/core/events"
	"paywall/core/types"
)

// EventTypeWithdrawn is emitted when a creator drains their accrued earnings.
const EventTypeWithdrawn = "earnings.withdrawn"

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

// WithdrawnEvent returns the structured payload for an earnings payout.
func WithdrawnEvent(creator string, amount string) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"creator": creator,
			"amount":  amount,
		},
	}
}
