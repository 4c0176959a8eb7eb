package escrow

import (
	"paywall/core/events"
	"paywall/core/types"
)

const (
	// EventTypeDeposited is emitted when a user tops up their prepaid balance.
	EventTypeDeposited = "escrow.deposited"
	// EventTypeWithdrawn is emitted when a user reclaims their prepaid balance.
	EventTypeWithdrawn = "escrow.withdrawn"
)

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

// DepositedEvent returns the structured payload for an escrow top-up.
func DepositedEvent(user string, amount string, balance string) *types.Event {
	return &types.Event{
		Type: EventTypeDeposited,
		Attributes: map[string]string{
			"user":    user,
			"amount":  amount,
			"balance": balance,
		},
	}
}

// WithdrawnEvent returns the structured payload for an escrow payout.
func WithdrawnEvent(user string, amount string) *types.Event {
	return &types.Event{
		Type: EventTypeWithdrawn,
		Attributes: map[string]string{
			"user":   user,
			"amount": amount,
		},
	}
}
