package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"paywall/core/events"
)

// EventCounter counts emitted ledger events by type and forwards them to a
// wrapped emitter. It lets hosts expose the event stream to prometheus
// without touching the engines.
type EventCounter struct {
	next   events.Emitter
	events *prometheus.CounterVec
}

// NewEventCounter registers the event counter with the supplied registerer
// (the default registerer when nil) and chains to next.
func NewEventCounter(reg prometheus.Registerer, next events.Emitter) *EventCounter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "paywall",
		Subsystem: "ledger",
		Name:      "events_total",
		Help:      "Total ledger events emitted, segmented by event type.",
	}, []string{"type"})
	reg.MustRegister(vec)
	return &EventCounter{next: next, events: vec}
}

// Emit implements the events.Emitter interface.
func (c *EventCounter) Emit(evt events.Event) {
	if c == nil || evt == nil {
		return
	}
	c.events.WithLabelValues(evt.EventType()).Inc()
	if c.next != nil {
		c.next.Emit(evt)
	}
}
