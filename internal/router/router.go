package router

import (
	"log/slog"
	"sync"

	"github.com/driftsignal/crashbridge/internal/analytics"
)

// Reserved envelope keys. The analytics infrastructure delivers each event
// as a flat envelope holding the event name and an optional nested params
// envelope; the emitting subsystem's origin tag rides inside params.
const (
	// EventNameKey holds the event name.
	EventNameKey = "name"

	// EventParamsKey holds the nested event parameters.
	EventParamsKey = "params"

	// EventOriginKey holds the origin tag inside the params envelope.
	EventOriginKey = "_o"
)

// EventRouter dispatches incoming analytics events to at most one of two
// receivers based on the event's origin tag: events emitted by the
// crash-reporting subsystem itself go to the crash-origin receiver, all
// others are treated as breadcrumbs. Events matching an unset receiver slot
// are dropped silently; a malformed or partial envelope never produces an
// error.
type EventRouter struct {
	logger *slog.Logger

	mu                 sync.RWMutex
	crashReceiver      analytics.EventReceiver
	breadcrumbReceiver analytics.EventReceiver

	received         int64
	crashRouted      int64
	breadcrumbRouted int64
	dropped          int64
}

// Stats contains router counters.
type Stats struct {
	Received         int64
	CrashRouted      int64
	BreadcrumbRouted int64
	Dropped          int64
}

// NewEventRouter creates an EventRouter with both receiver slots unset.
func NewEventRouter(logger *slog.Logger) *EventRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRouter{logger: logger}
}

// SetCrashOriginEventReceiver replaces the crash-origin receiver slot.
// nil unsets it. Takes effect for subsequent events only.
func (r *EventRouter) SetCrashOriginEventReceiver(receiver analytics.EventReceiver) {
	r.mu.Lock()
	r.crashReceiver = receiver
	r.mu.Unlock()
}

// SetBreadcrumbEventReceiver replaces the breadcrumb receiver slot.
// nil unsets it. Takes effect for subsequent events only.
func (r *EventRouter) SetBreadcrumbEventReceiver(receiver analytics.EventReceiver) {
	r.mu.Lock()
	r.breadcrumbReceiver = receiver
	r.mu.Unlock()
}

// OnMessageTriggered routes a single event notification. id is assigned by
// the analytics infrastructure and is not used for routing. Invokes exactly
// zero or one receiver; absence of the envelope, name, params, or origin is
// a routing signal, never an error.
func (r *EventRouter) OnMessageTriggered(id int, envelope analytics.Envelope) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	if envelope == nil {
		r.logger.Debug("event without envelope, dropping", "id", id)
		r.drop()
		return
	}

	name, ok := envelope.StringField(EventNameKey)
	if !ok {
		r.logger.Debug("event without name, dropping", "id", id)
		r.drop()
		return
	}

	// Origin is read from the raw params; normalization to an empty
	// envelope happens only for delivery.
	paramsRaw, _ := envelope.NestedField(EventParamsKey)
	params := paramsRaw
	if params == nil {
		params = analytics.Envelope{}
	}

	origin, _ := paramsRaw.StringField(EventOriginKey)

	if origin == analytics.CrashOrigin {
		r.deliverCrash(name, params)
		return
	}
	r.deliverBreadcrumb(name, params)
}

// Stats returns current counters.
func (r *EventRouter) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Received:         r.received,
		CrashRouted:      r.crashRouted,
		BreadcrumbRouted: r.breadcrumbRouted,
		Dropped:          r.dropped,
	}
}

func (r *EventRouter) deliverCrash(name string, params analytics.Envelope) {
	r.mu.RLock()
	receiver := r.crashReceiver
	r.mu.RUnlock()

	if receiver == nil {
		r.drop()
		return
	}

	receiver.OnEvent(name, params)

	r.mu.Lock()
	r.crashRouted++
	r.mu.Unlock()
}

func (r *EventRouter) deliverBreadcrumb(name string, params analytics.Envelope) {
	r.mu.RLock()
	receiver := r.breadcrumbReceiver
	r.mu.RUnlock()

	if receiver == nil {
		r.drop()
		return
	}

	receiver.OnEvent(name, params)

	r.mu.Lock()
	r.breadcrumbRouted++
	r.mu.Unlock()
}

func (r *EventRouter) drop() {
	r.mu.Lock()
	r.dropped++
	r.mu.Unlock()
}
