package analytics

// CrashOrigin is the origin tag stamped on events emitted by the
// crash-reporting subsystem itself. Events carrying any other origin
// (or none) are treated as application breadcrumbs.
const CrashOrigin = "clx"

// Envelope is the raw key-value payload delivered with an analytics event.
// Values are heterogeneous; extraction helpers return absence rather than
// erroring on a missing or mistyped key.
type Envelope map[string]any

// StringField extracts a string value from the envelope.
// Returns "" and false if the key is absent or not a string.
func (e Envelope) StringField(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// NestedField extracts a nested envelope from the envelope.
// Returns nil and false if the key is absent or not a key-value mapping.
func (e Envelope) NestedField(key string) (Envelope, bool) {
	if e == nil {
		return nil, false
	}
	v, ok := e[key]
	if !ok {
		return nil, false
	}
	switch m := v.(type) {
	case Envelope:
		return m, true
	case map[string]any:
		return Envelope(m), true
	default:
		return nil, false
	}
}

// EventReceiver consumes a routed analytics event.
type EventReceiver interface {
	// OnEvent delivers one event. params is never nil.
	OnEvent(name string, params Envelope)
}

// EventReceiverFunc is a function adapter for EventReceiver.
type EventReceiverFunc func(name string, params Envelope)

func (f EventReceiverFunc) OnEvent(name string, params Envelope) {
	f(name, params)
}

// EventLogger forwards analytics events to a backend.
type EventLogger interface {
	LogEvent(name string, params Envelope)
}

// BreadcrumbHandler receives serialized breadcrumb events.
type BreadcrumbHandler func(event Envelope)

// BreadcrumbSource accepts breadcrumb handler registrations.
type BreadcrumbSource interface {
	RegisterBreadcrumbHandler(handler BreadcrumbHandler)
}

// ConnectorListener receives raw event notifications from a connector.
// id is the message id assigned by the analytics infrastructure; envelope
// may be nil if no payload was delivered.
type ConnectorListener interface {
	OnMessageTriggered(id int, envelope Envelope)
}

// ConnectorHandle represents an active connector listener registration.
type ConnectorHandle interface {
	Unregister()
}

// Connector is a live analytics backend.
type Connector interface {
	// LogEvent forwards an event to the backend, tagged with the given origin.
	LogEvent(origin, name string, params Envelope)

	// RegisterConnectorListener subscribes a listener under the given origin
	// tag. Returns nil if the backend could not complete the registration.
	RegisterConnectorListener(origin string, listener ConnectorListener) ConnectorHandle
}

// ConnectorSupplier supplies a connector once one is available.
type ConnectorSupplier func() Connector

// Deferred invokes its callback when a connector becomes available.
// The callback may fire synchronously, later on another goroutine, or never.
type Deferred func(whenAvailable func(ConnectorSupplier))
