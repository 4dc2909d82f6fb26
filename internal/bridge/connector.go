package bridge

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/driftsignal/crashbridge/internal/analytics"
	"github.com/driftsignal/crashbridge/internal/router"
)

// Sender is the upstream half of the feed link the connector needs.
// connection.Manager satisfies it.
type Sender interface {
	Send(data []byte) error
	IsConnected() bool
}

// StreamConnector implements analytics.Connector on top of the feed link.
// Listener registrations are keyed by origin tag; the tag identifies the
// subscriber, not a delivery filter - every listener sees every event and
// routes by origin itself.
type StreamConnector struct {
	sender Sender
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[string]analytics.ConnectorListener
}

// NewStreamConnector creates a connector over the given feed link.
func NewStreamConnector(sender Sender, logger *slog.Logger) *StreamConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamConnector{
		sender:    sender,
		logger:    logger,
		listeners: make(map[string]analytics.ConnectorListener),
	}
}

// LogEvent sends an event frame upstream, tagged with the given origin.
// Failures are logged, not returned: event logging is fire-and-forget.
func (c *StreamConnector) LogEvent(origin, name string, params analytics.Envelope) {
	tagged := analytics.Envelope{}
	for k, v := range params {
		tagged[k] = v
	}
	if origin != "" {
		tagged[router.EventOriginKey] = origin
	}

	frame := eventFrame{
		Event: analytics.Envelope{
			router.EventNameKey:   name,
			router.EventParamsKey: map[string]any(tagged),
		},
	}

	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Warn("failed to encode event", "event", name, "error", err)
		return
	}
	if err := c.sender.Send(data); err != nil {
		c.logger.Warn("failed to send event", "event", name, "error", err)
	}
}

// RegisterConnectorListener subscribes a listener under the given origin
// tag, replacing any previous registration under the same tag. Returns nil
// if the feed link is down.
func (c *StreamConnector) RegisterConnectorListener(origin string, listener analytics.ConnectorListener) analytics.ConnectorHandle {
	if listener == nil || !c.sender.IsConnected() {
		return nil
	}

	c.mu.Lock()
	c.listeners[origin] = listener
	c.mu.Unlock()

	return &listenerHandle{connector: c, origin: origin}
}

// Dispatch fans one event notification out to all registered listeners.
// Called by the Bridge for every decoded feed frame.
func (c *StreamConnector) Dispatch(id int, envelope analytics.Envelope) {
	c.mu.RLock()
	listeners := make([]analytics.ConnectorListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.RUnlock()

	for _, l := range listeners {
		l.OnMessageTriggered(id, envelope)
	}
}

// OnMessageTriggered makes the connector itself usable as the bridge's
// dispatch target.
func (c *StreamConnector) OnMessageTriggered(id int, envelope analytics.Envelope) {
	c.Dispatch(id, envelope)
}

// listenerHandle represents one active registration.
type listenerHandle struct {
	connector *StreamConnector
	origin    string
}

// Unregister removes the registration if it is still current.
func (h *listenerHandle) Unregister() {
	h.connector.mu.Lock()
	delete(h.connector.listeners, h.origin)
	h.connector.mu.Unlock()
}

// eventFrame is the wire format for event frames sent upstream.
type eventFrame struct {
	ID    int                `json:"id,omitempty"`
	Event analytics.Envelope `json:"event"`
}
