package analytics

import (
	"log/slog"
	"sync/atomic"
)

// DeferredProxy fronts an analytics connector that may not be available yet.
// The logger and breadcrumb source it hands out check resolution state on
// every call, so callers upgrade from the injected defaults to the real
// backend transparently once the connector resolves.
//
// Resolution is set-once: the provider is invoked exactly once at
// construction, and the first connector that completes listener registration
// is kept for the lifetime of the proxy. A provider that never calls back
// leaves the proxy on its defaults permanently; that is a steady state, not
// an error.
type DeferredProxy struct {
	defaultSource BreadcrumbSource
	defaultLogger EventLogger
	listener      ConnectorListener
	logger        *slog.Logger

	// Published once from the provider callback, read on every operation.
	connector atomic.Pointer[Connector]
}

// ProxyOption configures a DeferredProxy.
type ProxyOption func(*DeferredProxy)

// WithConnectorListener sets the listener registered with the connector when
// it resolves. Defaults to a listener that discards notifications.
func WithConnectorListener(l ConnectorListener) ProxyOption {
	return func(p *DeferredProxy) {
		p.listener = l
	}
}

// WithProxyLogger sets the logger.
func WithProxyLogger(logger *slog.Logger) ProxyOption {
	return func(p *DeferredProxy) {
		p.logger = logger
	}
}

// NewDeferredProxy creates a proxy over a deferred connector. provider is
// invoked exactly once, before NewDeferredProxy returns; its callback may
// fire at any later point from any goroutine. defaultSource and
// defaultLogger serve all operations until (and unless) a connector
// resolves.
func NewDeferredProxy(provider Deferred, defaultSource BreadcrumbSource, defaultLogger EventLogger, opts ...ProxyOption) *DeferredProxy {
	p := &DeferredProxy{
		defaultSource: defaultSource,
		defaultLogger: defaultLogger,
		listener:      droppingListener{},
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	provider(func(supply ConnectorSupplier) {
		p.resolve(supply())
	})

	return p
}

// AnalyticsEventLogger returns a logger that forwards to the resolved
// connector, or to the default logger while unresolved.
func (p *DeferredProxy) AnalyticsEventLogger() EventLogger {
	return deferredEventLogger{p}
}

// DeferredBreadcrumbSource returns a breadcrumb source that forwards
// registrations to the resolved connector, or to the default source while
// unresolved.
func (p *DeferredProxy) DeferredBreadcrumbSource() BreadcrumbSource {
	return deferredBreadcrumbSource{p}
}

// Resolved reports whether a connector has been resolved.
func (p *DeferredProxy) Resolved() bool {
	return p.current() != nil
}

// resolve validates the connector by registering the proxy's listener under
// the crash-reporting origin. A nil handle means the backend is present but
// not functional; the proxy stays on its defaults.
func (p *DeferredProxy) resolve(c Connector) {
	if c == nil {
		p.logger.Debug("connector supplier returned nothing, keeping defaults")
		return
	}

	handle := c.RegisterConnectorListener(CrashOrigin, p.listener)
	if handle == nil {
		p.logger.Warn("connector listener registration failed, keeping defaults")
		return
	}

	if !p.connector.CompareAndSwap(nil, &c) {
		// Already resolved; the first successful resolution is permanent.
		handle.Unregister()
		return
	}

	p.logger.Info("analytics connector resolved")
}

func (p *DeferredProxy) current() Connector {
	if c := p.connector.Load(); c != nil {
		return *c
	}
	return nil
}

// deferredEventLogger routes LogEvent calls by resolution state at call time.
type deferredEventLogger struct {
	p *DeferredProxy
}

func (l deferredEventLogger) LogEvent(name string, params Envelope) {
	if c := l.p.current(); c != nil {
		c.LogEvent(CrashOrigin, name, params)
		return
	}
	l.p.defaultLogger.LogEvent(name, params)
}

// deferredBreadcrumbSource routes handler registrations by resolution state
// at call time. Against a resolved connector, registration may happen more
// than once over the proxy's lifetime; the connector tolerates repeats.
type deferredBreadcrumbSource struct {
	p *DeferredProxy
}

func (s deferredBreadcrumbSource) RegisterBreadcrumbHandler(handler BreadcrumbHandler) {
	if c := s.p.current(); c != nil {
		c.RegisterConnectorListener("", breadcrumbForwarder{handler})
		return
	}
	s.p.defaultSource.RegisterBreadcrumbHandler(handler)
}

// breadcrumbForwarder adapts a BreadcrumbHandler to the connector listener
// shape used for registration.
type breadcrumbForwarder struct {
	handler BreadcrumbHandler
}

func (f breadcrumbForwarder) OnMessageTriggered(id int, envelope Envelope) {
	if f.handler != nil {
		f.handler(envelope)
	}
}

// droppingListener discards connector notifications. Registered when the
// proxy owner has no listener of its own.
type droppingListener struct{}

func (droppingListener) OnMessageTriggered(int, Envelope) {}
