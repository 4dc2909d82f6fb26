package analytics

import "log/slog"

// DisabledBreadcrumbSource drops all handler registrations. Used as the
// fallback when no analytics backend is available to supply breadcrumbs.
type DisabledBreadcrumbSource struct {
	logger *slog.Logger
}

// NewDisabledBreadcrumbSource creates an inert breadcrumb source.
func NewDisabledBreadcrumbSource(logger *slog.Logger) *DisabledBreadcrumbSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DisabledBreadcrumbSource{logger: logger}
}

// RegisterBreadcrumbHandler accepts and discards the registration.
func (s *DisabledBreadcrumbSource) RegisterBreadcrumbHandler(handler BreadcrumbHandler) {
	s.logger.Debug("breadcrumb collection disabled, registration dropped")
}

// LogOnlyEventLogger records events to the local log instead of a backend.
// Used as the fallback logger while no connector is resolved.
type LogOnlyEventLogger struct {
	logger *slog.Logger
}

// NewLogOnlyEventLogger creates a logger-backed event sink.
func NewLogOnlyEventLogger(logger *slog.Logger) *LogOnlyEventLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogOnlyEventLogger{logger: logger}
}

// LogEvent writes the event to the local log.
func (l *LogOnlyEventLogger) LogEvent(name string, params Envelope) {
	l.logger.Debug("analytics event (no backend)", "event", name, "params", len(params))
}
