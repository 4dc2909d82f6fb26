package model

import "github.com/google/uuid"

// Breadcrumb is a recorded non-crash diagnostic event, kept for context in
// later crash reports.
type Breadcrumb struct {
	ID         uuid.UUID      // Primary key, assigned at capture
	Name       string         // Event name
	Params     map[string]any // Event parameters (never nil)
	ReceivedAt int64          // Bridge receive timestamp (µs since epoch)
}

// CrashEvent is an event emitted by the crash-reporting subsystem itself
// (origin "clx").
type CrashEvent struct {
	ID         uuid.UUID      // Primary key, assigned at capture
	Name       string         // Event name
	Params     map[string]any // Event parameters (never nil)
	ReceivedAt int64          // Bridge receive timestamp (µs since epoch)
}
