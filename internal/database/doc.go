// Package database manages the Postgres connection pool for the bridge's
// telemetry tables (breadcrumbs, crash_events).
package database
