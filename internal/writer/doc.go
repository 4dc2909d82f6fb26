// Package writer implements batch writers for captured telemetry.
//
// Writers:
//   - Breadcrumb writer (breadcrumbs table)
//   - Crash event writer (crash_events table)
//
// Both consume from router buffers, accumulate batches, and insert with
// append-only semantics (never update, only insert). Event parameters are
// stored as JSONB.
package writer
