// Package model defines the persisted record types shared across the
// bridge: breadcrumbs captured from application telemetry and crash-origin
// events emitted by the crash-reporting subsystem.
package model
