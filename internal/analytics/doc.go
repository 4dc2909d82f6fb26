// Package analytics defines the capability shapes shared between the event
// router, the deferred connector proxy, and the host application:
//
//   - Envelope: the raw key-value payload delivered with an analytics event
//   - EventReceiver: consumes routed (name, params) pairs
//   - EventLogger: forwards events to an analytics backend
//   - BreadcrumbSource: accepts breadcrumb handler registrations
//   - Connector: the live analytics backend (logging + listener registration)
//
// DeferredProxy wraps a connector that may become available later and
// substitutes inert defaults until it does.
package analytics
