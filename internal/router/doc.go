// Package router implements the analytics event router.
//
// The EventRouter receives raw event notifications from the analytics
// connector and dispatches each to at most one receiver: crash-origin
// events to the crash-origin receiver, everything else to the breadcrumb
// receiver. Missing fields and unset receivers drop the event silently;
// telemetry must never disrupt the host.
//
// GrowableBuffer provides the bounded-start, grow-on-demand queues that sit
// between receivers and the persistence writers.
package router
