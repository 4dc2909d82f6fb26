// Package bridge glues the feed connection to the event router.
//
// Bridge decodes raw feed frames and hands each event notification to a
// connector listener. StreamConnector implements the analytics connector
// interface on top of the feed link, so the deferred proxy can resolve to
// it once the link is up. Receiver constructors adapt routed events into
// persisted records queued for the writers.
package bridge
