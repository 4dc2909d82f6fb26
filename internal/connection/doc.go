// Package connection maintains the WebSocket link to the analytics feed.
//
// Client wraps a single connection: dial, keepalive, read loop, send.
// Manager owns the connection lifecycle: subscribe on connect, reconnect
// with exponential backoff, and a single raw-message stream for the bridge.
package connection
