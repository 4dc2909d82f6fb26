package connection

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps raw message data with a receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from the WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a message from the Manager to the bridge.
type RawMessage struct {
	Data       []byte    // Raw message bytes
	Attempt    int       // Connection attempt the message arrived on (1-based)
	ReceivedAt time.Time // Local timestamp when the client received it
}

// Command is a control command sent to the feed server.
type Command struct {
	ID     int64  `json:"id"`
	Cmd    string `json:"cmd"`
	Params any    `json:"params,omitempty"`
}

// SubscribeParams are parameters for a subscribe command.
type SubscribeParams struct {
	Channels []string `json:"channels"`
	Origin   string   `json:"origin,omitempty"`
}

// Response is a command response from the feed server.
type Response struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"` // "subscribed", "error", "ok"
	Msg  json.RawMessage `json:"msg"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL          string        // WebSocket URL of the analytics feed
	Token        string        // Bearer token (empty = no auth)
	PingTimeout  time.Duration // Max time without ping before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// ManagerConfig configures the connection Manager.
type ManagerConfig struct {
	URL               string        // WebSocket URL of the analytics feed
	Token             string        // Bearer token for authentication
	Channels          []string      // Feed channels to subscribe on connect
	PingTimeout       time.Duration // Client ping timeout
	WriteTimeout      time.Duration // Client write timeout
	ReconnectBaseWait time.Duration // Base wait for reconnection backoff
	ReconnectMaxWait  time.Duration // Max wait for reconnection backoff
	MessageBufferSize int           // Buffer size for the output message channel
}
