package config

import "time"

// Default values applied by LoadWithDefaults.
const (
	DefaultPingTimeout       = 60 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultReconnectBaseWait = 1 * time.Second
	DefaultReconnectMaxWait  = 60 * time.Second
	DefaultMessageBufferSize = 100000

	DefaultDBPort   = 5432
	DefaultMaxConns = 10
	DefaultMinConns = 2

	DefaultBreadcrumbBuffer = 2000
	DefaultCrashEventBuffer = 500

	DefaultBatchSize     = 500
	DefaultFlushInterval = 5 * time.Second

	DefaultHealthPort = 8080
)

// DefaultFeedChannel is subscribed when no channels are configured.
const DefaultFeedChannel = "events"

// applyDefaults fills in zero-valued fields.
func (c *BridgeConfig) applyDefaults() {
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.ReconnectBaseWait == 0 {
		c.Feed.ReconnectBaseWait = DefaultReconnectBaseWait
	}
	if c.Feed.ReconnectMaxWait == 0 {
		c.Feed.ReconnectMaxWait = DefaultReconnectMaxWait
	}
	if c.Feed.MessageBufferSize == 0 {
		c.Feed.MessageBufferSize = DefaultMessageBufferSize
	}
	if len(c.Feed.Channels) == 0 {
		c.Feed.Channels = []string{DefaultFeedChannel}
	}

	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = DefaultDBPort
	}
	if c.Database.Postgres.MaxConns == 0 {
		c.Database.Postgres.MaxConns = DefaultMaxConns
	}
	if c.Database.Postgres.MinConns == 0 {
		c.Database.Postgres.MinConns = DefaultMinConns
	}

	if c.Buffers.BreadcrumbSize == 0 {
		c.Buffers.BreadcrumbSize = DefaultBreadcrumbBuffer
	}
	if c.Buffers.CrashEventSize == 0 {
		c.Buffers.CrashEventSize = DefaultCrashEventBuffer
	}

	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}

	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
}
