package config

import "time"

// BridgeConfig is the root configuration for a bridge instance.
type BridgeConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Feed     FeedConfig     `yaml:"feed"`
	Database DatabaseConfig `yaml:"database"`
	Buffers  BuffersConfig  `yaml:"buffers"`
	Writers  WritersConfig  `yaml:"writers"`
	Health   HealthConfig   `yaml:"health"`
}

// InstanceConfig identifies this bridge.
type InstanceConfig struct {
	ID string `yaml:"id"`
	AZ string `yaml:"az"`
}

// FeedConfig holds analytics feed connection settings.
type FeedConfig struct {
	URL               string        `yaml:"url"`
	Token             string        `yaml:"token"` // Bearer token, usually ${VAR}-expanded
	Channels          []string      `yaml:"channels"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ReconnectBaseWait time.Duration `yaml:"reconnect_base_wait"`
	ReconnectMaxWait  time.Duration `yaml:"reconnect_max_wait"`
	MessageBufferSize int           `yaml:"message_buffer_size"`
}

// DatabaseConfig holds the telemetry database connection.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// BuffersConfig holds routing buffer sizes.
type BuffersConfig struct {
	BreadcrumbSize int `yaml:"breadcrumb_size"`
	CrashEventSize int `yaml:"crash_event_size"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// HealthConfig holds health endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
