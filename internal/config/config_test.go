package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-bridge
  az: us-east-1a
feed:
  url: wss://feed.example.com/v1/stream
  channels: [events]
database:
  postgres:
    host: localhost
    port: 5432
    name: test_db
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-bridge" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-bridge")
	}
	if cfg.Feed.URL != "wss://feed.example.com/v1/stream" {
		t.Errorf("Feed.URL = %q, want %q", cfg.Feed.URL, "wss://feed.example.com/v1/stream")
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FEED_TOKEN", "tok-abc123")
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-bridge
feed:
  url: wss://feed.example.com/v1/stream
  token: ${TEST_FEED_TOKEN}
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.Token != "tok-abc123" {
		t.Errorf("Feed.Token = %q, want %q", cfg.Feed.Token, "tok-abc123")
	}
	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-bridge
feed:
  url: wss://feed.example.com/v1/stream
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Feed.PingTimeout != DefaultPingTimeout {
		t.Errorf("Feed.PingTimeout = %v, want default %v", cfg.Feed.PingTimeout, DefaultPingTimeout)
	}
	if len(cfg.Feed.Channels) != 1 || cfg.Feed.Channels[0] != DefaultFeedChannel {
		t.Errorf("Feed.Channels = %v, want default [%s]", cfg.Feed.Channels, DefaultFeedChannel)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Database.Postgres.MaxConns != DefaultMaxConns {
		t.Errorf("Database.Postgres.MaxConns = %d, want default %d", cfg.Database.Postgres.MaxConns, DefaultMaxConns)
	}
	if cfg.Writers.BatchSize != DefaultBatchSize {
		t.Errorf("Writers.BatchSize = %d, want default %d", cfg.Writers.BatchSize, DefaultBatchSize)
	}
	if cfg.Health.Port != DefaultHealthPort {
		t.Errorf("Health.Port = %d, want default %d", cfg.Health.Port, DefaultHealthPort)
	}
}

func TestValidate(t *testing.T) {
	validPostgres := DBConfig{
		Host: "localhost", Name: "db", User: "user", Password: "pass",
		MaxConns: 10, MinConns: 2,
	}

	tests := []struct {
		name    string
		cfg     BridgeConfig
		wantErr string
	}{
		{
			name:    "missing instance id",
			cfg:     BridgeConfig{},
			wantErr: "instance.id is required",
		},
		{
			name: "missing feed url",
			cfg: BridgeConfig{
				Instance: InstanceConfig{ID: "test"},
			},
			wantErr: "feed.url is required",
		},
		{
			name: "feed url not websocket",
			cfg: BridgeConfig{
				Instance: InstanceConfig{ID: "test"},
				Feed:     FeedConfig{URL: "https://feed.example.com"},
			},
			wantErr: `feed.url must be a ws:// or wss:// URL, got "https://feed.example.com"`,
		},
		{
			name: "missing postgres host",
			cfg: BridgeConfig{
				Instance: InstanceConfig{ID: "test"},
				Feed:     FeedConfig{URL: "wss://feed.example.com"},
			},
			wantErr: "database.postgres.host is required",
		},
		{
			name: "missing postgres password",
			cfg: BridgeConfig{
				Instance: InstanceConfig{ID: "test"},
				Feed:     FeedConfig{URL: "wss://feed.example.com"},
				Database: DatabaseConfig{
					Postgres: DBConfig{Host: "localhost", Name: "db", User: "user"},
				},
			},
			wantErr: "database.postgres.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			cfg: BridgeConfig{
				Instance: InstanceConfig{ID: "test"},
				Feed:     FeedConfig{URL: "wss://feed.example.com"},
				Database: DatabaseConfig{
					Postgres: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 5, MinConns: 10},
				},
			},
			wantErr: "database.postgres.min_conns (10) exceeds max_conns (5)",
		},
		{
			name: "backoff ordering",
			cfg: BridgeConfig{
				Instance: InstanceConfig{ID: "test"},
				Feed: FeedConfig{
					URL:               "wss://feed.example.com",
					ReconnectBaseWait: time.Minute,
					ReconnectMaxWait:  time.Second,
				},
				Database: DatabaseConfig{Postgres: validPostgres},
			},
			wantErr: "feed.reconnect_base_wait (1m0s) exceeds reconnect_max_wait (1s)",
		},
		{
			name: "valid config",
			cfg: BridgeConfig{
				Instance: InstanceConfig{ID: "test"},
				Feed: FeedConfig{
					URL:               "wss://feed.example.com",
					ReconnectBaseWait: time.Second,
					ReconnectMaxWait:  time.Minute,
				},
				Database: DatabaseConfig{Postgres: validPostgres},
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
