package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for missing or inconsistent values.
func (c *BridgeConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Feed.URL == "" {
		return errors.New("feed.url is required")
	}
	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return fmt.Errorf("feed.url must be a ws:// or wss:// URL, got %q", c.Feed.URL)
	}

	pg := c.Database.Postgres
	if pg.Host == "" {
		return errors.New("database.postgres.host is required")
	}
	if pg.Name == "" {
		return errors.New("database.postgres.name is required")
	}
	if pg.User == "" {
		return errors.New("database.postgres.user is required")
	}
	if pg.Password == "" {
		return errors.New("database.postgres.password is required")
	}
	if pg.MinConns > pg.MaxConns {
		return fmt.Errorf("database.postgres.min_conns (%d) exceeds max_conns (%d)", pg.MinConns, pg.MaxConns)
	}

	if c.Feed.ReconnectBaseWait > c.Feed.ReconnectMaxWait {
		return fmt.Errorf("feed.reconnect_base_wait (%v) exceeds reconnect_max_wait (%v)",
			c.Feed.ReconnectBaseWait, c.Feed.ReconnectMaxWait)
	}

	return nil
}
