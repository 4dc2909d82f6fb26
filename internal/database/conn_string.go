package database

import (
	"fmt"
	"net/url"

	"github.com/driftsignal/crashbridge/internal/config"
)

// BuildConnString builds the PostgreSQL connection string for the telemetry
// database. The application name tags bridge sessions in pg_stat_activity.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&application_name=crashbridge",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}
