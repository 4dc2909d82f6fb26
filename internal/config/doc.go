// Package config loads and validates bridge configuration from YAML files
// with ${VAR} environment variable expansion.
package config
