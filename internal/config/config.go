// Package config loads and validates triagedesk configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultPort is the server port when none is configured.
const DefaultPort = 8480

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: DefaultPort,
			Bind: "loopback",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
