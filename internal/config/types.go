package config

// Config is the root configuration for triagedesk.
type Config struct {
	Server   ServerConfig   `yaml:"server,omitempty"`
	Database DatabaseConfig `yaml:"database,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Hooks    HooksConfig    `yaml:"hooks,omitempty"`
}

// ServerConfig controls the HTTP/WebSocket server.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "auto" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// DatabaseConfig controls persistent storage.
type DatabaseConfig struct {
	Path string `yaml:"path,omitempty"` // empty resolves to <home>/data/triagedesk.db
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`
}

// HooksConfig declares shell-command hooks per event.
type HooksConfig struct {
	MessageReceived      []HookEntry `yaml:"messageReceived,omitempty"`
	MessageSent          []HookEntry `yaml:"messageSent,omitempty"`
	ConversationResolved []HookEntry `yaml:"conversationResolved,omitempty"`
	ServerStart          []HookEntry `yaml:"serverStart,omitempty"`
	ServerStop           []HookEntry `yaml:"serverStop,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}
