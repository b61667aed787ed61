package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 8480, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
  bind: lan
  allowedOrigins: ["http://localhost:5173"]
database:
  path: /tmp/triage.db
logging:
  level: debug
hooks:
  messageReceived:
    - command: "notify-send triage"
      timeout: 2000
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "lan", cfg.Server.Bind)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/tmp/triage.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Hooks.MessageReceived, 1)
	assert.Equal(t, 2000, cfg.Hooks.MessageReceived[0].Timeout)
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8480, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRIAGEDESK_PORT", "7001")
	t.Setenv("TRIAGEDESK_BIND", "lan")
	t.Setenv("TRIAGEDESK_LOG_LEVEL", "TRACE")
	t.Setenv("TRIAGEDESK_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "lan", cfg.Server.Bind)
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))

	cfg.Server.Port = 70000
	cfg.Server.Bind = "everywhere"
	cfg.Logging.Level = "loud"
	cfg.Hooks.ServerStart = []HookEntry{{Command: ""}}

	issues := Validate(&cfg)
	assert.Len(t, issues, 4)
}

func TestValidate_CustomBindRequiresHost(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Bind = "custom"

	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "server.customBindHost", issues[0].Path)
}

func TestResolvePaths_HomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRIAGEDESK_HOME", dir)

	p, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, dir, p.Base)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), p.Config)

	require.NoError(t, p.EnsureDirs())
	assert.DirExists(t, p.Data)
	assert.DirExists(t, p.Logs)
}

func TestPaths_DatabasePath(t *testing.T) {
	p := Paths{Data: "/var/lib/triagedesk"}

	assert.Equal(t, filepath.Join("/var/lib/triagedesk", "triagedesk.db"), p.DatabasePath(Config{}))
	assert.Equal(t, "/custom.db", p.DatabasePath(Config{Database: DatabaseConfig{Path: "/custom.db"}}))
}
