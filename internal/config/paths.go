package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".triagedesk"

// Paths holds resolved filesystem paths for triagedesk data.
type Paths struct {
	Base   string // ~/.triagedesk
	Config string // ~/.triagedesk/config.yaml
	Data   string // ~/.triagedesk/data
	Logs   string // ~/.triagedesk/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If TRIAGEDESK_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("TRIAGEDESK_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   filepath.Join(base, "data"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// DatabasePath resolves the SQLite file location, preferring the
// configured path.
func (p Paths) DatabasePath(cfg Config) string {
	if cfg.Database.Path != "" {
		return cfg.Database.Path
	}
	return filepath.Join(p.Data, "triagedesk.db")
}
