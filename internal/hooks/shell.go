package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ShellEntry is a config-declared hook action: a shell command run when
// the event fires, with the payload on stdin as JSON.
type ShellEntry struct {
	Command string
	Timeout time.Duration
}

// RegisterShell attaches shell-command handlers to an event. Each
// command runs through `sh -c` with a per-entry timeout (default 10s).
func (m *Manager) RegisterShell(event string, entries []ShellEntry) {
	for i, e := range entries {
		entry := e
		if entry.Timeout <= 0 {
			entry.Timeout = 10 * time.Second
		}
		name := fmt.Sprintf("shell:%d", i)
		m.On(event, name, func(ctx context.Context, p Payload) error {
			return runShell(ctx, entry, p)
		})
	}
}

func runShell(ctx context.Context, entry ShellEntry, p Payload) error {
	ctx, cancel := context.WithTimeout(ctx, entry.Timeout)
	defer cancel()

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding hook payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", entry.Command)
	cmd.Stdin = strings.NewReader(string(body))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("hook command %q: %w (output: %s)", entry.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}
