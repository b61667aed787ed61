package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wanjiru/triagedesk/internal/config"
	"github.com/wanjiru/triagedesk/internal/gateway"
	"github.com/wanjiru/triagedesk/internal/hooks"
	"github.com/wanjiru/triagedesk/internal/hub"
	"github.com/wanjiru/triagedesk/internal/presence"
	"github.com/wanjiru/triagedesk/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the triagedesk server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("bind") {
				cfg.Server.Bind = bind
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return &config.ConfigError{Message: "invalid configuration"}
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			db, err := store.Open(paths.DatabasePath(cfg), log)
			if err != nil {
				return err
			}
			defer db.Close()

			st := store.New(db)
			reg := presence.NewRegistry()

			hookMgr := hooks.NewManager(log)
			registerConfigHooks(hookMgr, cfg.Hooks)

			h := hub.New(st, reg, hookMgr, log)
			srv := gateway.New(cfg, st, h, hookMgr, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "port to listen on")
	cmd.Flags().StringVar(&bind, "bind", "", "bind mode (auto, lan, loopback, custom)")

	return cmd
}

// registerConfigHooks attaches shell commands from the config file to
// their server events.
func registerConfigHooks(m *hooks.Manager, cfg config.HooksConfig) {
	wire := func(event string, entries []config.HookEntry) {
		if len(entries) == 0 {
			return
		}
		shell := make([]hooks.ShellEntry, 0, len(entries))
		for _, e := range entries {
			shell = append(shell, hooks.ShellEntry{
				Command: e.Command,
				Timeout: time.Duration(e.Timeout) * time.Millisecond,
			})
		}
		m.RegisterShell(event, shell)
	}

	wire(hooks.EventMessageReceived, cfg.MessageReceived)
	wire(hooks.EventMessageSent, cfg.MessageSent)
	wire(hooks.EventConversationResolved, cfg.ConversationResolved)
	wire(hooks.EventServerStart, cfg.ServerStart)
	wire(hooks.EventServerStop, cfg.ServerStop)
}
