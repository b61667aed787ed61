package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wanjiru/triagedesk/internal/config"
	"github.com/wanjiru/triagedesk/internal/version"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show resolved paths and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			fmt.Printf("%s\n\n", version.Info())

			fmt.Println("Paths:")
			fmt.Printf("  base:     %s\n", paths.Base)
			fmt.Printf("  config:   %s %s\n", paths.Config, fileNote(paths.Config))
			fmt.Printf("  database: %s %s\n", paths.DatabasePath(cfg), fileNote(paths.DatabasePath(cfg)))
			fmt.Printf("  logs:     %s\n\n", paths.Logs)

			fmt.Println("Server:")
			fmt.Printf("  port:     %d\n", cfg.Server.Port)
			fmt.Printf("  bind:     %s\n", cfg.Server.Bind)
			if len(cfg.Server.AllowedOrigins) > 0 {
				fmt.Printf("  origins:  %v\n", cfg.Server.AllowedOrigins)
			}
			fmt.Printf("  logging:  %s\n", cfg.Logging.Level)

			if n := hookCount(cfg.Hooks); n > 0 {
				fmt.Printf("\nHooks: %d shell command(s) configured\n", n)
			}

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Println("\nConfiguration problems:")
				for _, issue := range issues {
					fmt.Printf("  %s: %s\n", issue.Path, issue.Message)
				}
			}
			return nil
		},
	}
}

func fileNote(path string) string {
	if _, err := os.Stat(path); err != nil {
		return "(missing)"
	}
	return ""
}

func hookCount(h config.HooksConfig) int {
	return len(h.MessageReceived) + len(h.MessageSent) +
		len(h.ConversationResolved) + len(h.ServerStart) + len(h.ServerStop)
}
