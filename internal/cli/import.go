package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wanjiru/triagedesk/internal/config"
	"github.com/wanjiru/triagedesk/internal/importer"
	"github.com/wanjiru/triagedesk/internal/store"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import historical customer messages from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			db, err := store.Open(paths.DatabasePath(cfg), log)
			if err != nil {
				return err
			}
			defer db.Close()

			sum, err := importer.New(store.New(db), log).ImportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d rows (%d skipped)\n", sum.RowsRead, sum.RowsSkipped)
			fmt.Printf("  customers created:     %d\n", sum.CustomersCreated)
			fmt.Printf("  conversations created: %d\n", sum.ConversationsCreated)
			fmt.Printf("  messages created:      %d\n", sum.MessagesCreated)
			return nil
		},
	}
}
