package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wanjiru/triagedesk/internal/config"
	"github.com/wanjiru/triagedesk/internal/domain"
	"github.com/wanjiru/triagedesk/internal/importer"
	"github.com/wanjiru/triagedesk/internal/store"
)

type seedAgent struct {
	name   string
	email  string
	status domain.AgentStatus
}

type seedCanned struct {
	title    string
	content  string
	category string
}

var seedAgents = []seedAgent{
	{"Sarah Kimani", "sarah.kimani@triagedesk.local", domain.AgentAvailable},
	{"James Omondi", "james.omondi@triagedesk.local", domain.AgentAvailable},
	{"Grace Wanjiku", "grace.wanjiku@triagedesk.local", domain.AgentOffline},
}

var seedCannedResponses = []seedCanned{
	{"Payment received", "Thank you for your payment. It has been received and applied to your account.", "payments"},
	{"Payment delay", "We are sorry for the delay. Payments can take up to 24 hours to reflect. Please share your transaction reference and we will follow up.", "payments"},
	{"Loan status", "Your loan application is being reviewed. You will receive an SMS once a decision is made, usually within 48 hours.", "loans"},
	{"Account locked", "For your security the account was temporarily locked. Please verify your ID number and registered phone number so we can unlock it.", "account"},
	{"Greeting", "Hello! Thank you for reaching out. How can we help you today?", "general"},
	{"Closing", "Is there anything else we can help you with? Thank you for contacting support.", "general"},
}

func newSeedCmd() *cobra.Command {
	var csvPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample agents and canned responses into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

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

			st := store.New(db)

			existing, err := st.ListAgents(ctx)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				fmt.Println("Database already has agents, skipping seed data")
			} else {
				for _, a := range seedAgents {
					if _, err := st.CreateAgent(ctx, a.name, a.email, a.status); err != nil {
						return fmt.Errorf("seeding agent %s: %w", a.email, err)
					}
				}
				for _, c := range seedCannedResponses {
					if _, err := st.CreateCannedResponse(ctx, c.title, c.content, c.category); err != nil {
						return fmt.Errorf("seeding canned response %q: %w", c.title, err)
					}
				}
				fmt.Printf("Seeded %d agents and %d canned responses\n",
					len(seedAgents), len(seedCannedResponses))
			}

			if csvPath != "" {
				sum, err := importer.New(st, log).ImportFile(ctx, csvPath)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d messages from %s\n", sum.MessagesCreated, csvPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "also import messages from a CSV export")

	return cmd
}
