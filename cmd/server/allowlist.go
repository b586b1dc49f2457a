package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yukikurage/task-approval-api/internal/database"
	"github.com/yukikurage/task-approval-api/internal/models"
	"github.com/yukikurage/task-approval-api/internal/repository"
	"github.com/yukikurage/task-approval-api/internal/services"
)

var allowlistCmd = &cobra.Command{
	Use:   "allowlist",
	Short: "Manage the sign-up allow-list",
}

var allowlistRole string

// allowlistAddCmd is how the first CEO gets an account: there is no session
// yet that could call the admin endpoint.
var allowlistAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Allow an email to sign up with a role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		db, err := database.Open(cfg, log)
		if err != nil {
			return err
		}
		if err := database.Migrate(db, log); err != nil {
			return err
		}

		team := services.NewTeamService(repository.NewProfileRepository(db), repository.NewAllowedEmailRepository(db), log)
		entry, err := team.SeedAllowedEmail(cmd.Context(), nil, services.AllowEmailInput{
			Email: args[0],
			Role:  models.Role(allowlistRole),
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s may now sign up as %s\n", entry.Email, entry.Role)
		return nil
	},
}

func init() {
	allowlistAddCmd.Flags().StringVar(&allowlistRole, "role", string(models.RoleCEO), "role granted on sign-up (ceo, team_member, super_admin)")
	allowlistCmd.AddCommand(allowlistAddCmd)
	rootCmd.AddCommand(allowlistCmd)
}
