package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the referral backend CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referral-auth",
		Short: "Referral auth backend",
		Long: `Referral auth backend serves user registration, login, password
reset by email and referral tracking over a JSON HTTP API.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
