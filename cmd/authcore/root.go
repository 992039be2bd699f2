package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the authcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authcore",
		Short: "authcore - account authentication service",
		Long: `authcore registers identities, authenticates logins, and issues short-lived
access tokens with single-use refresh tokens.`,
		SilenceUsage: true,
	}

	bindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
