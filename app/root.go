// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "go-sso-gateway",
	Short: "go-sso-gateway is a trusted-header authentication gateway",
	Long: `go-sso-gateway authenticates requests from identity headers injected
by a trusted reverse proxy, provisions local user records on first login and
keeps sessions consistent with the asserted identity and roles.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
