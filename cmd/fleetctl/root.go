package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	accountID string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "CLI for the fleet registry server",
	Long: `fleetctl manages accounts, drivers, vehicles and their associations on a
fleet registry server.

Most commands act on behalf of one tenant account. The account is taken from
--account, or from the FLEET_ACCOUNT_ID environment variable.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Fleet registry server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVarP(&accountID, "account", "a", "", "Tenant account id (default: from FLEET_ACCOUNT_ID env)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Bearer token for servers in JWT tenancy mode")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(driversCmd)
	rootCmd.AddCommand(vehiclesCmd)
	rootCmd.AddCommand(driverAssocCmd)
	rootCmd.AddCommand(vehicleAssocCmd)
}

// resolvedAccount returns the effective account id.
// Priority: --account flag > FLEET_ACCOUNT_ID env var.
func resolvedAccount() string {
	if accountID != "" {
		return accountID
	}
	return os.Getenv("FLEET_ACCOUNT_ID")
}
