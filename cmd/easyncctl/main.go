// Command easyncctl is the single operator entry point for the
// replication plane: it can run any of the three long-lived services
// itself, issue admin state transitions against the registry, or open
// the live operator dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "easyncctl",
	Short: "Operate the EASync replication plane",
}

func init() {
	rootCmd.AddCommand(serveGatewayCmd)
	rootCmd.AddCommand(serveFanoutCmd)
	rootCmd.AddCommand(serveTrustLoopCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(dashboardCmd)

	adminCmd.AddCommand(adminSuspendCmd)
	adminCmd.AddCommand(adminResumeCmd)
}

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Apply administrative state transitions to a subscription",
}
