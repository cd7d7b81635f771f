// Command tasksync is the task manager CLI: offline-first task and group
// management with optional cloud synchronization.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonahr4/taskapp-sync/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tasksync",
	Short: "Offline-first task manager with cloud sync",
	Long: `tasksync manages tasks and task groups on this device and, once
signed in, keeps them synchronized with your account in the cloud.

All commands work offline. Changes made while the remote is unreachable
are marked pending and replayed automatically by the daemon (or the next
successful command) once connectivity returns.`,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.Path(), "config file location")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(signinCmd)
	rootCmd.AddCommand(signoutCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(settingsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
