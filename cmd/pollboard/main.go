// Package main is the entry point for the pollboard CLI.
//
// PollBoard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	pollboard serve -c config.yaml           # Start the dashboard
//	pollboard watch --url URL                # Poll one source in the terminal
//	pollboard validate -c config.yaml        # Validate configuration
//	pollboard version                        # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "pollboard",
	Short: "Keep polled status lists on screen",
	Long: `PollBoard polls JSON status lists on a fixed period and keeps them on
screen, either as a live web dashboard or directly in the terminal.

Quick start:
  1. Create a config file (pollboard.yaml)
  2. Run: pollboard serve -c pollboard.yaml
  3. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 3s
  widgets:
    - region: drone-status-list
      name: Drones
      url: http://localhost:9999/drones/status`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pollboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pollboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
