// Package main implements the rail CLI tool.
package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "rail",
	Short:        "Search trains and run reservation tasks against a worker",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadSettings()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalURL, "url", "", "Worker URL (default $RAIL_WORKER_URL or config)")
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "Log worker requests to stderr")
}
