// Package main implements railstub, an in-memory reservation worker for
// local demos and tests.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/amonks/rail/internal/workerstub"
	"github.com/amonks/rail/worker"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	stubAddr    string
	stubFetches int
	stubQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:          "railstub",
	Short:        "Serve a simulated reservation worker",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runStub,
}

func init() {
	rootCmd.Flags().StringVar(&stubAddr, "addr", fmt.Sprintf(":%d", worker.DefaultPort), "Listen address")
	rootCmd.Flags().IntVar(&stubFetches, "fetches", workerstub.DefaultFetchesToFinish, "Status fetches before a task finishes")
	rootCmd.Flags().BoolVarP(&stubQuiet, "quiet", "q", false, "Do not log requests")
}

func runStub(cmd *cobra.Command, _ []string) error {
	var out io.Writer = cmd.ErrOrStderr()
	if stubQuiet {
		out = io.Discard
	}
	server := workerstub.NewServer(workerstub.ServerOptions{
		FetchesToFinish: stubFetches,
		Logger:          log.New(out, "railstub: ", log.LstdFlags),
	})
	return server.Serve(stubAddr)
}
