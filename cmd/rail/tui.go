package main

import (
	"os"
	"os/signal"

	"github.com/amonks/rail/internal/railtui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Search and reserve interactively",
	Long:  "Search and reserve interactively. Quitting stops local monitoring; the worker keeps running any task.",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

var tuiCriteria criteriaFlags

func init() {
	rootCmd.AddCommand(tuiCmd)
	tuiCriteria.register(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	feed := railtui.NewFeed()
	ctrl, err := newController(feed.Publish)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := tuiCriteria.apply(cmd, ctrl); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	return railtui.Run(ctx, ctrl, railtui.Options{
		Feed:     feed,
		Accounts: newClient(),
		Notifier: newNotifier(),
	})
}
