package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var reserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Search, create a reservation task for one train, and watch it",
	Long: "Search with the given criteria, create a reservation task for the train chosen with --train, " +
		"and watch it until it finishes. Interrupting the watch cancels the task.",
	Args: cobra.NoArgs,
	RunE: runReserve,
}

var (
	reserveCriteria criteriaFlags
	reserveTrain    string
	reserveNoWatch  bool
)

func init() {
	rootCmd.AddCommand(reserveCmd)
	reserveCriteria.register(reserveCmd)
	reserveCmd.Flags().StringVar(&reserveTrain, "train", "", "Train to reserve: list index, train number, or train id")
	reserveCmd.Flags().BoolVar(&reserveNoWatch, "no-watch", false, "Print the task id and exit without watching")
	_ = reserveCmd.MarkFlagRequired("train")
}

func runReserve(cmd *cobra.Command, _ []string) error {
	changes := make(chan struct{}, 1)
	ctrl, err := newController(signalChange(changes))
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := reserveCriteria.apply(cmd, ctrl); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	candidates, err := ctrl.Search(ctx)
	if err != nil {
		return sessionError(ctrl, err)
	}
	if len(candidates) == 0 {
		return &exitError{code: 1, message: ctrl.Session().Message}
	}
	candidate, err := selectCandidate(candidates, reserveTrain)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	since := ctrl.Diagnostics().LastSeq()
	id, err := ctrl.Reserve(ctx, candidate)
	if err != nil {
		return sessionError(ctrl, err)
	}
	if reserveNoWatch {
		ctrl.StopWatching()
		fmt.Fprintln(out, id)
		return nil
	}
	return followTask(ctx, out, ctrl, changes, since)
}
