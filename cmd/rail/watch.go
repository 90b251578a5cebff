package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/amonks/rail/diaglog"
	"github.com/amonks/rail/internal/ui"
	"github.com/amonks/rail/train"
	"github.com/amonks/rail/workflow"
	"github.com/spf13/cobra"
)

const cancelTimeout = 10 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch <task-id>",
	Short: "Follow a reservation task until it finishes",
	Long:  "Follow a reservation task until it finishes. Interrupting the watch cancels the task.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var watchMode string

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchMode, "mode", "m", "", "Operator used in notifications (KTX, SRT)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	id, err := train.ParseTaskID(args[0])
	if err != nil {
		return err
	}

	changes := make(chan struct{}, 1)
	ctrl, err := newController(signalChange(changes))
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if watchMode != "" {
		mode, err := train.ParseMode(watchMode)
		if err != nil {
			return err
		}
		if err := ctrl.SwitchMode(mode); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	since := ctrl.Diagnostics().LastSeq()
	if err := ctrl.Watch(ctx, id); err != nil {
		return err
	}
	return followTask(ctx, cmd.OutOrStdout(), ctrl, changes, since)
}

// signalChange returns an OnChange callback that never blocks.
func signalChange(changes chan<- struct{}) func(workflow.Session) {
	return func(workflow.Session) {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
}

// followTask prints diagnostics until the monitored task finishes. When ctx
// is cancelled first, the task is cancelled on the worker.
func followTask(ctx context.Context, out io.Writer, ctrl *workflow.Controller, changes <-chan struct{}, since uint64) error {
	printEntries := func() {
		for _, entry := range ctrl.Diagnostics().Since(since) {
			fmt.Fprintln(out, formatEntry(entry))
			since = entry.Seq
		}
	}

	for {
		printEntries()
		session := ctrl.Session()
		if !session.Monitoring() {
			return finishFollow(ctx, out, session)
		}

		select {
		case <-changes:
		case <-ctx.Done():
			cancelCtx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
			message, err := ctrl.CancelActiveTask(cancelCtx)
			cancel()
			printEntries()
			if err != nil {
				if errors.Is(err, workflow.ErrNoActiveTask) {
					return finishFollow(ctx, out, ctrl.Session())
				}
				return sessionError(ctrl, err)
			}
			fmt.Fprintln(out, message)
			return &exitError{code: 130, message: "interrupted"}
		}
	}
}

func finishFollow(ctx context.Context, out io.Writer, session workflow.Session) error {
	if session.Task == nil || !session.Task.Status.Terminal() {
		if session.MessageLevel == diaglog.LevelError {
			return &exitError{code: 1, message: session.Message}
		}
		return fmt.Errorf("stopped watching before the task finished")
	}

	task := *session.Task
	fmt.Fprintln(out, session.Message)
	if task.Status != train.StatusSuccess {
		return &exitError{code: 1, message: fmt.Sprintf("task %s finished with status %s", task.ID, task.Status)}
	}
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if err := newNotifier().TaskFinished(notifyCtx, session.Mode, task); err != nil {
		warnf("%v", err)
	}
	return nil
}

func formatEntry(entry diaglog.Entry) string {
	line := entry.String()
	if ui.ColorEnabled() {
		switch entry.Level {
		case diaglog.LevelSuccess:
			line = ui.LogLevelStyle(train.LogSuccess).Render(line)
		case diaglog.LevelError:
			line = ui.LogLevelStyle(train.LogError).Render(line)
		}
	}
	return ui.WrapIndent(line, ui.TerminalWidth(100), len("[15:04:05] "))
}
