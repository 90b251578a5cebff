package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/amonks/rail/internal/markdown"
	internalstrings "github.com/amonks/rail/internal/strings"
	"github.com/amonks/rail/internal/ui"
	"github.com/amonks/rail/train"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show a reservation task once",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := train.ParseTaskID(args[0])
	if err != nil {
		return err
	}
	task, err := newClient().FetchStatus(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statusJSON {
		return encodeJSON(out, task)
	}
	rendered := markdown.SafeRender(ui.TerminalWidth(80), 0, []byte(taskReport(task, time.Now())))
	fmt.Fprintln(out, internalstrings.TrimTrailingWhitespace(string(rendered)))
	return nil
}

// taskReport describes a task snapshot as markdown.
func taskReport(task train.Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Task %s\n\n", task.ID)
	fmt.Fprintf(&b, "- Status: %s\n", task.Status)
	fmt.Fprintf(&b, "- Active: %s\n", yesNo(task.IsActive))
	fmt.Fprintf(&b, "- Route: %s -> %s\n", task.DepStation, task.ArrStation)
	if task.SelectedTrainType != "" || task.SelectedDepTime != "" {
		fmt.Fprintf(&b, "- Train: %s at %s\n", task.SelectedTrainType, train.FormatClock(task.SelectedDepTime))
	}
	if task.Date != "" {
		fmt.Fprintf(&b, "- Date: %s\n", train.FormatDate(task.Date))
	}
	if updated, ok := lastLogTime(task.Logs); ok {
		fmt.Fprintf(&b, "- Last update: %s\n", ui.FormatTimeAgo(updated, now))
	}

	b.WriteString("\n## Logs\n\n")
	if len(task.Logs) == 0 {
		b.WriteString("No log entries yet.\n")
		return b.String()
	}
	for _, entry := range task.Logs {
		stamp := entry.CreatedAt
		if parsed, ok := entry.Timestamp(); ok {
			stamp = ui.FormatClock(parsed)
		}
		fmt.Fprintf(&b, "- %s %s: %s\n", stamp, entry.Level, entry.Message)
	}
	return b.String()
}

func lastLogTime(logs []train.LogEntry) (time.Time, bool) {
	var latest time.Time
	for _, entry := range logs {
		if parsed, ok := entry.Timestamp(); ok && parsed.After(latest) {
			latest = parsed
		}
	}
	return latest, !latest.IsZero()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
