package ui

import (
	"os"

	"github.com/amonks/rail/train"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	statusPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	statusRunningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	statusSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	statusFailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	statusStoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// ColorEnabled reports whether stdout should receive ANSI styling.
func ColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// StatusStyle returns the style used for a task status.
func StatusStyle(status train.Status) lipgloss.Style {
	switch status {
	case train.StatusPending:
		return statusPendingStyle
	case train.StatusRunning:
		return statusRunningStyle
	case train.StatusSuccess:
		return statusSuccessStyle
	case train.StatusFailed:
		return statusFailedStyle
	case train.StatusStopped:
		return statusStoppedStyle
	default:
		return lipgloss.NewStyle()
	}
}

// FormatStatus renders a status label, styled when color is enabled.
func FormatStatus(status train.Status) string {
	label := string(status)
	if label == "" {
		label = "-"
	}
	if !ColorEnabled() {
		return label
	}
	return StatusStyle(status).Render(label)
}

// LogLevelStyle returns the style used for a worker log level.
func LogLevelStyle(level train.LogLevel) lipgloss.Style {
	switch level {
	case train.LogSuccess:
		return statusSuccessStyle
	case train.LogError:
		return statusFailedStyle
	default:
		return lipgloss.NewStyle()
	}
}

// TerminalWidth returns the width of stdout, or fallback when it is not a
// terminal.
func TerminalWidth(fallback int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
