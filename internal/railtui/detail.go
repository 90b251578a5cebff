package railtui

import (
	"fmt"
	"strings"

	"github.com/amonks/rail/diaglog"
	"github.com/amonks/rail/internal/ui"
	"github.com/amonks/rail/train"
	"github.com/amonks/rail/workflow"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// detailModel shows the search selections and the monitored task.
type detailModel struct {
	viewport viewport.Model
	width    int
}

func newDetailModel() detailModel {
	return detailModel{viewport: viewport.New(0, 0)}
}

func (model *detailModel) SetSize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	model.width = width
	model.viewport.Width = width
	model.viewport.Height = height
}

func (model *detailModel) SetSession(session workflow.Session, account string) {
	stickToBottom := model.viewport.AtBottom()
	model.viewport.SetContent(renderSession(session, account, model.width))
	if stickToBottom {
		model.viewport.GotoBottom()
	}
}

func (model detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	model.viewport, _ = model.viewport.Update(msg)
	return model, nil
}

func (model detailModel) View() string {
	return model.viewport.View()
}

func renderSession(session workflow.Session, account string, width int) string {
	date := "-"
	if session.Date != "" {
		date = train.FormatDate(session.Date)
	}
	lines := []string{
		labelStyle.Render("Search"),
		fmt.Sprintf("Mode: %s  Account: %s", session.Mode, account),
		fmt.Sprintf("Route: %s -> %s", session.Origin, session.Destination),
		fmt.Sprintf("Date: %s  From: %s", date, train.FormatClock(session.Time)),
		"",
	}

	task := session.Task
	if task == nil {
		lines = append(lines, valueMuted.Render("No reservation task"))
		return strings.Join(lines, "\n")
	}

	heading := fmt.Sprintf("Task %s", task.ID)
	if session.Monitoring() {
		heading += " (monitoring)"
	}
	lines = append(lines,
		labelStyle.Render(heading),
		"Status: "+ui.FormatStatus(task.Status),
	)
	if task.DepStation != "" {
		lines = append(lines, fmt.Sprintf("Train: %s %s -> %s at %s",
			task.SelectedTrainType, task.DepStation, task.ArrStation, train.FormatClock(task.SelectedDepTime)))
	}
	lines = append(lines, "")
	if len(task.Logs) == 0 {
		lines = append(lines, valueMuted.Render("No worker logs yet"))
		return strings.Join(lines, "\n")
	}
	for _, entry := range task.Logs {
		stamp := "--:--:--"
		if parsed, ok := entry.Timestamp(); ok {
			stamp = ui.FormatClock(parsed)
		}
		line := fmt.Sprintf("[%s] %s: %s", stamp, entry.Level, entry.Message)
		lines = append(lines, ui.LogLevelStyle(entry.Level).Render(ui.WrapIndent(line, width, len("[15:04:05] "))))
	}
	return strings.Join(lines, "\n")
}

// logModel shows the diagnostic log.
type logModel struct {
	viewport viewport.Model
	width    int
	lastSeq  uint64
	lines    []string
}

func newLogModel() logModel {
	return logModel{viewport: viewport.New(0, 0)}
}

func (model *logModel) SetSize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	model.width = width
	model.viewport.Width = width
	model.viewport.Height = height
}

// Append adds entries newer than the last one shown.
func (model *logModel) Append(entries []diaglog.Entry) {
	added := false
	for _, entry := range entries {
		if entry.Seq <= model.lastSeq {
			continue
		}
		model.lastSeq = entry.Seq
		model.lines = append(model.lines, renderEntry(entry, model.width))
		added = true
	}
	if !added {
		return
	}
	stickToBottom := model.viewport.AtBottom()
	model.viewport.SetContent(strings.Join(model.lines, "\n"))
	if stickToBottom {
		model.viewport.GotoBottom()
	}
}

func (model logModel) Update(msg tea.Msg) (logModel, tea.Cmd) {
	model.viewport, _ = model.viewport.Update(msg)
	return model, nil
}

func (model logModel) View() string {
	if len(model.lines) == 0 {
		return valueMuted.Render("No events yet")
	}
	return model.viewport.View()
}

func renderEntry(entry diaglog.Entry, width int) string {
	line := ui.WrapIndent(entry.String(), width, len("[15:04:05] "))
	switch entry.Level {
	case diaglog.LevelError:
		return statusErrorStyle.Render(line)
	case diaglog.LevelSuccess:
		return statusSuccessStyle.Render(line)
	default:
		return line
	}
}
