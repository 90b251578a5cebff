package railtui

import (
	"fmt"
	"io"
	"strings"

	"github.com/amonks/rail/internal/ui"
	"github.com/amonks/rail/train"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type candidateItem struct {
	candidate train.Candidate
}

func (item candidateItem) FilterValue() string {
	return item.candidate.TrainNo
}

type candidateItemDelegate struct {
	normalStyle   lipgloss.Style
	soldOutStyle  lipgloss.Style
	selectedStyle lipgloss.Style
}

func newCandidateItemDelegate() candidateItemDelegate {
	return candidateItemDelegate{
		normalStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		soldOutStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")),
	}
}

func (d candidateItemDelegate) Height() int                             { return 1 }
func (d candidateItemDelegate) Spacing() int                            { return 0 }
func (d candidateItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d candidateItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(candidateItem)
	if !ok {
		return
	}

	line := formatCandidate(item.candidate, m.Width())
	style := d.normalStyle
	if !item.candidate.Reservable() {
		style = d.soldOutStyle
	}
	if index == m.Index() {
		style = d.selectedStyle
	}
	fmt.Fprint(w, style.Render(line))
}

func formatCandidate(c train.Candidate, width int) string {
	line := fmt.Sprintf("%s %s-%s  %s  %s",
		ui.PadRight(c.TrainType, 8),
		train.FormatClock(c.DepTime),
		train.FormatClock(c.ArrTime),
		formatFare(c.Fare),
		seatLabel(c))
	return truncateText(line, width)
}

func seatLabel(c train.Candidate) string {
	if !c.Reservable() {
		return "매진"
	}
	var classes []string
	if c.GeneralSeatAvailable {
		classes = append(classes, string(train.SeatGeneral))
	}
	if c.SpecialSeatAvailable {
		classes = append(classes, string(train.SeatSpecial))
	}
	if len(classes) == 0 {
		return "-"
	}
	return strings.Join(classes, ",")
}

func formatFare(fare float64) string {
	return fmt.Sprintf("%d원", int64(fare))
}

func truncateText(value string, width int) string {
	if width <= 0 {
		return value
	}
	return runewidth.Truncate(value, width, "...")
}
