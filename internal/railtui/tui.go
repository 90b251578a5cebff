// Package railtui is the terminal UI for searching trains and following a
// reservation task.
package railtui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amonks/rail/diaglog"
	"github.com/amonks/rail/internal/notify"
	internalstrings "github.com/amonks/rail/internal/strings"
	"github.com/amonks/rail/train"
	"github.com/amonks/rail/workflow"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const cancelTimeout = 10 * time.Second

// AccountLister loads the accounts a user can pick from.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]train.Account, error)
}

// Options configures Run.
type Options struct {
	// Feed must be the feed whose Publish was passed to the controller.
	Feed     *Feed
	Accounts AccountLister
	// Notifier, when enabled, receives a push for each task that succeeds.
	Notifier *notify.Notifier
}

type tabKind int

const (
	tabTrains tabKind = iota
	tabLog
)

type focusPane int

const (
	focusList focusPane = iota
	focusDetail
)

type modalKind int

const (
	modalNone modalKind = iota
	modalHelp
	modalReserve
	modalCancelTask
)

type model struct {
	ctx      context.Context
	ctrl     *workflow.Controller
	feed     *Feed
	accounts AccountLister
	notifier *notify.Notifier

	width     int
	height    int
	activeTab tabKind
	focus     focusPane

	session       workflow.Session
	accountList   []train.Account
	candidateList list.Model
	detail        detailModel
	log           logModel
	spinner       spinner.Model
	modal         confirmModal
	pending       train.Candidate
	notified      train.TaskID
}

type confirmModal struct {
	kind        modalKind
	message     string
	confirmText string
	cancelText  string
	selected    int
}

// Run drives ctrl from an interactive terminal until the user quits.
// Quitting stops local monitoring but leaves the remote task running.
func Run(ctx context.Context, ctrl *workflow.Controller, opts Options) error {
	if ctrl == nil {
		return fmt.Errorf("controller is required")
	}
	if opts.Feed == nil {
		return fmt.Errorf("feed is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	program := tea.NewProgram(newModel(ctx, ctrl, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	ctrl.StopWatching()
	return err
}

func newModel(ctx context.Context, ctrl *workflow.Controller, opts Options) model {
	candidateList := list.New(nil, newCandidateItemDelegate(), 0, 0)
	candidateList.Title = "Trains"
	candidateList.SetShowStatusBar(false)
	candidateList.SetFilteringEnabled(false)
	candidateList.SetShowHelp(false)
	candidateList.SetShowPagination(false)

	m := model{
		ctx:           ctx,
		ctrl:          ctrl,
		feed:          opts.Feed,
		accounts:      opts.Accounts,
		notifier:      opts.Notifier,
		activeTab:     tabTrains,
		focus:         focusList,
		candidateList: candidateList,
		detail:        newDetailModel(),
		log:           newLogModel(),
		spinner:       spinner.New(spinner.WithSpinner(spinner.Line)),
		modal:         confirmModal{kind: modalNone},
	}
	if ctrl != nil {
		m.applySession(ctrl.Session())
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadAccountsCmd(), m.waitForSessionCmd(), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.modal.kind != modalNone {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m.updateModal(msg)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.applySession(m.session)
		return m, nil
	case tea.KeyMsg:
		updated, cmd, handled := m.handleKey(msg)
		if handled {
			return updated, cmd
		}
		m = updated
	case sessionMsg:
		m.applySession(workflow.Session(msg))
		push := m.notifyCmd()
		return m, tea.Batch(m.waitForSessionCmd(), push)
	case accountsLoadedMsg:
		return m.handleAccountsLoaded(msg)
	case opDoneMsg:
		if msg.switchedMode {
			m.selectAccountForMode()
		}
		m.applySession(m.ctrl.Session())
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch {
	case m.activeTab == tabLog:
		m.log, cmd = m.log.Update(msg)
	case m.focus == focusDetail:
		m.detail, cmd = m.detail.Update(msg)
	default:
		m.candidateList, cmd = m.candidateList.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading rail UI..."
	}
	contentHeight := m.height - 3
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	if m.activeTab == tabLog {
		content = m.renderPane(m.log.View(), m.width, contentHeight, true)
	} else {
		leftWidth, rightWidth := splitWidths(m.width)
		listPane := m.renderPane(m.listView(), leftWidth, contentHeight, m.focus == focusList)
		detailPane := m.renderPane(m.detail.View(), rightWidth, contentHeight, m.focus == focusDetail)
		content = lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane)
	}

	view := strings.Join([]string{m.renderTabs(), m.renderHelpLine(), content, m.renderStatusLine()}, "\n")
	if m.modal.kind != modalNone {
		view = m.renderModalOverlay(view)
	}
	return view
}

func (m model) listView() string {
	if !m.session.Searched() {
		return valueMuted.Render("Press s to search")
	}
	if len(m.candidateList.Items()) == 0 {
		return valueMuted.Render("No trains")
	}
	return m.candidateList.View()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd, bool) {
	key := msg.String()
	switch key {
	case "?":
		m.modal = confirmModal{kind: modalHelp}
		return m, nil, true
	case "ctrl+c", "q":
		return m, tea.Quit, true
	case "1":
		return m.activateTab(tabTrains), nil, true
	case "2":
		return m.activateTab(tabLog), nil, true
	case "tab", "shift+tab", "backtab", "[", "]":
		if m.activeTab == tabLog {
			return m.activateTab(tabTrains), nil, true
		}
		return m.activateTab(tabLog), nil, true
	}
	if m.activeTab != tabTrains {
		return m, nil, false
	}

	switch key {
	case "esc":
		m.focus = focusList
		return m, nil, true
	case "enter":
		if m.focus == focusList {
			return m.promptReserve(), nil, true
		}
	case "s", "/":
		return m, m.searchCmd(), true
	case "x":
		return m.promptCancel(), nil, true
	case "m":
		return m, m.switchModeCmd(), true
	case "w":
		m.ctrl.SwapStations()
		return m, nil, true
	case "o":
		return m.cycleStation(true), nil, true
	case "d":
		return m.cycleStation(false), nil, true
	case "a":
		return m.cycleAccount(), nil, true
	case "left", "h":
		m.ctrl.ShiftDate(-1)
		return m, nil, true
	case "right", "l":
		m.ctrl.ShiftDate(1)
		return m, nil, true
	case ",":
		m.ctrl.ShiftTime(-1)
		return m, nil, true
	case ".":
		m.ctrl.ShiftTime(1)
		return m, nil, true
	case "v":
		if m.focus == focusList {
			m.focus = focusDetail
		} else {
			m.focus = focusList
		}
		return m, nil, true
	}
	return m, nil, false
}

func (m model) activateTab(target tabKind) model {
	m.activeTab = target
	m.focus = focusList
	return m
}

func (m model) promptReserve() model {
	candidate, ok := m.currentCandidate()
	if !ok {
		m.ctrl.Diagnostics().Infof("No train selected.")
		return m
	}
	m.pending = candidate
	m.modal = confirmModal{
		kind: modalReserve,
		message: fmt.Sprintf("Create a reservation task for %s %s at %s?",
			candidate.TrainType, candidate.TrainNo, train.FormatClock(candidate.DepTime)),
		confirmText: "Reserve",
		cancelText:  "Back",
		selected:    1,
	}
	return m
}

func (m model) promptCancel() model {
	if !m.session.Monitoring() {
		return m
	}
	m.modal = confirmModal{
		kind:        modalCancelTask,
		message:     fmt.Sprintf("Cancel reservation task %s?", m.session.TaskID),
		confirmText: "Cancel task",
		cancelText:  "Keep",
		selected:    1,
	}
	return m
}

func (m model) cycleStation(origin bool) model {
	stations := train.Stations(m.session.Mode)
	current := m.session.Destination
	if origin {
		current = m.session.Origin
	}
	next := stations[0]
	for i, station := range stations {
		if station.Name == current.Name {
			next = stations[(i+1)%len(stations)]
			break
		}
	}
	if origin {
		_ = m.ctrl.SetOrigin(next.Name)
	} else {
		_ = m.ctrl.SetDestination(next.Name)
	}
	return m
}

func (m model) cycleAccount() model {
	candidates := make([]train.Account, 0, len(m.accountList))
	for _, account := range m.accountList {
		if account.Type == "" || account.Type == m.session.Mode {
			candidates = append(candidates, account)
		}
	}
	if len(candidates) == 0 {
		candidates = m.accountList
	}
	if len(candidates) == 0 {
		return m
	}
	next := candidates[0]
	for i, account := range candidates {
		if account.ID == m.session.AccountID {
			next = candidates[(i+1)%len(candidates)]
			break
		}
	}
	_ = m.ctrl.SelectAccount(next.ID)
	return m
}

func (m model) updateModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.modal.kind == modalHelp {
		switch key.String() {
		case "?", "esc":
			m.modal = confirmModal{kind: modalNone}
			return m, nil
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil
	}
	switch key.String() {
	case "left", "right", "tab", "shift+tab", "backtab":
		m.modal.selected = 1 - m.modal.selected
		return m, nil
	case "enter":
		return m.resolveModal(m.modal.selected == 0)
	case "esc":
		return m.resolveModal(false)
	}
	return m, nil
}

func (m model) resolveModal(confirm bool) (tea.Model, tea.Cmd) {
	kind := m.modal.kind
	m.modal = confirmModal{kind: modalNone}
	if !confirm {
		return m, nil
	}
	switch kind {
	case modalReserve:
		return m, m.reserveCmd(m.pending)
	case modalCancelTask:
		return m, m.cancelCmd()
	default:
		return m, nil
	}
}

func (m model) currentCandidate() (train.Candidate, bool) {
	item := m.candidateList.SelectedItem()
	if item == nil {
		return train.Candidate{}, false
	}
	current, ok := item.(candidateItem)
	return current.candidate, ok
}

// applySession refreshes every view from a controller snapshot.
func (m *model) applySession(session workflow.Session) {
	previous := m.session.Candidates
	m.session = session
	if !sameCandidates(previous, session.Candidates) {
		items := make([]list.Item, 0, len(session.Candidates))
		for _, candidate := range session.Candidates {
			items = append(items, candidateItem{candidate: candidate})
		}
		m.candidateList.SetItems(items)
		if len(items) > 0 {
			m.candidateList.Select(0)
		}
	}
	m.detail.SetSession(session, m.accountLabel(session.AccountID))
	if m.ctrl != nil {
		m.log.Append(m.ctrl.Diagnostics().Since(m.log.lastSeq))
	}
}

func sameCandidates(a, b []train.Candidate) bool {
	if (a == nil) != (b == nil) || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m model) accountLabel(id int64) string {
	if id == 0 {
		return "none (press a)"
	}
	for _, account := range m.accountList {
		if account.ID == id {
			return fmt.Sprintf("%d (%s)", account.ID, account.Username)
		}
	}
	return fmt.Sprintf("%d", id)
}

func (m model) handleAccountsLoaded(msg accountsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.ctrl.Diagnostics().Errorf("Failed to load accounts: %v", msg.err)
		m.applySession(m.ctrl.Session())
		return m, nil
	}
	m.accountList = msg.accounts
	if m.session.AccountID == 0 {
		m.selectAccountForMode()
	}
	m.applySession(m.ctrl.Session())
	return m, nil
}

// selectAccountForMode picks the first loaded account of the session's mode
// unless the current account already matches it.
func (m model) selectAccountForMode() {
	session := m.ctrl.Session()
	for _, account := range m.accountList {
		if account.ID == session.AccountID && account.Type == session.Mode {
			return
		}
	}
	for _, account := range m.accountList {
		if account.Type == session.Mode {
			_ = m.ctrl.SelectAccount(account.ID)
			return
		}
	}
}

func (m *model) resize() {
	contentHeight := m.height - 3
	if contentHeight < 1 {
		contentHeight = 1
	}
	leftWidth, rightWidth := splitWidths(m.width)
	listHeight := contentHeight - 2
	if listHeight < 1 {
		listHeight = 1
	}
	listWidth := leftWidth - 4
	if listWidth < 1 {
		listWidth = 1
	}
	innerDetailWidth := rightWidth - 4
	if innerDetailWidth < 1 {
		innerDetailWidth = 1
	}
	innerLogWidth := m.width - 4
	if innerLogWidth < 1 {
		innerLogWidth = 1
	}
	m.candidateList.SetSize(listWidth, listHeight)
	m.detail.SetSize(innerDetailWidth, listHeight)
	m.log.SetSize(innerLogWidth, listHeight)
}

func splitWidths(width int) (int, int) {
	left := width * 2 / 5
	if left < 36 {
		left = 36
	}
	if left > width-20 {
		left = width / 2
	}
	right := width - left
	if right < 20 {
		right = 20
		left = width - right
	}
	return left, right
}

func (m model) renderTabs() string {
	labels := []string{"[1] Trains", "[2] Log"}
	parts := make([]string, 0, len(labels))
	for i, label := range labels {
		style := tabInactiveStyle
		if tabKind(i) == m.activeTab {
			style = tabActiveStyle
		}
		parts = append(parts, style.Render(label))
	}
	content := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	helpHint := valueMuted.Render("Press ? for help")
	spacerWidth := m.width - lipgloss.Width(content) - lipgloss.Width(helpHint)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	return tabBarStyle.Width(m.width).Render(content + strings.Repeat(" ", spacerWidth) + helpHint)
}

func (m model) renderPane(content string, width, height int, focused bool) string {
	style := paneStyle
	if focused {
		style = paneActiveStyle
	}
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return style.Width(width).Height(height).Render(content)
}

func (m model) renderStatusLine() string {
	text := m.session.Message
	prefix := ""
	if m.session.Busy || m.session.Monitoring() {
		prefix = m.spinner.View() + " "
	}
	if internalstrings.IsBlank(text) {
		if prefix == "" {
			return ""
		}
		return prefix
	}
	style := statusInfoStyle
	switch m.session.MessageLevel {
	case diaglog.LevelError:
		style = statusErrorStyle
	case diaglog.LevelSuccess:
		style = statusSuccessStyle
	}
	return prefix + style.Render(truncateText(text, m.width-lipgloss.Width(prefix)))
}

func (m model) renderHelpLine() string {
	text := internalstrings.TrimSpace(m.helpSummary())
	if text == "" {
		return ""
	}
	return helpBarStyle.Width(m.width).Render(truncateText(text, m.width))
}

func (m model) helpSummary() string {
	if m.activeTab == tabLog {
		return "Keys: up/down/pgup/pgdown scroll | tab trains | ? help | q quit"
	}
	if m.session.Monitoring() {
		return "Keys: x cancel task | v scroll task | tab log | ? help | q quit"
	}
	return "Keys: s search | enter reserve | m mode | o/d stations | w swap | h/l date | ,/. time | a account | ? help"
}

func (m model) renderModalOverlay(content string) string {
	if m.modal.kind == modalNone {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.modalView())
}

func (m model) modalView() string {
	modalStyle := lipgloss.NewStyle().Border(borderASCII).Padding(1, 2)
	if m.modal.kind == modalHelp {
		return modalStyle.Render(m.helpContent())
	}
	options := []string{m.modal.confirmText, m.modal.cancelText}
	buttons := make([]string, 0, len(options))
	for i, option := range options {
		style := valueMuted
		if i == m.modal.selected {
			style = selectedBorder
		}
		buttons = append(buttons, style.Render("["+option+"]"))
	}
	return modalStyle.Render(strings.Join([]string{m.modal.message, "", strings.Join(buttons, " ")}, "\n"))
}

func (m model) helpContent() string {
	sections := []string{
		labelStyle.Render("Global"),
		"q or ctrl+c: quit (the remote task keeps running)",
		"1 or 2 / tab: switch tabs",
		"?: toggle help",
		"",
		labelStyle.Render("Search"),
		"m: switch KTX/SRT",
		"o / d: next departure / arrival station",
		"w: swap stations",
		"h/l or left/right: previous / next day",
		", / .: one hour earlier / later",
		"a: next account",
		"s or /: search",
		"",
		labelStyle.Render("Reservation"),
		"up/down or j/k: choose a train",
		"enter: create a reservation task",
		"x: cancel the monitored task",
		"v: toggle focus to scroll the task pane",
		"",
		labelStyle.Render("Help"),
		"press ? or esc to close",
	}
	return strings.Join(sections, "\n")
}

func (m model) waitForSessionCmd() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	feed := m.feed
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case session := <-feed.C():
			return sessionMsg(session)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m model) loadAccountsCmd() tea.Cmd {
	if m.accounts == nil {
		return nil
	}
	return func() tea.Msg {
		accounts, err := m.accounts.ListAccounts(m.ctx)
		return accountsLoadedMsg{accounts: accounts, err: err}
	}
}

func (m model) searchCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		_, err := ctrl.Search(ctx)
		return opDoneMsg{err: err}
	}
}

func (m model) reserveCmd(candidate train.Candidate) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		_, err := ctrl.Reserve(ctx, candidate)
		return opDoneMsg{err: err}
	}
}

func (m model) cancelCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		cancelCtx, cancel := context.WithTimeout(ctx, cancelTimeout)
		defer cancel()
		_, err := ctrl.CancelActiveTask(cancelCtx)
		return opDoneMsg{err: err}
	}
}

func (m model) switchModeCmd() tea.Cmd {
	ctrl := m.ctrl
	next := train.ModeSRT
	if m.session.Mode == train.ModeSRT {
		next = train.ModeKTX
	}
	return func() tea.Msg {
		err := ctrl.SwitchMode(next)
		return opDoneMsg{err: err, switchedMode: err == nil}
	}
}

// notifyCmd pushes a notification once per task that finished successfully.
func (m *model) notifyCmd() tea.Cmd {
	task := m.session.Task
	if !m.notifier.Enabled() || task == nil || task.Status != train.StatusSuccess || m.notified == task.ID {
		return nil
	}
	m.notified = task.ID
	notifier, ctx, mode, finished := m.notifier, m.ctx, m.session.Mode, *task
	diag := m.ctrl.Diagnostics()
	return func() tea.Msg {
		pushCtx, cancel := context.WithTimeout(ctx, cancelTimeout)
		defer cancel()
		if err := notifier.TaskFinished(pushCtx, mode, finished); err != nil && !errors.Is(err, context.Canceled) {
			diag.Errorf("Failed to send push notification: %v", err)
		}
		return nil
	}
}

type sessionMsg workflow.Session

type accountsLoadedMsg struct {
	accounts []train.Account
	err      error
}

type opDoneMsg struct {
	err          error
	switchedMode bool
}
