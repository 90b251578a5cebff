// Package monitor polls the worker for the status of one reservation task at
// a time until the task finishes, fails, or is cancelled.
//
// A Monitor moves Idle -> Monitoring(id) -> Terminating -> Idle. While
// Monitoring it fetches the task once immediately and then once per interval,
// never with two fetches in flight. Snapshots reach the Observer in the order
// they were fetched; after Start, Stop, or Cancel return, no snapshot from a
// torn-down episode is delivered.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/amonks/rail/train"
)

const (
	// DefaultInterval is the polling cadence.
	DefaultInterval = time.Second
	// DefaultPollTimeout bounds a single status fetch.
	DefaultPollTimeout = 10 * time.Second
)

var (
	// ErrBusy indicates a different task is already being monitored.
	ErrBusy = errors.New("another task is being monitored")
	// ErrNotMonitoring indicates no task is being monitored.
	ErrNotMonitoring = errors.New("no task is being monitored")
	// ErrUnrecognizedStatus indicates the worker reported a status outside the known set.
	ErrUnrecognizedStatus = errors.New("unrecognized status")
)

// State is the monitor lifecycle state.
type State int

const (
	Idle State = iota
	Monitoring
	Terminating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Monitoring:
		return "monitoring"
	case Terminating:
		return "terminating"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Gateway is the remote task API the monitor polls.
type Gateway interface {
	FetchStatus(ctx context.Context, id train.TaskID) (train.Task, error)
	RequestCancel(ctx context.Context, id train.TaskID) (string, error)
}

// Update is one fetched snapshot.
type Update struct {
	Task train.Task
	// NewLogs holds log entries not present in the previous snapshot.
	NewLogs []train.LogEntry
	// Poll counts fetches within the episode, starting at 1.
	Poll int
}

// Observer receives monitor notifications. Calls are serialized and happen on
// the monitor's goroutine; implementations must not call Start, Stop, or
// Cancel synchronously.
type Observer interface {
	Snapshot(Update)
	Finished(train.Task)
	Failed(id train.TaskID, err error)
}

// Options configures a Monitor.
type Options struct {
	Interval    time.Duration
	PollTimeout time.Duration
	Logger      *log.Logger
}

// CancelResult describes a successful cancellation.
type CancelResult struct {
	// Task is the snapshot callers should display. When Applied it is the
	// last known snapshot marked inactive and STOPPED.
	Task train.Task
	// Message is the worker's reply.
	Message string
	// Applied is false when the episode had already ended while the cancel
	// request was in flight.
	Applied bool
}

// Monitor tracks at most one task.
type Monitor struct {
	gateway     Gateway
	observer    Observer
	interval    time.Duration
	pollTimeout time.Duration
	logger      *log.Logger

	// deliverMu is held while notifying the observer and while tearing an
	// episode down. Lock order: deliverMu, then mu.
	deliverMu sync.Mutex

	mu      sync.Mutex
	state   State
	episode *episode
	last    train.Task
}

type episode struct {
	id     train.TaskID
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle monitor.
func New(gateway Gateway, observer Observer, opts Options) *Monitor {
	if observer == nil {
		observer = noopObserver{}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Monitor{
		gateway:     gateway,
		observer:    observer,
		interval:    interval,
		pollTimeout: pollTimeout,
		logger:      logger,
	}
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ActiveID returns the monitored task identifier.
func (m *Monitor) ActiveID() (train.TaskID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.episode == nil {
		return 0, false
	}
	return m.episode.id, true
}

// Start begins monitoring id. Starting the task already being monitored is a
// no-op; starting a different one fails with ErrBusy. Monitoring ends when ctx
// is done, without notifying the observer.
func (m *Monitor) Start(ctx context.Context, id train.TaskID) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", train.ErrInvalidTaskID, id)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.episode != nil {
		if m.episode.id == id {
			return nil
		}
		return fmt.Errorf("%w: task %s", ErrBusy, m.episode.id)
	}

	episodeCtx, cancel := context.WithCancel(ctx)
	ep := &episode{id: id, parent: ctx, ctx: episodeCtx, cancel: cancel, done: make(chan struct{})}
	m.episode = ep
	m.state = Monitoring
	m.last = train.Task{ID: id}
	m.logf("monitoring task %s", id)
	go m.run(ep)
	return nil
}

// Stop ends monitoring locally without contacting the worker and waits for
// any in-flight fetch to be abandoned.
func (m *Monitor) Stop() {
	m.deliverMu.Lock()
	m.mu.Lock()
	ep := m.episode
	if ep != nil {
		m.logf("stopped monitoring task %s", ep.id)
		m.teardownLocked()
	}
	m.mu.Unlock()
	m.deliverMu.Unlock()

	if ep != nil {
		<-ep.done
	}
}

// Cancel asks the worker to stop the monitored task. On success monitoring
// ends immediately. On failure monitoring continues and the error is returned.
func (m *Monitor) Cancel(ctx context.Context) (CancelResult, error) {
	m.mu.Lock()
	ep := m.episode
	m.mu.Unlock()
	if ep == nil {
		return CancelResult{}, ErrNotMonitoring
	}

	message, err := m.gateway.RequestCancel(ctx, ep.id)
	if err != nil {
		m.logf("cancel task %s failed: %v", ep.id, err)
		return CancelResult{}, err
	}

	m.deliverMu.Lock()
	m.mu.Lock()
	result := CancelResult{Message: message, Task: m.last}
	if m.episode == ep {
		result.Applied = true
		result.Task = m.last.Stopped()
		m.teardownLocked()
	}
	if result.Task.ID == 0 {
		result.Task.ID = ep.id
	}
	m.mu.Unlock()
	m.deliverMu.Unlock()

	<-ep.done
	m.logf("cancelled task %s: %s", ep.id, message)
	return result, nil
}

// teardownLocked requires deliverMu and mu.
func (m *Monitor) teardownLocked() {
	if m.episode == nil {
		return
	}
	m.episode.cancel()
	m.episode = nil
	m.state = Idle
}

func (m *Monitor) run(ep *episode) {
	defer close(ep.done)

	seen := 0
	if !m.poll(ep, 1, &seen) {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for poll := 2; ; poll++ {
		select {
		case <-ep.ctx.Done():
			m.abandon(ep)
			return
		case <-ticker.C:
		}
		if !m.poll(ep, poll, &seen) {
			return
		}
	}
}

func (m *Monitor) poll(ep *episode, poll int, seen *int) bool {
	if ep.ctx.Err() != nil {
		m.abandon(ep)
		return false
	}
	pollCtx, cancel := context.WithTimeout(ep.ctx, m.pollTimeout)
	task, err := m.gateway.FetchStatus(pollCtx, ep.id)
	cancel()
	return m.deliver(ep, poll, task, err, seen)
}

// deliver reports whether polling should continue.
func (m *Monitor) deliver(ep *episode, poll int, task train.Task, err error, seen *int) bool {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	if m.episode != ep {
		m.mu.Unlock()
		return false
	}
	if err != nil {
		if ep.parent.Err() != nil {
			m.teardownLocked()
			m.mu.Unlock()
			return false
		}
		m.logf("poll %d for task %s failed: %v", poll, ep.id, err)
		m.teardownLocked()
		m.mu.Unlock()
		m.observer.Failed(ep.id, err)
		return false
	}

	if task.ID == 0 {
		task.ID = ep.id
	}
	update := Update{Task: task, NewLogs: newLogs(task.Logs, seen), Poll: poll}
	m.last = task

	switch {
	// An inactive task is finished whatever its status says.
	case task.Finished():
		m.state = Terminating
		m.mu.Unlock()
		m.observer.Snapshot(update)
		m.finish()
		m.logf("task %s finished with status %s", ep.id, task.Status)
		m.observer.Finished(task)
		return false
	case !task.Status.Known():
		m.state = Terminating
		m.mu.Unlock()
		m.observer.Snapshot(update)
		m.finish()
		m.logf("task %s reported unrecognized status %q", ep.id, task.Status)
		m.observer.Failed(ep.id, fmt.Errorf("%w: %q", ErrUnrecognizedStatus, string(task.Status)))
		return false
	default:
		m.mu.Unlock()
		m.observer.Snapshot(update)
		return true
	}
}

// finish requires deliverMu.
func (m *Monitor) finish() {
	m.mu.Lock()
	m.teardownLocked()
	m.mu.Unlock()
}

func (m *Monitor) abandon(ep *episode) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.episode == ep {
		m.logf("abandoned task %s", ep.id)
		m.teardownLocked()
	}
}

func newLogs(logs []train.LogEntry, seen *int) []train.LogEntry {
	if len(logs) < *seen {
		*seen = len(logs)
		return nil
	}
	fresh := logs[*seen:]
	*seen = len(logs)
	if len(fresh) == 0 {
		return nil
	}
	return append([]train.LogEntry(nil), fresh...)
}

func (m *Monitor) logf(format string, args ...any) {
	m.logger.Printf(format, args...)
}

type noopObserver struct{}

func (noopObserver) Snapshot(Update)            {}
func (noopObserver) Finished(train.Task)        {}
func (noopObserver) Failed(train.TaskID, error) {}
