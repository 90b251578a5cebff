// Package workflow drives one reservation session: choosing criteria,
// searching, creating a reservation task, and following that task until it
// resolves. It owns the user-facing message and busy flag.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/amonks/rail/diaglog"
	"github.com/amonks/rail/monitor"
	"github.com/amonks/rail/train"
	"github.com/amonks/rail/worker"
	"github.com/google/uuid"
)

// DefaultTime is the earliest departure selected for a new session.
const DefaultTime = "0900"

// Backend is the worker API the controller drives.
type Backend interface {
	Search(ctx context.Context, criteria train.SearchCriteria) ([]train.Candidate, error)
	Reserve(ctx context.Context, reservation train.Reservation) (train.TaskID, error)
	monitor.Gateway
}

// Options configures a Controller.
type Options struct {
	Mode      train.Mode
	AccountID int64
	// Date is YYYYMMDD; empty leaves the date unselected.
	Date string
	// Time is HHMM; empty selects DefaultTime.
	Time string

	Interval    time.Duration
	PollTimeout time.Duration

	// Diagnostics receives client-side events; a private sink is created when nil.
	Diagnostics *diaglog.Sink
	Logger      *log.Logger
	// OnChange is called with a fresh snapshot after every session change.
	// It may run on the monitor goroutine and must not block.
	OnChange func(Session)
}

// Controller is the reservation workflow state machine. Its methods are safe
// for concurrent use; Search, Reserve, Watch, SwitchMode, and
// CancelActiveTask are mutually exclusive and fail with ErrBusy rather than
// queue.
type Controller struct {
	backend  Backend
	monitor  *monitor.Monitor
	diag     *diaglog.Sink
	logger   *log.Logger
	onChange func(Session)

	ctx    context.Context
	cancel context.CancelFunc

	// opMu serializes user operations. Never acquire it while holding mu.
	opMu sync.Mutex

	mu      sync.Mutex
	session Session
}

// New creates a controller with a fresh session.
func New(backend Backend, opts Options) (*Controller, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	mode := opts.Mode
	if mode == "" {
		mode = train.ModeKTX
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", train.ErrInvalidMode, mode)
	}
	date := opts.Date
	if date != "" {
		parsed, err := train.ParseDate(date)
		if err != nil {
			return nil, err
		}
		date = parsed
	}
	clock := opts.Time
	if clock == "" {
		clock = DefaultTime
	}
	clock, err := train.ParseClock(clock)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	diag := opts.Diagnostics
	if diag == nil {
		diag = diaglog.New(diaglog.Options{Limit: 1000})
	}

	origin, destination := train.DefaultRoute(mode)
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend:  backend,
		diag:     diag,
		logger:   logger,
		onChange: opts.OnChange,
		ctx:      ctx,
		cancel:   cancel,
		session: Session{
			ID:          uuid.NewString(),
			Mode:        mode,
			Origin:      origin,
			Destination: destination,
			Date:        date,
			Time:        clock,
			AccountID:   opts.AccountID,
		},
	}
	c.monitor = monitor.New(backend, taskObserver{c: c}, monitor.Options{
		Interval:    opts.Interval,
		PollTimeout: opts.PollTimeout,
		Logger:      logger,
	})
	return c, nil
}

// Session returns a snapshot of the current session.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

// Diagnostics returns the session's diagnostic log.
func (c *Controller) Diagnostics() *diaglog.Sink {
	return c.diag
}

// MonitorState returns the task monitor's lifecycle state.
func (c *Controller) MonitorState() monitor.State {
	return c.monitor.State()
}

// Close stops monitoring. The remote task keeps running.
func (c *Controller) Close() {
	c.monitor.Stop()
	c.cancel()
	c.update(func(s *Session) {
		s.TaskID = 0
	})
}

// SelectAccount chooses the account searches and reservations run as.
func (c *Controller) SelectAccount(id int64) error {
	if id <= 0 {
		return c.reject(&ValidationError{Field: "account", Message: msgSelectAccount})
	}
	c.update(func(s *Session) {
		s.AccountID = id
	})
	return nil
}

// SetDate chooses the travel date. It accepts YYYYMMDD or YYYY-MM-DD.
func (c *Controller) SetDate(value string) error {
	date, err := train.ParseDate(value)
	if err != nil {
		return c.reject(&ValidationError{Field: "date", Message: msgSelectDate, Err: err})
	}
	c.update(func(s *Session) {
		s.Date = date
	})
	return nil
}

// ShiftDate moves the travel date by days, starting from today when unset.
func (c *Controller) ShiftDate(days int) {
	c.update(func(s *Session) {
		base := s.Date
		if base == "" {
			base = train.DateOf(time.Now())
			days = 0
		}
		if shifted, err := train.ShiftDate(base, days); err == nil {
			s.Date = shifted
		}
	})
}

// SetTime chooses the earliest departure time.
func (c *Controller) SetTime(value string) error {
	clock, err := train.ParseClock(value)
	if err != nil {
		return c.reject(&ValidationError{Field: "time", Message: err.Error(), Err: err})
	}
	c.update(func(s *Session) {
		s.Time = clock
	})
	return nil
}

// ShiftTime moves the earliest departure time by hours.
func (c *Controller) ShiftTime(hours int) {
	c.update(func(s *Session) {
		s.Time = train.ShiftClock(s.Time, hours)
	})
}

// SetOrigin chooses the departure station from the current mode's catalog.
func (c *Controller) SetOrigin(name string) error {
	return c.setStation(name, func(s *Session, station train.Station) { s.Origin = station })
}

// SetDestination chooses the arrival station from the current mode's catalog.
func (c *Controller) SetDestination(name string) error {
	return c.setStation(name, func(s *Session, station train.Station) { s.Destination = station })
}

func (c *Controller) setStation(name string, apply func(*Session, train.Station)) error {
	c.mu.Lock()
	mode := c.session.Mode
	c.mu.Unlock()
	station, err := train.FindStation(mode, name)
	if err != nil {
		return c.reject(&ValidationError{Field: "station", Message: err.Error(), Err: err})
	}
	c.update(func(s *Session) {
		if s.Mode == mode {
			apply(s, station)
		}
	})
	return nil
}

// SwapStations exchanges origin and destination.
func (c *Controller) SwapStations() {
	c.update(func(s *Session) {
		s.Origin, s.Destination = s.Destination, s.Origin
	})
}

// SwitchMode changes the operator. The route resets to the new mode's
// defaults and the candidate list is discarded. Switching is refused while
// a task is monitored; switching to the current mode does nothing.
func (c *Controller) SwitchMode(mode train.Mode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", train.ErrInvalidMode, mode)
	}
	if !c.opMu.TryLock() {
		return c.reject(ErrBusy)
	}
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.session.Mode == mode {
		c.mu.Unlock()
		return nil
	}
	if c.session.TaskID != 0 {
		c.mu.Unlock()
		return c.reject(ErrTaskActive)
	}
	origin, destination := train.DefaultRoute(mode)
	c.session.Mode = mode
	c.session.Origin = origin
	c.session.Destination = destination
	c.session.Candidates = nil
	c.session.Message = ""
	c.session.MessageLevel = ""
	snapshot := c.publishLocked()
	c.mu.Unlock()

	c.diag.Infof("Switched mode to %s", mode)
	c.notify(snapshot)
	return nil
}

// Search asks the worker for departures matching the session's criteria.
// The previous candidate list is kept when the search fails.
func (c *Controller) Search(ctx context.Context) ([]train.Candidate, error) {
	if !c.opMu.TryLock() {
		return nil, c.reject(ErrBusy)
	}
	defer c.opMu.Unlock()

	criteria, err := c.begin(msgSearching)
	if err != nil {
		return nil, err
	}
	c.diag.Infof("Initiating train search: %s %s -> %s on %s from %s",
		criteria.Mode, criteria.Origin.Name, criteria.Destination.Name, criteria.Date, criteria.TimeFrom())

	candidates, err := c.backend.Search(ctx, criteria)
	if err != nil {
		message := failureMessage(err, prefixSearchFailed, prefixGenericFailure)
		c.diag.Errorf("%s", message)
		c.finishOp(func(s *Session) {
			s.Message = message
			s.MessageLevel = diaglog.LevelError
		})
		return nil, err
	}

	if candidates == nil {
		candidates = []train.Candidate{}
	}
	c.diag.Infof("Found %d trains.", len(candidates))
	c.finishOp(func(s *Session) {
		s.Candidates = append([]train.Candidate{}, candidates...)
		if len(candidates) == 0 {
			s.Message = msgNoTrains
			s.MessageLevel = diaglog.LevelInfo
			return
		}
		s.Message = ""
		s.MessageLevel = ""
	})
	return candidates, nil
}

// Reserve creates a reservation task for candidate and starts monitoring it.
// The candidate list is kept when creation fails.
func (c *Controller) Reserve(ctx context.Context, candidate train.Candidate) (train.TaskID, error) {
	if !c.opMu.TryLock() {
		return 0, c.reject(ErrBusy)
	}
	defer c.opMu.Unlock()

	if !candidate.Reservable() {
		return 0, c.reject(&ValidationError{Field: "train", Message: msgNotReservable})
	}
	criteria, err := c.begin(msgReserving)
	if err != nil {
		return 0, err
	}
	reservation := train.NewReservation(criteria, candidate)
	c.diag.Infof("Initiating reservation task creation: %s %s at %s",
		candidate.TrainType, candidate.TrainNo, train.FormatClock(candidate.DepTime))

	id, err := c.backend.Reserve(ctx, reservation)
	if err != nil {
		message := failureMessage(err, prefixReserveFailed, prefixGenericFailure)
		c.diag.Errorf("%s", message)
		c.finishOp(func(s *Session) {
			s.Message = message
			s.MessageLevel = diaglog.LevelError
		})
		return 0, err
	}

	c.diag.Successf("Reservation task created, ID: %s. Starting monitoring.", id)
	c.finishOp(func(s *Session) {
		s.Candidates = nil
		s.TaskID = id
		s.Task = &train.Task{
			ID:                id,
			Status:            train.StatusPending,
			IsActive:          true,
			DepStation:        reservation.DepStation,
			ArrStation:        reservation.ArrStation,
			SelectedTrainType: reservation.SelectedTrainType,
			SelectedDepTime:   reservation.SelectedDepTime,
		}
		s.Message = reservationCreatedMessage(id)
		s.MessageLevel = diaglog.LevelSuccess
	})
	if err := c.monitor.Start(c.ctx, id); err != nil {
		c.update(func(s *Session) {
			s.TaskID = 0
		})
		return id, err
	}
	return id, nil
}

// Watch starts monitoring an existing task. Any other monitored task is
// stopped first; watching the task already monitored does nothing.
func (c *Controller) Watch(ctx context.Context, id train.TaskID) error {
	if id <= 0 {
		return fmt.Errorf("%w: %d", train.ErrInvalidTaskID, id)
	}
	if !c.opMu.TryLock() {
		return c.reject(ErrBusy)
	}
	defer c.opMu.Unlock()

	if current, ok := c.monitor.ActiveID(); ok {
		if current == id {
			return nil
		}
		c.monitor.Stop()
		c.diag.Infof("Stopped monitoring task ID: %s", current)
	}

	c.diag.Infof("Starting monitoring for task ID: %s", id)
	c.update(func(s *Session) {
		s.TaskID = id
		s.Task = &train.Task{ID: id}
		s.Message = watchingMessage(id)
		s.MessageLevel = diaglog.LevelInfo
	})
	if err := c.monitor.Start(c.ctx, id); err != nil {
		c.update(func(s *Session) {
			s.TaskID = 0
		})
		return err
	}
	return nil
}

// StopWatching ends monitoring locally without cancelling the remote task.
func (c *Controller) StopWatching() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	id, ok := c.monitor.ActiveID()
	c.monitor.Stop()
	if ok {
		c.diag.Infof("Stopped monitoring task ID: %s", id)
	}
	c.update(func(s *Session) {
		s.TaskID = 0
	})
}

// CancelActiveTask asks the worker to stop the monitored task. On success the
// local snapshot is marked inactive and STOPPED immediately; on failure
// monitoring continues.
func (c *Controller) CancelActiveTask(ctx context.Context) (string, error) {
	if !c.opMu.TryLock() {
		return "", c.reject(ErrBusy)
	}
	defer c.opMu.Unlock()

	c.mu.Lock()
	id := c.session.TaskID
	if id == 0 {
		c.mu.Unlock()
		return "", c.reject(ErrNoActiveTask)
	}
	c.session.Busy = true
	c.session.Message = msgCancelling
	c.session.MessageLevel = diaglog.LevelInfo
	snapshot := c.publishLocked()
	c.mu.Unlock()
	c.notify(snapshot)
	c.diag.Infof("Attempting to cancel task ID: %s", id)

	result, err := c.monitor.Cancel(ctx)
	if err != nil {
		if errors.Is(err, monitor.ErrNotMonitoring) {
			c.finishOp(func(s *Session) {})
			return "", ErrNoActiveTask
		}
		message := failureMessage(err, prefixCancelFailed, prefixCancelError)
		c.diag.Errorf("%s", message)
		c.finishOp(func(s *Session) {
			s.Message = message
			s.MessageLevel = diaglog.LevelError
		})
		return "", err
	}

	c.diag.Infof("Cancel response for task ID %s: %s", id, result.Message)
	c.finishOp(func(s *Session) {
		if !result.Applied {
			return
		}
		stopped := result.Task
		if s.Task != nil && s.Task.ID == id {
			stopped = s.Task.Stopped()
		}
		s.Task = &stopped
		s.TaskID = 0
		s.Message = msgCancelled
		s.MessageLevel = diaglog.LevelInfo
	})
	return result.Message, nil
}

// begin validates the session for a worker request and marks it busy.
// Callers hold opMu.
func (c *Controller) begin(message string) (train.SearchCriteria, error) {
	c.mu.Lock()
	var rejection error
	switch {
	case c.session.AccountID <= 0:
		rejection = &ValidationError{Field: "account", Message: msgSelectAccount}
	case c.session.Date == "":
		rejection = &ValidationError{Field: "date", Message: msgSelectDate}
	case c.session.TaskID != 0:
		rejection = ErrTaskActive
	}
	if rejection != nil {
		c.mu.Unlock()
		return train.SearchCriteria{}, c.reject(rejection)
	}
	c.session.Busy = true
	c.session.Message = message
	c.session.MessageLevel = diaglog.LevelInfo
	criteria := c.session.Criteria()
	snapshot := c.publishLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return criteria, nil
}

func (c *Controller) finishOp(apply func(*Session)) {
	c.update(func(s *Session) {
		s.Busy = false
		apply(s)
	})
}

// reject records err as the session message and returns it.
func (c *Controller) reject(err error) error {
	message := err.Error()
	switch {
	case errors.Is(err, ErrBusy):
		message = msgBusy
	case errors.Is(err, ErrTaskActive):
		message = msgTaskActive
	case errors.Is(err, ErrNoActiveTask):
		message = msgNoActiveTask
	}
	c.diag.Errorf("%s", message)
	c.update(func(s *Session) {
		s.Message = message
		s.MessageLevel = diaglog.LevelError
	})
	return err
}

func (c *Controller) update(apply func(*Session)) {
	c.mu.Lock()
	apply(&c.session)
	snapshot := c.publishLocked()
	c.mu.Unlock()
	c.notify(snapshot)
}

// publishLocked stamps the session with the next version and returns a copy
// for notify. Callers hold mu.
func (c *Controller) publishLocked() Session {
	c.session.Version++
	return c.session.clone()
}

func (c *Controller) notify(snapshot Session) {
	if c.onChange != nil {
		c.onChange(snapshot)
	}
}

// failureMessage distinguishes worker rejections from local or transport failures.
func failureMessage(err error, workerPrefix, otherPrefix string) string {
	if message, fromWorker := worker.Message(err); fromWorker {
		return workerPrefix + message
	}
	return otherPrefix + err.Error()
}
