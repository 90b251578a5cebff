package train

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	internalstrings "github.com/amonks/rail/internal/strings"
)

// TaskID identifies a reservation task on the worker.
type TaskID int64

func (id TaskID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ErrInvalidTaskID indicates a task identifier that is not a positive integer.
var ErrInvalidTaskID = errors.New("invalid task id")

// ParseTaskID parses a positive decimal task identifier.
func ParseTaskID(value string) (TaskID, error) {
	trimmed := internalstrings.TrimSpace(value)
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTaskID, value)
	}
	return TaskID(parsed), nil
}

// Status is the lifecycle label the worker reports for a task.
type Status string

const (
	// StatusPending indicates the task is queued.
	StatusPending Status = "PENDING"
	// StatusRunning indicates the worker is attempting the reservation.
	StatusRunning Status = "RUNNING"
	// StatusSuccess indicates a seat was booked.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed indicates the worker gave up.
	StatusFailed Status = "FAILED"
	// StatusStopped indicates the task was cancelled.
	StatusStopped Status = "STOPPED"
)

// ValidStatuses returns every status the client understands.
func ValidStatuses() []Status {
	return []Status{StatusPending, StatusRunning, StatusSuccess, StatusFailed, StatusStopped}
}

// Known returns true for statuses in ValidStatuses.
func (s Status) Known() bool {
	for _, valid := range ValidStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// Active returns true while the worker is still working on the task.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusRunning
}

// Terminal returns true for statuses that never change again.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusStopped
}

// LogLevel labels a worker log line.
type LogLevel string

const (
	LogInfo    LogLevel = "INFO"
	LogError   LogLevel = "ERROR"
	LogSuccess LogLevel = "SUCCESS"
)

// LogEntry is one line of worker-side task history.
type LogEntry struct {
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
	CreatedAt string   `json:"createdAt"`
}

var logTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp parses CreatedAt. ok is false when the worker used an unknown layout.
func (e LogEntry) Timestamp() (time.Time, bool) {
	for _, layout := range logTimeLayouts {
		if parsed, err := time.Parse(layout, e.CreatedAt); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Task is a point-in-time snapshot of a reservation task.
type Task struct {
	ID                TaskID     `json:"id"`
	Status            Status     `json:"status"`
	IsActive          bool       `json:"isActive"`
	Logs              []LogEntry `json:"logs"`
	DepStation        string     `json:"depStation"`
	ArrStation        string     `json:"arrStation"`
	SelectedTrainType string     `json:"selectedTrainType"`
	SelectedDepTime   string     `json:"selectedDepTime"`
	Date              string     `json:"date,omitempty"`
	TimeFrom          string     `json:"timeFrom,omitempty"`
}

// Finished reports whether polling should stop for this task.
func (t Task) Finished() bool {
	return !t.IsActive || t.Status.Terminal()
}

// Stopped returns the snapshot a successful cancellation implies.
func (t Task) Stopped() Task {
	t.IsActive = false
	t.Status = StatusStopped
	return t
}

// Summary renders "STATUS: dep -> arr (depTime)".
func (t Task) Summary() string {
	return fmt.Sprintf("%s: %s -> %s (%s)", t.Status, t.DepStation, t.ArrStation, t.SelectedDepTime)
}
