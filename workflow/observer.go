package workflow

import (
	"errors"
	"fmt"

	"github.com/amonks/rail/diaglog"
	"github.com/amonks/rail/monitor"
	"github.com/amonks/rail/train"
)

// taskObserver applies monitor notifications to the session.
type taskObserver struct {
	c *Controller
}

func (o taskObserver) Snapshot(update monitor.Update) {
	c := o.c
	for _, entry := range update.NewLogs {
		c.diag.Append(workerLevel(entry.Level), fmt.Sprintf("worker: %s", entry.Message))
	}
	c.update(func(s *Session) {
		if s.TaskID != update.Task.ID {
			return
		}
		previous := train.Status("")
		if s.Task != nil {
			previous = s.Task.Status
		}
		if previous != update.Task.Status {
			c.diag.Infof("Task %s status: %s", update.Task.ID, update.Task.Status)
		}
		task := update.Task
		s.Task = &task
	})
}

func (o taskObserver) Finished(task train.Task) {
	c := o.c
	level := diaglog.LevelInfo
	switch task.Status {
	case train.StatusSuccess:
		level = diaglog.LevelSuccess
	case train.StatusFailed:
		level = diaglog.LevelError
	}
	c.diag.Append(level, fmt.Sprintf("Task %s finished with status: %s", task.ID, task.Status))
	c.update(func(s *Session) {
		if s.TaskID != task.ID {
			return
		}
		s.TaskID = 0
		finished := task
		s.Task = &finished
		s.Message = finishedMessage(task)
		s.MessageLevel = level
	})
}

func (o taskObserver) Failed(id train.TaskID, err error) {
	c := o.c
	var message string
	if errors.Is(err, monitor.ErrUnrecognizedStatus) {
		message = prefixMonitorError + err.Error()
	} else {
		message = failureMessage(err, prefixMonitorFailed, prefixMonitorError)
	}
	c.diag.Errorf("Failed to fetch task status for %s: %v", id, err)
	c.update(func(s *Session) {
		if s.TaskID != id {
			return
		}
		s.TaskID = 0
		s.Task = nil
		s.Message = message
		s.MessageLevel = diaglog.LevelError
	})
}

func workerLevel(level train.LogLevel) diaglog.Level {
	switch level {
	case train.LogError:
		return diaglog.LevelError
	case train.LogSuccess:
		return diaglog.LevelSuccess
	default:
		return diaglog.LevelInfo
	}
}
