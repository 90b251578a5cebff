package workflow

import (
	"github.com/amonks/rail/diaglog"
	"github.com/amonks/rail/train"
)

// Session is a snapshot of one user's reservation workflow.
type Session struct {
	ID          string
	Mode        train.Mode
	Origin      train.Station
	Destination train.Station
	// Date is YYYYMMDD; empty until chosen.
	Date string
	// Time is HHMM.
	Time      string
	AccountID int64
	// Candidates is nil before the first search and empty when a search
	// found nothing.
	Candidates []train.Candidate
	// TaskID is the monitored task, zero when none.
	TaskID train.TaskID
	// Task is the latest snapshot of the monitored or most recently finished task.
	Task         *train.Task
	Message      string
	MessageLevel diaglog.Level
	Busy         bool
	// Version increases with every change. OnChange callbacks may run
	// concurrently, so consumers keep the highest version they have seen.
	Version uint64
}

// Criteria returns the search criteria the session currently describes.
func (s Session) Criteria() train.SearchCriteria {
	return train.SearchCriteria{
		Mode:        s.Mode,
		Origin:      s.Origin,
		Destination: s.Destination,
		Date:        s.Date,
		Time:        s.Time,
		AccountID:   s.AccountID,
	}
}

// Monitoring reports whether a task is being monitored.
func (s Session) Monitoring() bool {
	return s.TaskID != 0
}

// Searched reports whether a candidate list is present.
func (s Session) Searched() bool {
	return s.Candidates != nil
}

func (s Session) clone() Session {
	if s.Candidates != nil {
		s.Candidates = append([]train.Candidate{}, s.Candidates...)
	}
	if s.Task != nil {
		task := *s.Task
		task.Logs = append([]train.LogEntry(nil), task.Logs...)
		s.Task = &task
	}
	return s
}
