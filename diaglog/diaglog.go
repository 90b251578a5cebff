// Package diaglog records what the client observed during a session: every
// request it issued, every status it received, every failure. Entries live
// only as long as the Sink.
package diaglog

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Level classifies an entry.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelSuccess Level = "SUCCESS"
	LevelError   Level = "ERROR"
)

// Entry is one recorded event.
type Entry struct {
	Seq     uint64
	Time    time.Time
	Level   Level
	Message string
}

// String renders "[15:04:05] LEVEL: message".
func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Time.Format("15:04:05"), e.Level, e.Message)
}

// Options configures a Sink.
type Options struct {
	// Limit caps the retained entries; the oldest are dropped first. Zero keeps everything.
	Limit int
	// Logger mirrors each entry when set.
	Logger *log.Logger
	// Now overrides the clock.
	Now func() time.Time
}

// Sink is an append-only, sequence-numbered event record. It is safe for
// concurrent use.
type Sink struct {
	limit  int
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	next    uint64
	entries []Entry
}

// New creates an empty sink.
func New(opts Options) *Sink {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limit := opts.Limit
	if limit < 0 {
		limit = 0
	}
	return &Sink{limit: limit, logger: opts.Logger, now: now, next: 1}
}

// Append records a message and returns its sequence number. Sequence numbers
// increase by one per call and are never reused, even after old entries are
// dropped.
func (s *Sink) Append(level Level, message string) uint64 {
	s.mu.Lock()
	entry := Entry{Seq: s.next, Time: s.now(), Level: level, Message: message}
	s.next++
	s.entries = append(s.entries, entry)
	if s.limit > 0 && len(s.entries) > s.limit {
		dropped := len(s.entries) - s.limit
		s.entries = append(s.entries[:0:0], s.entries[dropped:]...)
	}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Printf("%s: %s", entry.Level, entry.Message)
	}
	return entry.Seq
}

// Infof records an informational entry.
func (s *Sink) Infof(format string, args ...any) uint64 {
	return s.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Successf records a success entry.
func (s *Sink) Successf(format string, args ...any) uint64 {
	return s.Append(LevelSuccess, fmt.Sprintf(format, args...))
}

// Errorf records an error entry.
func (s *Sink) Errorf(format string, args ...any) uint64 {
	return s.Append(LevelError, fmt.Sprintf(format, args...))
}

// Entries returns the retained entries in sequence order.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.entries...)
}

// Since returns retained entries with a sequence number greater than seq.
func (s *Sink) Since(seq uint64) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.entries {
		if entry.Seq > seq {
			return append([]Entry(nil), s.entries[i:]...)
		}
	}
	return nil
}

// Get returns the entry with the given sequence number if it is still retained.
func (s *Sink) Get(seq uint64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	first := s.entries[0].Seq
	if seq < first || seq-first >= uint64(len(s.entries)) {
		return Entry{}, false
	}
	return s.entries[seq-first], true
}

// Len returns the number of retained entries.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// LastSeq returns the most recently assigned sequence number, or zero.
func (s *Sink) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next - 1
}

// String renders retained entries one per line.
func (s *Sink) String() string {
	entries := s.Entries()
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, entry.String())
	}
	return strings.Join(lines, "\n")
}
