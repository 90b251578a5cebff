package railtui

import (
	"sync"

	"github.com/amonks/rail/workflow"
)

// Feed carries controller snapshots to the UI. Pass Publish as
// workflow.Options.OnChange.
type Feed struct {
	ch chan workflow.Session

	mu      sync.Mutex
	version uint64
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan workflow.Session, 1)}
}

// Publish never blocks. A snapshot the UI has not read yet is replaced by
// the newer one, and a snapshot older than one already published is dropped.
func (f *Feed) Publish(session workflow.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session.Version != 0 && session.Version <= f.version {
		return
	}
	f.version = session.Version
	for {
		select {
		case f.ch <- session:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// C returns the channel snapshots arrive on.
func (f *Feed) C() <-chan workflow.Session {
	return f.ch
}
