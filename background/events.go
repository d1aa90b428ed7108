package background

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/poiesic/babel/core"
)

// EventKind tags an Event.
type EventKind int

const (
	// EventStarted is published once workers are running. Address is the
	// resume address.
	EventStarted EventKind = iota + 1
	// EventMatch carries a newly persisted Result.
	EventMatch
	// EventCheckpoint is published after a checkpoint at Address is saved.
	EventCheckpoint
	// EventFault reports a page a worker could not scan.
	EventFault
	// EventWarning reports a non-fatal problem, such as a failed checkpoint.
	EventWarning
	// EventStopped is the last event of a run. Address is the final checkpoint.
	EventStopped
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventMatch:
		return "match"
	case EventCheckpoint:
		return "checkpoint"
	case EventFault:
		return "fault"
	case EventWarning:
		return "warning"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event is a notification from a running Coordinator.
type Event struct {
	Kind    EventKind
	RunID   string
	Time    time.Time
	Worker  int               // Worker index; -1 when not worker specific
	Address core.Address      // Meaning depends on Kind
	Result  *core.SearchResult // EventMatch only
	Err     error             // EventFault and EventWarning only
}

func (e Event) String() string {
	switch e.Kind {
	case EventMatch:
		return fmt.Sprintf("%s %q at %d:%d", e.Kind, e.Result.Phrase, e.Result.Address, e.Result.Offset)
	case EventFault, EventWarning:
		return fmt.Sprintf("%s worker=%d address=%d: %v", e.Kind, e.Worker, e.Address, e.Err)
	default:
		return fmt.Sprintf("%s address=%d", e.Kind, e.Address)
	}
}

// publisher delivers events without ever blocking the coordinator.
type publisher struct {
	ch      chan Event
	dropped atomic.Int64
	onDrop  func()
}

func newPublisher(buffer int, onDrop func()) *publisher {
	return &publisher{ch: make(chan Event, buffer), onDrop: onDrop}
}

// publish sends ev if there is room and drops it otherwise.
func (p *publisher) publish(ev Event) {
	select {
	case p.ch <- ev:
	default:
		p.dropped.Add(1)
		if p.onDrop != nil {
			p.onDrop()
		}
	}
}

func (p *publisher) close() {
	close(p.ch)
}
