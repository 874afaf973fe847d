// Package queue implements the Queue & Event component of the kernel
// dispatch runtime: ordering submitted work, resolving prerequisite
// events, and exposing completion events with
// optional profiling. It is back-end agnostic; the host package supplies
// the synchronous Queue implementation that satisfies the Queue
// interface defined here, and other back-ends would supply asynchronous
// ones without changing this package.
package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datatalking/mldb"
)

// State is one point in an Event's lifecycle: Pending → {Resolved |
// Failed | Cancelled}. Transitions are one-shot; terminal states are
// sticky.
type State int

const (
	// Pending events have not yet reached a terminal state.
	Pending State = iota
	// Resolved events completed successfully.
	Resolved
	// Failed events terminated with an error, available via Event.Err.
	Failed
	// Cancelled events were cancelled before they resolved. Cancellation
	// is advisory: a back-end that had already begun the work may still
	// resolve or fail normally instead of reaching this state.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ProfilingInfo carries the optional timestamps a back-end may expose for
// an Event, in nanoseconds since an arbitrary but consistent epoch. A nil
// field means the back-end does not expose that timestamp.
type ProfilingInfo struct {
	QueuedAt    *int64 `json:"queued,omitempty"`
	SubmittedAt *int64 `json:"submitted,omitempty"`
	StartedAt   *int64 `json:"started,omitempty"`
	EndedAt     *int64 `json:"ended,omitempty"`
}

// MarshalJSON renders ProfilingInfo so that only the timestamps the
// back-end actually recorded appear.
func (p ProfilingInfo) MarshalJSON() ([]byte, error) {
	type alias ProfilingInfo
	return json.Marshal(alias(p))
}

// Event is a future over kernel completion. It carries an identifier
// (useful for correlating log lines across a queue's submissions),
// optional ProfilingInfo, and supports both blocking Await and
// continuation-style Then.
type Event struct {
	ID string

	mu            sync.Mutex
	state         State
	err           error
	done          chan struct{}
	profiling     ProfilingInfo
	continuations []func()
}

// New returns a fresh, Pending Event with a unique ID.
func New() *Event {
	return &Event{
		ID:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// State reports the event's current state.
func (e *Event) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the error a Failed event terminated with, or the
// PrereqFailed/cancellation cause, or nil.
func (e *Event) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Profiling returns the event's recorded timestamps and whether any
// back-end populated them at all.
func (e *Event) Profiling() (ProfilingInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	empty := e.profiling == ProfilingInfo{}
	return e.profiling, !empty
}

// SetProfiling records timestamps on the event. Back-ends call this
// before or as they transition the event to a terminal state.
func (e *Event) SetProfiling(p ProfilingInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiling = p
}

// transition moves the event to a terminal state exactly once; later
// calls are no-ops, matching the one-shot, sticky-terminal-state
// semantics described above.
func (e *Event) transition(state State, err error) {
	e.mu.Lock()
	if e.state != Pending {
		e.mu.Unlock()
		return
	}
	e.state = state
	e.err = err
	continuations := e.continuations
	e.continuations = nil
	e.mu.Unlock()
	close(e.done)
	for _, fn := range continuations {
		fn()
	}
}

// Resolve transitions the event to Resolved.
func (e *Event) Resolve() { e.transition(Resolved, nil) }

// Fail transitions the event to Failed with the given cause.
func (e *Event) Fail(err error) { e.transition(Failed, err) }

// Cancel requests cancellation. It is advisory: if the event is still
// Pending, it transitions to Cancelled immediately; otherwise the event
// is left to reach whatever terminal state the back-end was already
// driving it to.
func (e *Event) Cancel() {
	e.transition(Cancelled, mldb.ErrCancelled)
}

// Await blocks until the event reaches a terminal state and returns its
// error (nil for Resolved). A re-entrant call on an already-terminal
// event returns immediately.
func (e *Event) Await() error {
	<-e.done
	return e.Err()
}

// AwaitFor blocks until the event reaches a terminal state or the
// duration elapses, whichever comes first. On timeout it returns
// mldb.ErrTimedOut without changing the event's state.
func (e *Event) AwaitFor(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-e.done:
		return e.Err()
	case <-timer.C:
		return mldb.ErrTimedOut
	}
}

// Then registers a continuation that runs after the source event
// completes, and returns a new Event that resolves once fn returns. If
// the source event failed, fn is skipped and the failure propagates
// (wrapped, where appropriate, as PrereqFailed) to the returned event. If
// multiple continuations are registered on the same source event, their
// relative order is unspecified.
func (e *Event) Then(fn func()) *Event {
	next := New()
	run := func() {
		if err := e.Err(); err != nil {
			next.Fail(&mldb.PrereqFailed{Cause: err})
			return
		}
		fn()
		next.Resolve()
	}
	e.mu.Lock()
	if e.state != Pending {
		e.mu.Unlock()
		run()
		return next
	}
	e.continuations = append(e.continuations, run)
	e.mu.Unlock()
	return next
}

// WaitPrereqs blocks until every prerequisite event has reached a
// terminal state. If any failed, it returns a PrereqFailed wrapping that
// event's error, preserving the root cause through chains of dependent
// events.
func WaitPrereqs(prereqs []*Event) error {
	for _, p := range prereqs {
		if err := p.Await(); err != nil {
			return &mldb.PrereqFailed{Cause: err}
		}
	}
	return nil
}
