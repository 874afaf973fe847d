package queue

import "github.com/datatalking/mldb"

// LifecycleState is a Queue's own state, independent of any Event:
// Open → Flushing → Idle → Open. Finish() drives Open→Flushing→Idle and
// returns; new submissions reopen the queue.
type LifecycleState int

const (
	// Open queues accept new submissions and have not been asked to
	// drain them.
	Open LifecycleState = iota
	// Flushing queues are draining previously submitted work as part of
	// a Finish call.
	Flushing
	// Idle queues have no outstanding submissions; Finish has returned.
	Idle
)

func (s LifecycleState) String() string {
	switch s {
	case Open:
		return "open"
	case Flushing:
		return "flushing"
	case Idle:
		return "idle"
	default:
		return "unknown"
	}
}

// Submission is one (bound kernel, grid, prerequisites) tuple a Queue
// accepts through Submit.
type Submission struct {
	OpName  string
	Bound   *mldb.BoundKernel
	Grid    []uint64
	Prereqs []*Event
}

// Queue orders submitted work for one back-end context and resolves
// prerequisite events before admitting dependent work. The host package
// provides the reference, synchronous implementation; asynchronous
// back-ends implement the same interface around native command queues.
type Queue interface {
	// Backend names the back-end this queue belongs to ("host", "opencl",
	// "metal", ...). Submit and FillArray reject bound kernels or handles
	// from a different backend with BackendMismatch.
	Backend() string

	// Submit enqueues a bound kernel for execution over grid, after every
	// prereq event has resolved. grid.Len() must equal the kernel's
	// declared dimension count. The returned Event resolves (or fails)
	// once the kernel body completes; for a synchronous back-end it may
	// already be terminal by the time Submit returns.
	Submit(sub Submission) (*Event, error)

	// FillArray initializes a sub-range of a device buffer. lengthBytes
	// of -1 means "to the end of region's declared range".
	FillArray(region mldb.MemoryHandle, init []byte, startOffsetBytes int64, lengthBytes int64, prereqs []*Event) (*Event, error)

	// Flush submits all queued work without waiting for it to complete.
	Flush()

	// Finish waits until the queue is empty and every submitted event has
	// reached a terminal state. Calling Finish twice with no intervening
	// submission is a no-op.
	Finish()

	// State reports the queue's own lifecycle state.
	State() LifecycleState
}

// ValidateGridLen checks that the caller's grid slice has one entry per
// declared dimension.
func ValidateGridLen(dims int, grid []uint64) error {
	if len(grid) != dims {
		return &mldb.ArityMismatch{Kernel: "grid", Expected: dims, Got: len(grid)}
	}
	return nil
}
