package host

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/datatalking/mldb"
	"github.com/datatalking/mldb/queue"
)

// Queue is the reference, synchronous Queue implementation: Submit
// resolves prerequisites, runs the kernel body to completion, and
// returns an already-terminal Event. Independent work items within one
// launch may run across a bounded worker pool, but
// Submit itself never returns before that work has finished, so from a
// caller's perspective ordering is exactly as if the back-end were
// single-threaded.
type Queue struct {
	ctx   *Context
	state atomic.Int32
}

// NewQueue returns a Queue bound to ctx.
func NewQueue(ctx *Context) *Queue {
	q := &Queue{ctx: ctx}
	q.state.Store(int32(queue.Open))
	return q
}

// Backend implements queue.Queue.
func (q *Queue) Backend() string { return BackendName }

// State implements queue.Queue.
func (q *Queue) State() queue.LifecycleState {
	return queue.LifecycleState(q.state.Load())
}

// Flush implements queue.Queue. The host back-end never defers work, so
// there is nothing to flush.
func (q *Queue) Flush() {}

// Finish implements queue.Queue. Every Submit call has already completed
// by the time it returns, so Finish only needs to settle the queue's own
// lifecycle state.
func (q *Queue) Finish() {
	q.state.Store(int32(queue.Idle))
}

// Submit implements queue.Queue.
func (q *Queue) Submit(sub queue.Submission) (*queue.Event, error) {
	queuedAt := time.Now()
	logger := q.ctx.Logger().With().Str("op", sub.OpName).Logger()

	for _, b := range sub.Bound.Bound {
		if b.Kind == mldb.BoundDeviceHandle && b.Handle.Backend != BackendName {
			return nil, &mldb.BackendMismatch{Expected: BackendName, Got: b.Handle.Backend}
		}
	}

	plans, err := q.resolvePlans(sub)
	if err != nil {
		logger.Warn().Err(err).Msg("grid resolution failed")
		return nil, err
	}

	ev := queue.New()
	q.state.Store(int32(queue.Open))

	submittedAt := time.Now()
	if err := queue.WaitPrereqs(sub.Prereqs); err != nil {
		logger.Debug().Err(err).Msg("prerequisite failed")
		ev.Fail(err)
		return ev, nil
	}

	startedAt := time.Now()
	err = q.runGrid(sub.Bound, plans)
	endedAt := time.Now()

	if q.ctx.opts.profiling {
		ev.SetProfiling(queue.ProfilingInfo{
			QueuedAt:    ptr(queuedAt.UnixNano()),
			SubmittedAt: ptr(submittedAt.UnixNano()),
			StartedAt:   ptr(startedAt.UnixNano()),
			EndedAt:     ptr(endedAt.UnixNano()),
		})
	}

	if err != nil {
		logger.Debug().Err(err).Msg("kernel body failed")
		ev.Fail(err)
		return ev, nil
	}

	logger.Debug().Str("event", ev.ID).Msg("kernel resolved")
	ev.Resolve()
	return ev, nil
}

func ptr(v int64) *int64 { return &v }

// resolvePlans derives one AxisPlan per grid dimension from the bound
// kernel's own grid expressions, then applies any per-axis override the
// caller supplied in sub.Grid (an explicit global work count, analogous
// to the global_work_size argument of a native enqueue call), recomputing
// block counts and re-checking alignment for the overridden axes.
func (q *Queue) resolvePlans(sub queue.Submission) ([]mldb.AxisPlan, error) {
	spec := sub.Bound.Spec
	plans, err := mldb.ResolveGrid(spec, sub.Bound.Env)
	if err != nil {
		return nil, err
	}
	if len(sub.Grid) == 0 {
		return plans, nil
	}
	if err := queue.ValidateGridLen(len(spec.Dimensions), sub.Grid); err != nil {
		return nil, err
	}
	for i, global := range sub.Grid {
		local := plans[i].Local
		if !spec.AllowGridPadding && global%local != 0 {
			return nil, &mldb.GridMisalignment{Axis: i, Global: global, Local: local}
		}
		blocks := mldb.CeilDiv(int64(global), int64(local))
		plans[i] = mldb.AxisPlan{Global: global, Local: local, Blocks: uint64(blocks)}
	}
	return plans, nil
}

// runGrid walks every work item of plans in axis-0-outermost, lexicographic
// order via IterateGrid (which also handles the 0D, no-dimension case by
// invoking the body exactly once, and skips padded-but-out-of-range tail
// indices), dispatching each item across up to ctx.opts.workers goroutines
// bounded by a weighted semaphore and collecting the first error with an
// errgroup. It blocks until every item has run.
func (q *Queue) runGrid(bound *mldb.BoundKernel, plans []mldb.AxisPlan) error {
	g, gctx := errgroup.WithContext(context.Background())
	sem := semaphore.NewWeighted(int64(q.ctx.opts.workers))

	// IterateGrid's own return value only ever reflects sem.Acquire being
	// unblocked by gctx's cancellation, which happens exactly when some
	// dispatched item failed; the authoritative error comes from g.Wait().
	_ = mldb.IterateGrid(plans, func(index []uint64) error {
		if err := sem.Acquire(gctx, 1); err != nil {
			return err
		}
		item := append([]uint64(nil), index...)
		g.Go(func() error {
			defer sem.Release(1)
			return bound.Callable(mldb.Call{Bound: bound.Bound, Index: item})
		})
		return nil
	})
	return g.Wait()
}

// FillArray implements queue.Queue. lengthBytes of -1 means "fill to the
// end of region's declared range".
func (q *Queue) FillArray(region mldb.MemoryHandle, init []byte, startOffsetBytes int64, lengthBytes int64, prereqs []*queue.Event) (*queue.Event, error) {
	if region.Backend != BackendName {
		return nil, &mldb.BackendMismatch{Expected: BackendName, Got: region.Backend}
	}
	if len(init) == 0 {
		return nil, mldb.WrapperError("host: fill pattern must not be empty")
	}

	ev := queue.New()
	if err := queue.WaitPrereqs(prereqs); err != nil {
		ev.Fail(err)
		return ev, nil
	}

	buf := q.ctx.bufferBytes(region.DeviceBufferID)
	if buf == nil {
		ev.Fail(mldb.WrapperError("host: unknown buffer"))
		return ev, nil
	}

	start := region.Offset + uint64(startOffsetBytes)
	end := region.Offset + region.LengthBytes
	if lengthBytes >= 0 {
		end = start + uint64(lengthBytes)
	}
	if start > uint64(len(buf)) || end > uint64(len(buf)) || end < start {
		ev.Fail(mldb.WrapperError("host: fill range exceeds buffer"))
		return ev, nil
	}

	dst := buf[start:end]
	for off := 0; off < len(dst); {
		off += copy(dst[off:], init)
	}

	ev.Resolve()
	return ev, nil
}
