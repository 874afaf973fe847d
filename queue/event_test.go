package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatalking/mldb"
)

func TestEventResolveIsOneShot(t *testing.T) {
	ev := New()
	ev.Resolve()
	ev.Fail(errors.New("should not stick"))

	assert.Equal(t, Resolved, ev.State())
	assert.NoError(t, ev.Err())
}

func TestEventAwaitBlocksUntilTerminal(t *testing.T) {
	ev := New()
	done := make(chan error, 1)
	go func() {
		done <- ev.Await()
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Await returned before the event resolved")
	default:
	}

	ev.Resolve()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Await never returned after Resolve")
	}
}

func TestEventAwaitForTimesOut(t *testing.T) {
	ev := New()
	err := ev.AwaitFor(5 * time.Millisecond)
	assert.ErrorIs(t, err, mldb.ErrTimedOut)
	assert.Equal(t, Pending, ev.State(), "a timed-out AwaitFor must not mutate event state")
}

func TestEventCancelIsAdvisory(t *testing.T) {
	ev := New()
	ev.Cancel()
	assert.Equal(t, Cancelled, ev.State())
	assert.ErrorIs(t, ev.Err(), mldb.ErrCancelled)

	already := New()
	already.Resolve()
	already.Cancel()
	assert.Equal(t, Resolved, already.State(), "cancelling an already-terminal event is a no-op")
}

func TestEventThenPropagatesFailureAsPrereqFailed(t *testing.T) {
	source := New()
	ran := false
	next := source.Then(func() { ran = true })

	source.Fail(errors.New("boom"))

	err := next.Await()
	require.Error(t, err)
	var prereq *mldb.PrereqFailed
	require.ErrorAs(t, err, &prereq)
	assert.EqualError(t, prereq.Cause, "boom")
	assert.False(t, ran, "continuation must not run when the source event failed")
}

func TestEventThenRunsContinuationOnSuccess(t *testing.T) {
	source := New()
	ran := false
	next := source.Then(func() { ran = true })
	source.Resolve()

	require.NoError(t, next.Await())
	assert.True(t, ran)
}

func TestEventThenOnAlreadyTerminalSourceRunsImmediately(t *testing.T) {
	source := New()
	source.Resolve()

	ran := false
	next := source.Then(func() { ran = true })
	require.NoError(t, next.Await())
	assert.True(t, ran)
}

func TestWaitPrereqsWrapsFirstFailure(t *testing.T) {
	ok := New()
	ok.Resolve()
	failed := New()
	failed.Fail(errors.New("device error"))

	err := WaitPrereqs([]*Event{ok, failed})
	var prereq *mldb.PrereqFailed
	require.ErrorAs(t, err, &prereq)
	assert.EqualError(t, prereq.Cause, "device error")
}

func TestProfilingInfoMarshalOmitsUnsetFields(t *testing.T) {
	ev := New()
	started := int64(100)
	ev.SetProfiling(ProfilingInfo{StartedAt: &started})

	info, has := ev.Profiling()
	require.True(t, has)
	data, err := info.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"started":100}`, string(data))
}

func TestProfilingInfoAbsentByDefault(t *testing.T) {
	ev := New()
	_, has := ev.Profiling()
	assert.False(t, has)
}
