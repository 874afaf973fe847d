package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatalking/mldb"
	"github.com/datatalking/mldb/queue"
	"github.com/datatalking/mldb/registry"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	return NewContext(WithWorkers(4))
}

func TestAdd2EndToEnd(t *testing.T) {
	ctx := newTestContext(t)
	spec, err := ctx.BuildKernel("add2")
	require.NoError(t, err)
	entry, ok := EntryFor(spec.Entry.Name)
	require.True(t, ok)

	n := 37
	a := make([]float32, n)
	b := make([]float32, n)
	out := make([]float32, n)
	for i := range a {
		a[i] = float32(i)
		b[i] = float32(2 * i)
	}

	args := []mldb.ArgumentHandler{ConstF32s(a), ConstF32s(b), MutF32s(out)}
	bound, err := mldb.NewBinder().Bind(spec, args, map[string]int64{"count": int64(n), "block": 8}, entry)
	require.NoError(t, err)
	defer mldb.ReleaseAll(bound.Pins)

	q := NewQueue(ctx)
	ev, err := q.Submit(queue.Submission{OpName: "add2", Bound: bound, Grid: []uint64{uint64(n)}})
	require.NoError(t, err)
	require.NoError(t, ev.Await())

	for i := range out {
		assert.Equal(t, a[i]+b[i], out[i])
	}
}

func TestSumScalarRunsZeroDimensionGridExactlyOnce(t *testing.T) {
	ctx := newTestContext(t)
	spec, err := ctx.BuildKernel("sum_scalar")
	require.NoError(t, err)
	require.Empty(t, spec.Dimensions)
	entry, ok := EntryFor(spec.Entry.Name)
	require.True(t, ok)

	calls := 0
	counted := mldb.FnCallable(func(call mldb.Call) error {
		calls++
		return entry(call)
	})

	c := make([]uint32, 1)
	args := []mldb.ArgumentHandler{U32(3), U32(4), MutU32s(c)}
	bound, err := mldb.NewBinder().Bind(spec, args, nil, counted)
	require.NoError(t, err)
	defer mldb.ReleaseAll(bound.Pins)

	q := NewQueue(ctx)
	ev, err := q.Submit(queue.Submission{OpName: "sum_scalar", Bound: bound})
	require.NoError(t, err)
	require.NoError(t, ev.Await())

	assert.Equal(t, uint32(7), c[0])
	assert.Equal(t, 1, calls)
}

func TestScaleEndToEnd(t *testing.T) {
	ctx := newTestContext(t)
	spec, err := ctx.BuildKernel("scale")
	require.NoError(t, err)
	entry, ok := EntryFor(spec.Entry.Name)
	require.True(t, ok)

	in := []float32{1, 2, 3, 4, 5}
	out := make([]float32, len(in))

	args := []mldb.ArgumentHandler{ConstF32s(in), MutF32s(out), F32(3)}
	bound, err := mldb.NewBinder().Bind(spec, args, map[string]int64{"count": int64(len(in)), "block": 1}, entry)
	require.NoError(t, err)
	defer mldb.ReleaseAll(bound.Pins)

	q := NewQueue(ctx)
	ev, err := q.Submit(queue.Submission{OpName: "scale", Bound: bound, Grid: []uint64{uint64(len(in))}})
	require.NoError(t, err)
	require.NoError(t, ev.Await())

	assert.Equal(t, []float32{3, 6, 9, 12, 15}, out)
}

func TestZeroExercisesGridPadding(t *testing.T) {
	ctx := newTestContext(t)
	spec, err := ctx.BuildKernel("zero")
	require.NoError(t, err)
	entry, ok := EntryFor(spec.Entry.Name)
	require.True(t, ok)

	n := 10
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i + 1)
	}

	args := []mldb.ArgumentHandler{MutF32s(out)}
	bound, err := mldb.NewBinder().Bind(spec, args, map[string]int64{"count": int64(n), "block": 8}, entry)
	require.NoError(t, err)
	defer mldb.ReleaseAll(bound.Pins)

	q := NewQueue(ctx)
	ev, err := q.Submit(queue.Submission{OpName: "zero", Bound: bound})
	require.NoError(t, err)
	require.NoError(t, ev.Await())

	for _, v := range out {
		assert.Equal(t, float32(0), v)
	}
}

func TestSubmitRejectsMisalignedGridWithoutPadding(t *testing.T) {
	ctx := newTestContext(t)

	// Unlike the registered add2/scale/zero demo kernels (all built with
	// AllowGridPadding), this spec deliberately omits it so misaligned
	// grids are rejected rather than rounded up.
	spec, err := mldb.NewBuilder("add2_strict", stdTypes).
		AddTuneable("block", 64).
		AddTuneable("count", 0).
		AddDimension("n", "count").
		AddParameter("a", "r", "f32[n]").
		AddParameter("b", "r", "f32[n]").
		AddParameter("out", "w", "f32[n]").
		SetGridExpression([]string{"n"}, []string{"block"}).
		SetEntry("add2").
		Build()
	require.NoError(t, err)
	entry, ok := EntryFor(spec.Entry.Name)
	require.True(t, ok)

	n := 10
	a, b, out := make([]float32, n), make([]float32, n), make([]float32, n)
	args := []mldb.ArgumentHandler{ConstF32s(a), ConstF32s(b), MutF32s(out)}
	bound, err := mldb.NewBinder().Bind(spec, args, map[string]int64{"count": int64(n), "block": 8}, entry)
	require.NoError(t, err)
	defer mldb.ReleaseAll(bound.Pins)

	q := NewQueue(ctx)
	_, err = q.Submit(queue.Submission{OpName: "add2_strict", Bound: bound})
	var mis *mldb.GridMisalignment
	assert.ErrorAs(t, err, &mis)
}

func TestFillArrayTilesPatternAndSupportsToEnd(t *testing.T) {
	ctx := newTestContext(t)
	handle := ctx.AllocHandle(mldb.NewTypeId("u8"), 1, 8)

	q := NewQueue(ctx)
	ev, err := q.FillArray(handle, []byte{0xAB, 0xCD}, 0, -1, nil)
	require.NoError(t, err)
	require.NoError(t, ev.Await())

	got, err := ctx.ReadHandle(handle)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xCD, 0xAB, 0xCD, 0xAB, 0xCD, 0xAB, 0xCD}, got)
}

func TestFillArrayRejectsBackendMismatch(t *testing.T) {
	ctx := newTestContext(t)
	q := NewQueue(ctx)
	foreign := mldb.NewMemoryHandle("opencl", 1, 0, 8, mldb.NewTypeId("u8"))
	_, err := q.FillArray(foreign, []byte{0}, 0, -1, nil)
	var mismatch *mldb.BackendMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestRegistryListsHostKernels(t *testing.T) {
	kernels := registry.Default.Kernels(BackendName)
	assert.Contains(t, kernels, "add2")
	assert.Contains(t, kernels, "scale")
	assert.Contains(t, kernels, "zero")
	assert.Contains(t, kernels, "sum_scalar")
}
