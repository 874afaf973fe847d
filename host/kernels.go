package host

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/datatalking/mldb"
	"github.com/datatalking/mldb/registry"
)

// floats reinterprets a TypedSpan of f32 elements as a []float32. The
// caller must only use it while the Pin that produced the span is still
// held.
func floats(span mldb.TypedSpan) []float32 {
	if span.Ptr == nil || span.Len == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(span.Ptr), int(span.Len))
}

func scalarF32(bytes []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(bytes))
}

func scalarU32(bytes []byte) uint32 {
	return binary.LittleEndian.Uint32(bytes)
}

// u32s reinterprets a TypedSpan of u32 elements as a []uint32.
func u32s(span mldb.TypedSpan) []uint32 {
	if span.Ptr == nil || span.Len == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(span.Ptr), int(span.Len))
}

// Add2Entry computes out[i] = a[i] + b[i] for every grid index i. It is
// the compute entry point the "add2" demo kernel declares.
func Add2Entry(call mldb.Call) error {
	a := floats(call.Arg(0).Span)
	b := floats(call.Arg(1).Span)
	out := floats(call.Arg(2).Span)
	i := call.Index[0]
	if i < uint64(len(out)) {
		out[i] = a[i] + b[i]
	}
	return nil
}

// ScaleEntry computes out[i] = in[i] * factor. It is the compute entry
// point the "scale" demo kernel declares.
func ScaleEntry(call mldb.Call) error {
	in := floats(call.Arg(0).Span)
	out := floats(call.Arg(1).Span)
	factor := scalarF32(call.Arg(2).Bytes)
	i := call.Index[0]
	if i < uint64(len(out)) {
		out[i] = in[i] * factor
	}
	return nil
}

// ZeroEntry zeroes out[i]. It is the compute entry point the "zero" demo
// kernel declares, and is used to exercise grid padding: the kernel
// allows a global work size that is not an exact multiple of its block
// size. The dispatcher skips padded-but-out-of-range indices, and the
// body also bounds-checks its index against out's length.
func ZeroEntry(call mldb.Call) error {
	out := floats(call.Arg(0).Span)
	i := call.Index[0]
	if i < uint64(len(out)) {
		out[i] = 0
	}
	return nil
}

// SumScalarEntry computes out[0] = a + b. It is the compute entry point
// the "sum_scalar" demo kernel declares: a 0D kernel with no grid
// dimensions, whose body runs exactly once regardless of Call.Index.
func SumScalarEntry(call mldb.Call) error {
	a := scalarU32(call.Arg(0).Bytes)
	b := scalarU32(call.Arg(1).Bytes)
	out := u32s(call.Arg(2).Span)
	out[0] = a + b
	return nil
}

// entryPoints maps a KernelSpec's Entry.Name to the Go function the host
// back-end invokes for it. Real back-ends would instead resolve EntryRef
// against a compiled program; the host back-end's "compiled program" is
// simply this process's own code.
var entryPoints = map[string]mldb.FnCallable{
	"add2":       Add2Entry,
	"scale":      ScaleEntry,
	"zero":       ZeroEntry,
	"sum_scalar": SumScalarEntry,
}

// EntryFor resolves a kernel's declared entry point name to the Go
// function that implements it.
func EntryFor(name string) (mldb.FnCallable, bool) {
	fn, ok := entryPoints[name]
	return fn, ok
}

// Every one-dimensional demo kernel (add2, scale, zero; sum_scalar has no
// dimension) sizes its single grid dimension "n" from a tuneable
// named "count": callers pass the actual element count as a tuneable
// override (Binder.Bind's tuneableOverrides map) named "count", and the
// dimension's extent expression resolves it to "n" for shape and grid
// expressions to reference.

func buildAdd2Spec(any) (*mldb.KernelSpec, error) {
	return mldb.NewBuilder("add2", stdTypes).
		AddTuneable("block", 64).
		AddTuneable("count", 0).
		AddDimension("n", "count").
		AddParameter("a", "r", "f32[n]").
		AddParameter("b", "r", "f32[n]").
		AddParameter("out", "w", "f32[n]").
		SetGridExpression([]string{"n"}, []string{"block"}).
		AllowGridPadding().
		SetEntry("add2").
		Build()
}

func buildScaleSpec(any) (*mldb.KernelSpec, error) {
	return mldb.NewBuilder("scale", stdTypes).
		AddTuneable("block", 64).
		AddTuneable("count", 0).
		AddDimension("n", "count").
		AddParameter("in", "r", "f32[n]").
		AddParameter("out", "w", "f32[n]").
		AddParameter("factor", "r", "f32").
		SetGridExpression([]string{"n"}, []string{"block"}).
		AllowGridPadding().
		SetEntry("scale").
		Build()
}

func buildZeroSpec(any) (*mldb.KernelSpec, error) {
	return mldb.NewBuilder("zero", stdTypes).
		AddTuneable("block", 64).
		AddTuneable("count", 0).
		AddDimension("n", "count").
		AddParameter("out", "w", "f32[n]").
		SetGridExpression([]string{"n"}, []string{"block"}).
		AllowGridPadding().
		SetEntry("zero").
		Build()
}

// buildSumScalarSpec declares a 0D kernel: no dimensions and no grid
// expression, so the resolved grid has zero axes and its body runs once.
func buildSumScalarSpec(any) (*mldb.KernelSpec, error) {
	return mldb.NewBuilder("sum_scalar", stdTypes).
		AddParameter("a", "r", "u32").
		AddParameter("b", "r", "u32").
		AddParameter("out", "w", "u32[1]").
		SetEntry("sum_scalar").
		Build()
}

func init() {
	_ = registry.Default.Register(BackendName, "add2", buildAdd2Spec)
	_ = registry.Default.Register(BackendName, "scale", buildScaleSpec)
	_ = registry.Default.Register(BackendName, "zero", buildZeroSpec)
	_ = registry.Default.Register(BackendName, "sum_scalar", buildSumScalarSpec)
}
