package host

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/datatalking/mldb"
)

// stdTypes backs the scalar/slice argument constructors below: every one
// of them binds to the same primitive names a KernelSpec built with
// mldb.StandardTypeRegistry() resolves its type_expr strings against.
var stdTypes = mldb.StandardTypeRegistry()

func scalarArg(name string, bytes []byte) mldb.ArgumentHandler {
	descriptor, ok := stdTypes.Lookup(name)
	if !ok {
		panic("host: unknown standard type " + name)
	}
	return mldb.NewPrimitiveArg(bytes, descriptor)
}

// U8 wraps a uint8 scalar argument.
func U8(v uint8) mldb.ArgumentHandler { return scalarArg("u8", []byte{v}) }

// U32 wraps a uint32 scalar argument.
func U32(v uint32) mldb.ArgumentHandler {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return scalarArg("u32", buf)
}

// U64 wraps a uint64 scalar argument.
func U64(v uint64) mldb.ArgumentHandler {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return scalarArg("u64", buf)
}

// I32 wraps an int32 scalar argument.
func I32(v int32) mldb.ArgumentHandler {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return scalarArg("i32", buf)
}

// I64 wraps an int64 scalar argument.
func I64(v int64) mldb.ArgumentHandler {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return scalarArg("i64", buf)
}

// F32 wraps a float32 scalar argument.
func F32(v float32) mldb.ArgumentHandler {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return scalarArg("f32", buf)
}

// F64 wraps a float64 scalar argument.
func F64(v float64) mldb.ArgumentHandler {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	return scalarArg("f64", buf)
}

// hostPin is the Pin a range argument backed directly by a Go slice
// returns: the slice stays reachable through the span's pointer, so there
// is nothing to release.
func hostPin() mldb.Pin {
	return mldb.NewPin(func() {})
}

// ConstF32s wraps a read-only []float32 as a ConstRange argument.
func ConstF32s(data []float32) mldb.ArgumentHandler {
	span := mldb.HostSpan{Ptr: unsafe.Pointer(unsafe.SliceData(data)), LengthBytes: uint(len(data)) * 4}
	return mldb.NewConstRangeArg(span, mldb.NewTypeId("f32"), hostPin)
}

// MutF32s wraps a read-write []float32 as a MutRange argument.
func MutF32s(data []float32) mldb.ArgumentHandler {
	span := mldb.HostSpan{Ptr: unsafe.Pointer(unsafe.SliceData(data)), LengthBytes: uint(len(data)) * 4}
	return mldb.NewMutRangeArg(span, mldb.NewTypeId("f32"), hostPin)
}

// ConstU32s wraps a read-only []uint32 as a ConstRange argument.
func ConstU32s(data []uint32) mldb.ArgumentHandler {
	span := mldb.HostSpan{Ptr: unsafe.Pointer(unsafe.SliceData(data)), LengthBytes: uint(len(data)) * 4}
	return mldb.NewConstRangeArg(span, mldb.NewTypeId("u32"), hostPin)
}

// MutU32s wraps a read-write []uint32 as a MutRange argument.
func MutU32s(data []uint32) mldb.ArgumentHandler {
	span := mldb.HostSpan{Ptr: unsafe.Pointer(unsafe.SliceData(data)), LengthBytes: uint(len(data)) * 4}
	return mldb.NewMutRangeArg(span, mldb.NewTypeId("u32"), hostPin)
}

// ConstBytes wraps a read-only []byte (u8 elements) as a ConstRange
// argument, used by generic fill/copy demos that don't care about a
// richer element type.
func ConstBytes(data []byte) mldb.ArgumentHandler {
	span := mldb.HostSpan{Ptr: unsafe.Pointer(unsafe.SliceData(data)), LengthBytes: uint(len(data))}
	return mldb.NewConstRangeArg(span, mldb.NewTypeId("u8"), hostPin)
}

// MutBytes wraps a read-write []byte (u8 elements) as a MutRange argument.
func MutBytes(data []byte) mldb.ArgumentHandler {
	span := mldb.HostSpan{Ptr: unsafe.Pointer(unsafe.SliceData(data)), LengthBytes: uint(len(data))}
	return mldb.NewMutRangeArg(span, mldb.NewTypeId("u8"), hostPin)
}

// HandleArg wraps a MemoryHandle directly, for kernels that take a device
// buffer rather than a host-addressable span.
func HandleArg(handle mldb.MemoryHandle) mldb.ArgumentHandler {
	return mldb.NewDeviceHandleArg(handle)
}
