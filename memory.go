package mldb

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// MemoryHandle is an opaque reference to a buffer owned by a device. It is
// shared (reference-counted) across ArgumentHandlers, a back-end's own
// buffer table, and bound argument tuples; the underlying buffer is
// released once the last holder drops its handle.
type MemoryHandle struct {
	Backend        string
	DeviceBufferID uintptr
	Offset         uint64
	LengthBytes    uint64
	ElementType    TypeId

	refs *int32
}

// NewMemoryHandle creates a fresh handle with a reference count of one.
// Back-ends call this when a buffer is first allocated or wrapped.
func NewMemoryHandle(backend string, bufferID uintptr, offset, lengthBytes uint64, elementType TypeId) MemoryHandle {
	count := int32(1)
	return MemoryHandle{
		Backend:        backend,
		DeviceBufferID: bufferID,
		Offset:         offset,
		LengthBytes:    lengthBytes,
		ElementType:    elementType,
		refs:           &count,
	}
}

// String provides a readable presentation of the handle for logging.
func (h MemoryHandle) String() string {
	return fmt.Sprintf("%s:0x%x[+%d,%d)", h.Backend, h.DeviceBufferID, h.Offset, h.Offset+h.LengthBytes)
}

// Retain increments the handle's reference count and returns the same
// handle value.
func (h MemoryHandle) Retain() MemoryHandle {
	if h.refs != nil {
		atomic.AddInt32(h.refs, 1)
	}
	return h
}

// Release decrements the handle's reference count. It returns true when
// the count reached zero, meaning the caller owns the last reference and
// the back-end's buffer table may reclaim the underlying buffer.
func (h MemoryHandle) Release() bool {
	if h.refs == nil {
		return false
	}
	return atomic.AddInt32(h.refs, -1) == 0
}

// RefCount reports the current reference count, for tests and
// diagnostics only.
func (h MemoryHandle) RefCount() int32 {
	if h.refs == nil {
		return 0
	}
	return atomic.LoadInt32(h.refs)
}

// AsElementType returns a copy of h reinterpreted as holding values of
// elementType, used when a read-write buffer is bound to a read-only
// formal parameter of the same underlying type.
func (h MemoryHandle) AsElementType(elementType TypeId) MemoryHandle {
	h.ElementType = elementType
	return h
}

// Pin is a scoped lifetime token. Holding a Pin guarantees the memory it
// was produced for remains valid, and for MutRange/ConstRange extractions,
// mapped into host-addressable space. Pins must be released on every exit
// path from the call that produced them; BoundKernel collects them, and
// the caller that bound the kernel releases them (ReleaseAll) once the
// corresponding Event has reached a terminal state. A Queue does not
// release them.
type Pin struct {
	release func()
}

// NewPin wraps a release callback as a Pin. release is called at most
// once, even if Release is called multiple times.
func NewPin(release func()) Pin {
	called := false
	return Pin{release: func() {
		if called {
			return
		}
		called = true
		release()
	}}
}

// Release unpins the underlying memory. It is always safe to call,
// including on a zero-value Pin (no pin was needed for this parameter).
func (p Pin) Release() {
	if p.release != nil {
		p.release()
	}
}

// ReleaseAll releases every pin in pins, in order. Used by the Binder to
// unwind partially-accumulated pins on a bind failure, and by callers to
// release a BoundKernel's pins once its Event terminates.
func ReleaseAll(pins []Pin) {
	for _, p := range pins {
		p.Release()
	}
}

// HostSpan is the raw (ptr, length in bytes) pair yielded by a
// ConstRange/MutRange extraction, before the Binder reinterprets it as a
// typed span. ptr is only valid while the associated Pin has not been
// released.
type HostSpan struct {
	Ptr         unsafe.Pointer
	LengthBytes uint
}

// Bytes returns the span as a byte slice. It is unsafe to retain beyond
// the life of the associated Pin.
func (s HostSpan) Bytes() []byte {
	if s.Ptr == nil || s.LengthBytes == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(s.Ptr), int(s.LengthBytes))
}

// TypedSpan is a HostSpan reinterpreted as len elements of elementSize
// bytes each, produced by the Binder once it has checked the byte length
// is a multiple of the formal parameter's element size.
type TypedSpan struct {
	Ptr         unsafe.Pointer
	Len         uint
	ElementSize uint
}

// Bytes returns the span as a byte slice of Len*ElementSize bytes.
func (s TypedSpan) Bytes() []byte {
	if s.Ptr == nil || s.Len == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(s.Ptr), int(s.Len)*int(s.ElementSize))
}
