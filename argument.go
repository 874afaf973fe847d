package mldb

import "fmt"

// HandlerKind identifies which extraction an ArgumentHandler can satisfy.
// It is stable for the handler's lifetime.
type HandlerKind int

const (
	// KindPrimitive handlers yield a single scalar value's bytes.
	KindPrimitive HandlerKind = iota
	// KindConstRange handlers yield a read-only (ptr, len) span.
	KindConstRange
	// KindMutRange handlers yield a read-write (ptr, len) span.
	KindMutRange
	// KindDeviceHandle handlers yield a MemoryHandle directly, with no
	// host-side pin required (zero-copy).
	KindDeviceHandle
)

func (k HandlerKind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindConstRange:
		return "const range"
	case KindMutRange:
		return "mut range"
	case KindDeviceHandle:
		return "device handle"
	default:
		return fmt.Sprintf("HandlerKind(%d)", int(k))
	}
}

// ArgumentHandler is a capability-bearing wrapper around a caller-supplied
// argument. A handler advertises exactly one Kind for its lifetime, and
// only the extraction matching that kind is expected to succeed; every
// other extraction fails with CapabilityMissing, except that a MutRange
// handler also yields its span through GetConstRange.
type ArgumentHandler interface {
	// Kind reports which extraction this handler supports.
	Kind() HandlerKind
	// TypeID reports the TypeId of the value or element this handler
	// wraps, used by the Binder's type check.
	TypeID() TypeId
	// GetPrimitive returns the serialized bytes of a scalar value plus its
	// TypeDescriptor. opName and paramName are carried only for error
	// messages.
	GetPrimitive(opName, paramName string) ([]byte, TypeDescriptor, error)
	// GetConstRange returns a read-only span and a Pin guaranteeing its
	// validity until released.
	GetConstRange(opName, paramName string) (HostSpan, Pin, error)
	// GetRange returns a read-write span and a Pin guaranteeing its
	// validity until released.
	GetRange(opName, paramName string) (HostSpan, Pin, error)
	// GetHandle returns a MemoryHandle directly; no pin is produced, the
	// handle itself owns a reference count.
	GetHandle(opName, paramName string) (MemoryHandle, error)
}

func capabilityMissing(opName, paramName string, needed, available HandlerKind) error {
	return &CapabilityMissing{
		Kernel:     opName,
		ParamIndex: -1,
		ParamName:  paramName,
		Needed:     needed,
		Available:  available,
	}
}

// baseHandler implements the three extractions an ArgumentHandler kind
// does not support, so each concrete handler only needs to implement the
// one it actually offers.
type baseHandler struct {
	kind HandlerKind
}

func (h baseHandler) Kind() HandlerKind { return h.kind }

func (h baseHandler) GetPrimitive(opName, paramName string) ([]byte, TypeDescriptor, error) {
	return nil, TypeDescriptor{}, capabilityMissing(opName, paramName, KindPrimitive, h.kind)
}

func (h baseHandler) GetConstRange(opName, paramName string) (HostSpan, Pin, error) {
	return HostSpan{}, Pin{}, capabilityMissing(opName, paramName, KindConstRange, h.kind)
}

func (h baseHandler) GetRange(opName, paramName string) (HostSpan, Pin, error) {
	return HostSpan{}, Pin{}, capabilityMissing(opName, paramName, KindMutRange, h.kind)
}

func (h baseHandler) GetHandle(opName, paramName string) (MemoryHandle, error) {
	return MemoryHandle{}, capabilityMissing(opName, paramName, KindDeviceHandle, h.kind)
}

// PrimitiveArg wraps a scalar value's serialized bytes.
type PrimitiveArg struct {
	baseHandler
	Bytes      []byte
	Descriptor TypeDescriptor
}

// NewPrimitiveArg builds a handler for a scalar value already serialized
// to bytes, alongside the TypeDescriptor that knows how to copy it.
func NewPrimitiveArg(bytes []byte, descriptor TypeDescriptor) *PrimitiveArg {
	return &PrimitiveArg{baseHandler: baseHandler{kind: KindPrimitive}, Bytes: bytes, Descriptor: descriptor}
}

// TypeID implements ArgumentHandler.
func (a *PrimitiveArg) TypeID() TypeId { return a.Descriptor.ID }

// GetPrimitive implements ArgumentHandler.
func (a *PrimitiveArg) GetPrimitive(string, string) ([]byte, TypeDescriptor, error) {
	return a.Bytes, a.Descriptor, nil
}

// ConstRangeArg wraps a read-only host span.
type ConstRangeArg struct {
	baseHandler
	Span        HostSpan
	ElementType TypeId
	PinFunc     func() Pin
}

// NewConstRangeArg builds a handler for a read-only span whose elements
// are of elementType. pinFunc is called once per extraction and must
// return a Pin keeping span.Ptr valid until released.
func NewConstRangeArg(span HostSpan, elementType TypeId, pinFunc func() Pin) *ConstRangeArg {
	return &ConstRangeArg{baseHandler: baseHandler{kind: KindConstRange}, Span: span, ElementType: elementType, PinFunc: pinFunc}
}

// TypeID implements ArgumentHandler.
func (a *ConstRangeArg) TypeID() TypeId { return a.ElementType }

// GetConstRange implements ArgumentHandler.
func (a *ConstRangeArg) GetConstRange(string, string) (HostSpan, Pin, error) {
	pin := Pin{}
	if a.PinFunc != nil {
		pin = a.PinFunc()
	}
	return a.Span, pin, nil
}

// MutRangeArg wraps a read-write host span.
type MutRangeArg struct {
	baseHandler
	Span        HostSpan
	ElementType TypeId
	PinFunc     func() Pin
}

// NewMutRangeArg builds a handler for a read-write span, analogous to
// NewConstRangeArg.
func NewMutRangeArg(span HostSpan, elementType TypeId, pinFunc func() Pin) *MutRangeArg {
	return &MutRangeArg{baseHandler: baseHandler{kind: KindMutRange}, Span: span, ElementType: elementType, PinFunc: pinFunc}
}

// TypeID implements ArgumentHandler.
func (a *MutRangeArg) TypeID() TypeId { return a.ElementType }

// GetRange implements ArgumentHandler.
func (a *MutRangeArg) GetRange(string, string) (HostSpan, Pin, error) {
	pin := Pin{}
	if a.PinFunc != nil {
		pin = a.PinFunc()
	}
	return a.Span, pin, nil
}

// GetConstRange implements ArgumentHandler: a mutable range can always be
// viewed as a const one too, which lets a read-only formal parameter
// accept a caller's mutable buffer.
func (a *MutRangeArg) GetConstRange(opName, paramName string) (HostSpan, Pin, error) {
	return a.GetRange(opName, paramName)
}

// DeviceHandleArg wraps a zero-copy MemoryHandle.
type DeviceHandleArg struct {
	baseHandler
	Handle MemoryHandle
}

// NewDeviceHandleArg builds a handler presenting a device-resident buffer
// directly, with no host-side pin.
func NewDeviceHandleArg(handle MemoryHandle) *DeviceHandleArg {
	return &DeviceHandleArg{baseHandler: baseHandler{kind: KindDeviceHandle}, Handle: handle}
}

// TypeID implements ArgumentHandler.
func (a *DeviceHandleArg) TypeID() TypeId { return a.Handle.ElementType }

// GetHandle implements ArgumentHandler.
func (a *DeviceHandleArg) GetHandle(string, string) (MemoryHandle, error) {
	return a.Handle, nil
}
