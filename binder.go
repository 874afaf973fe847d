package mldb

import "fmt"

// BoundKind identifies the concrete shape of a BoundArg's value.
type BoundKind int

const (
	// BoundPrimitiveValue holds a scalar value's bytes, copied through the
	// source TypeDescriptor's CopyInto.
	BoundPrimitiveValue BoundKind = iota
	// BoundDeviceHandle holds a MemoryHandle, bound zero-copy.
	BoundDeviceHandle
	// BoundSpan holds a typed host-addressable span, kept alive by a Pin.
	BoundSpan
)

// BoundArg is one formal parameter's resolved binding.
type BoundArg struct {
	Param FormalParameter
	Kind  BoundKind

	// Valid when Kind == BoundPrimitiveValue.
	Bytes []byte
	// Valid when Kind == BoundDeviceHandle.
	Handle MemoryHandle
	// Valid when Kind == BoundSpan.
	Span TypedSpan
}

// BoundKernel pairs a KernelSpec with validated arguments, the pins that
// keep their underlying memory alive, and a callable entry point. Every
// formal parameter has exactly one bound argument.
type BoundKernel struct {
	Spec     *KernelSpec
	Bound    []BoundArg
	Pins     []Pin
	Callable FnCallable
	Env      Env
	Hints    []Constraint
}

// FnCallable is the entry point a bound kernel invokes. For the host
// back-end this is a plain Go function; other back-ends would instead
// resolve EntryRef against a compiled program and never call this value.
type FnCallable func(call Call) error

// Call is what a host-back-end kernel body receives: its resolved
// bindings plus the grid index(es) assigned to this invocation.
type Call struct {
	Bound []BoundArg
	Index []uint64
}

// Arg returns the index-th bound argument's value.
func (c Call) Arg(index int) BoundArg {
	return c.Bound[index]
}

// Binder reconciles caller-supplied ArgumentHandlers against a
// KernelSpec's formal parameters, producing a BoundKernel.
type Binder struct{}

// NewBinder returns a Binder. A Binder carries no state of its own; it
// exists as a named type so call sites read like other component
// boundaries, with Bind as the single entry point for this concern.
func NewBinder() *Binder { return &Binder{} }

// Bind reconciles args against spec's formal parameters in order,
// producing bindings and pins. On any failure it releases every pin
// already accumulated for this call and returns the annotated error; no
// pin or handle reference leaks.
func (*Binder) Bind(spec *KernelSpec, args []ArgumentHandler, tuneableOverrides map[string]int64, entry FnCallable) (*BoundKernel, error) {
	if len(args) != len(spec.Parameters) {
		return nil, &ArityMismatch{Kernel: spec.Name, Expected: len(spec.Parameters), Got: len(args)}
	}

	env, err := BaseEnv(spec, tuneableOverrides)
	if err != nil {
		return nil, err
	}

	bound := make([]BoundArg, len(spec.Parameters))
	var pins []Pin

	fail := func(err error) (*BoundKernel, error) {
		ReleaseAll(pins)
		return nil, err
	}

	for i, param := range spec.Parameters {
		arg := args[i]
		b, pin, err := bindOne(spec.Name, i, param, arg, env)
		if err != nil {
			return fail(err)
		}
		bound[i] = b
		if pin.release != nil {
			pins = append(pins, pin)
		}
		// A primitive parameter's value becomes available to later shape
		// expressions (e.g. an array length "n" bound from a prior "n:u32"
		// parameter).
		if !param.Shape.IsArray && b.Kind == BoundPrimitiveValue {
			if v, ok := decodeInt(param.ElementType, b.Bytes); ok {
				env = env.With(param.Name, v)
			}
		}
	}

	hints, err := evaluateConstraints(spec, env)
	if err != nil {
		return fail(err)
	}

	return &BoundKernel{
		Spec:     spec,
		Bound:    bound,
		Pins:     pins,
		Callable: entry,
		Env:      env,
		Hints:    hints,
	}, nil
}

func bindOne(kernelName string, index int, param FormalParameter, arg ArgumentHandler, env Env) (BoundArg, Pin, error) {
	if !param.Shape.IsArray {
		return bindPrimitive(kernelName, index, param, arg)
	}
	length, err := param.Shape.Length.Eval(env)
	if err != nil {
		return BoundArg{}, Pin{}, err
	}
	return bindArray(kernelName, index, param, arg, length)
}

func bindPrimitive(kernelName string, index int, param FormalParameter, arg ArgumentHandler) (BoundArg, Pin, error) {
	if arg.Kind() != KindPrimitive {
		return BoundArg{}, Pin{}, &CapabilityMissing{Kernel: kernelName, ParamIndex: index, ParamName: param.Name, Needed: KindPrimitive, Available: arg.Kind()}
	}
	bytes, descriptor, err := arg.GetPrimitive(kernelName, param.Name)
	if err != nil {
		return BoundArg{}, Pin{}, err
	}
	buf := make([]byte, param.ElementType.Size)
	if descriptor.CopyInto == nil {
		return BoundArg{}, Pin{}, &TypeMismatch{Kernel: kernelName, ParamIndex: index, ParamName: param.Name, ExpectedType: param.ElementType.ID.String(), GotType: descriptor.ID.String()}
	}
	if err := descriptor.CopyInto(bytes, buf, param.ElementType.ID); err != nil {
		return BoundArg{}, Pin{}, &TypeMismatch{Kernel: kernelName, ParamIndex: index, ParamName: param.Name, ExpectedType: param.ElementType.ID.String(), GotType: descriptor.ID.String()}
	}
	return BoundArg{Param: param, Kind: BoundPrimitiveValue, Bytes: buf}, Pin{}, nil
}

func bindArray(kernelName string, index int, param FormalParameter, arg ArgumentHandler, length int64) (BoundArg, Pin, error) {
	needsMutable := param.Access != ReadOnly

	switch arg.Kind() {
	case KindDeviceHandle:
		handle, err := arg.GetHandle(kernelName, param.Name)
		if err != nil {
			return BoundArg{}, Pin{}, err
		}
		if handle.ElementType != param.ElementType.ID {
			return BoundArg{}, Pin{}, &TypeMismatch{Kernel: kernelName, ParamIndex: index, ParamName: param.Name, ExpectedType: param.ElementType.ID.String(), GotType: handle.ElementType.String()}
		}
		if param.Access == ReadOnly {
			handle = handle.AsElementType(param.ElementType.ID)
		}
		return BoundArg{Param: param, Kind: BoundDeviceHandle, Handle: handle}, Pin{}, nil

	case KindMutRange:
		var span HostSpan
		var pin Pin
		var err error
		if needsMutable {
			span, pin, err = arg.GetRange(kernelName, param.Name)
		} else {
			span, pin, err = arg.GetConstRange(kernelName, param.Name)
		}
		if err != nil {
			return BoundArg{}, Pin{}, err
		}
		return finishSpanBind(kernelName, index, param, arg, span, pin, length)

	case KindConstRange:
		if needsMutable {
			return BoundArg{}, Pin{}, &CapabilityMissing{Kernel: kernelName, ParamIndex: index, ParamName: param.Name, Needed: KindMutRange, Available: KindConstRange}
		}
		span, pin, err := arg.GetConstRange(kernelName, param.Name)
		if err != nil {
			return BoundArg{}, Pin{}, err
		}
		return finishSpanBind(kernelName, index, param, arg, span, pin, length)

	default:
		needed := KindConstRange
		if needsMutable {
			needed = KindMutRange
		}
		return BoundArg{}, Pin{}, &CapabilityMissing{Kernel: kernelName, ParamIndex: index, ParamName: param.Name, Needed: needed, Available: arg.Kind()}
	}
}

func finishSpanBind(kernelName string, index int, param FormalParameter, arg ArgumentHandler, span HostSpan, pin Pin, length int64) (BoundArg, Pin, error) {
	if arg.TypeID() != param.ElementType.ID {
		pin.Release()
		return BoundArg{}, Pin{}, &TypeMismatch{Kernel: kernelName, ParamIndex: index, ParamName: param.Name, ExpectedType: param.ElementType.ID.String(), GotType: arg.TypeID().String()}
	}
	elemSize := param.ElementType.Size
	if elemSize == 0 || span.LengthBytes%elemSize != 0 {
		pin.Release()
		return BoundArg{}, Pin{}, &SizeNotAligned{Kernel: kernelName, ParamIndex: index, ParamName: param.Name, ElementSize: elemSize, ByteLen: span.LengthBytes}
	}
	elemCount := span.LengthBytes / elemSize
	if int64(elemCount) != length {
		pin.Release()
		return BoundArg{}, Pin{}, &SizeNotAligned{Kernel: kernelName, ParamIndex: index, ParamName: param.Name, ElementSize: elemSize, ByteLen: span.LengthBytes}
	}
	return BoundArg{Param: param, Kind: BoundSpan, Span: TypedSpan{Ptr: span.Ptr, Len: elemCount, ElementSize: elemSize}}, pin, nil
}

// decodeInt extracts a small integer from a bound primitive's raw bytes,
// used so later shape/grid expressions can reference an already-bound
// primitive parameter (e.g. "n" in "f32[n]"). It supports the unsigned
// and signed integer widths StandardTypeRegistry registers.
func decodeInt(descriptor TypeDescriptor, buf []byte) (int64, bool) {
	signed := false
	switch descriptor.ID {
	case NewTypeId("u8"), NewTypeId("u32"), NewTypeId("u64"):
	case NewTypeId("i32"), NewTypeId("i64"):
		signed = true
	default:
		return 0, false
	}
	var v uint64
	for i := uint(0); i < descriptor.Size && int(i) < len(buf); i++ {
		v |= uint64(buf[i]) << (8 * i)
	}
	if signed && descriptor.Size == 4 {
		return int64(int32(uint32(v))), true
	}
	return int64(v), true
}

// evaluateConstraints checks every hard-bindable Constraint on spec
// against env, failing on the first violation, and returns the remaining
// constraints (those that reference an identifier env does not carry) as
// hints for the caller to inspect via BoundKernel.Hints.
func evaluateConstraints(spec *KernelSpec, env Env) ([]Constraint, error) {
	var hints []Constraint
	for _, c := range spec.Constraints {
		lhs, lerr := c.LHS.Eval(env)
		rhs, rerr := c.RHS.Eval(env)
		if lerr != nil || rerr != nil {
			hints = append(hints, c)
			continue
		}
		if !c.Op.apply(lhs, rhs) {
			return nil, fmt.Errorf("constraint violated: %s", c)
		}
	}
	return hints, nil
}
