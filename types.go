package mldb

import "fmt"

// TypeId is an opaque, equality-comparable token identifying a concrete
// value type (for example "u32", "f32", or a user-defined struct name).
// The core never interprets a TypeId beyond comparing it for equality; the
// host application supplies the meaning through a TypeDescriptor.
type TypeId struct {
	name string
}

// String returns the identifier's name, mostly useful for error messages.
func (id TypeId) String() string {
	return id.name
}

// NewTypeId wraps a name as a TypeId. Two TypeIds are equal if and only if
// their names are equal.
func NewTypeId(name string) TypeId {
	return TypeId{name: name}
}

// CopyFunc copies src, a serialized value, into dst, which must have room
// for at least the size registered for dstID. It fails with TypeMismatch
// if dstID is not a type src can be copied into.
type CopyFunc func(src []byte, dst []byte, dstID TypeId) error

// TypeDescriptor is the opaque handle to a value layout the core requires
// from the host application: a type identity plus a byte-level copy
// function. It is the sole bridge between serialized bytes and a typed
// primitive value.
type TypeDescriptor struct {
	ID       TypeId
	Size     uint
	CopyInto CopyFunc
}

// AccessMode describes how a kernel body may use a formal parameter.
type AccessMode int

const (
	// ReadOnly parameters may be read, never written, by the kernel body.
	ReadOnly AccessMode = iota
	// WriteOnly parameters may be written, never read, by the kernel body.
	WriteOnly
	// ReadWrite parameters may be both read and written by the kernel body.
	ReadWrite
)

// String renders the access mode using the external "r"/"w"/"rw" notation
// used by the kernel declaration grammar.
func (mode AccessMode) String() string {
	switch mode {
	case ReadOnly:
		return "r"
	case WriteOnly:
		return "w"
	case ReadWrite:
		return "rw"
	default:
		return fmt.Sprintf("AccessMode(%d)", int(mode))
	}
}

// ParseAccessMode parses the "r"/"w"/"rw" tokens used by add_parameter.
func ParseAccessMode(s string) (AccessMode, error) {
	switch s {
	case "r":
		return ReadOnly, nil
	case "w":
		return WriteOnly, nil
	case "rw":
		return ReadWrite, nil
	default:
		return 0, WrapperError(fmt.Sprintf("invalid access mode %q", s))
	}
}

// TypeRegistry resolves the element-type names used in type_expr strings
// (for example the "u32" in "u32[n]") against their TypeDescriptor. It is
// a separate, smaller table than the backend/kernel Registry in package
// registry.
type TypeRegistry struct {
	descriptors map[string]TypeDescriptor
}

// NewTypeRegistry returns an empty registry. Use Register to populate it
// before building KernelSpecs with it.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{descriptors: make(map[string]TypeDescriptor)}
}

// Register binds a primitive type name (as used in type_expr strings) to
// its TypeDescriptor. Re-registering the same name overwrites the prior
// descriptor; callers that want stricter behavior should check Lookup
// first.
func (r *TypeRegistry) Register(name string, descriptor TypeDescriptor) {
	r.descriptors[name] = descriptor
}

// Lookup returns the TypeDescriptor registered for name, if any.
func (r *TypeRegistry) Lookup(name string) (TypeDescriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// copyByBytes is a CopyFunc for types whose copy semantics are a plain
// byte-for-byte move, gated on an exact TypeId match. It is a convenience
// for host applications whose primitives have no cross-type conversion.
func copyByBytes(id TypeId, size uint) CopyFunc {
	return func(src []byte, dst []byte, dstID TypeId) error {
		if dstID != id {
			return &TypeMismatch{ExpectedType: dstID.String(), GotType: id.String()}
		}
		if uint(len(src)) < size {
			return WrapperError(fmt.Sprintf("source too small: need %d bytes, have %d", size, len(src)))
		}
		if uint(len(dst)) < size {
			return WrapperError(fmt.Sprintf("destination too small: need %d bytes, have %d", size, len(dst)))
		}
		copy(dst[:size], src[:size])
		return nil
	}
}

// StandardTypeRegistry returns a TypeRegistry pre-populated with the
// scalar primitives kernel declarations in this codebase's tests and
// demos use: u8, u32, u64, i32, i64, f32, f64. Host applications with
// richer value systems (structs, JSON-described cell values, and so on)
// are expected to build their own registry; file-format/value-description
// infrastructure is treated as an external collaborator here.
func StandardTypeRegistry() *TypeRegistry {
	r := NewTypeRegistry()
	prims := []struct {
		name string
		size uint
	}{
		{"u8", 1}, {"u32", 4}, {"u64", 8},
		{"i32", 4}, {"i64", 8},
		{"f32", 4}, {"f64", 8},
	}
	for _, p := range prims {
		r.Register(p.name, TypeDescriptor{
			ID:       NewTypeId(p.name),
			Size:     p.size,
			CopyInto: copyByBytes(NewTypeId(p.name), p.size),
		})
	}
	return r
}
