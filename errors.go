package mldb

import "fmt"

// ArityMismatch is returned when a caller supplies a different number of
// arguments than a kernel declares formal parameters for.
type ArityMismatch struct {
	Kernel   string
	Expected int
	Got      int
}

func (err *ArityMismatch) Error() string {
	return fmt.Sprintf("kernel %q: arity mismatch: expected %d argument(s), got %d", err.Kernel, err.Expected, err.Got)
}

// TypeMismatch is returned when an argument's type cannot be reconciled
// with the element type declared by the corresponding formal parameter.
type TypeMismatch struct {
	Kernel       string
	ParamIndex   int
	ParamName    string
	ExpectedType string
	GotType      string
}

func (err *TypeMismatch) Error() string {
	return fmt.Sprintf("kernel %q: parameter %d (%s): type mismatch: expected %s, got %s",
		err.Kernel, err.ParamIndex, err.ParamName, err.ExpectedType, err.GotType)
}

// CapabilityMissing is returned when a handler cannot yield the extraction
// a formal parameter's shape requires (see the marshaller's shape table).
type CapabilityMissing struct {
	Kernel     string
	ParamIndex int
	ParamName  string
	Needed     HandlerKind
	Available  HandlerKind
}

func (err *CapabilityMissing) Error() string {
	return fmt.Sprintf("kernel %q: parameter %d (%s): capability missing: needed %s, available %s",
		err.Kernel, err.ParamIndex, err.ParamName, err.Needed, err.Available)
}

// SizeNotAligned is returned when a range argument's byte length is not a
// multiple of the formal element type's size, or when its element count
// differs from the length the parameter's shape expression evaluates to.
type SizeNotAligned struct {
	Kernel      string
	ParamIndex  int
	ParamName   string
	ElementSize uint
	ByteLen     uint
}

func (err *SizeNotAligned) Error() string {
	if err.ElementSize != 0 && err.ByteLen%err.ElementSize == 0 {
		return fmt.Sprintf("kernel %q: parameter %d (%s): size mismatch: %d bytes (%d elements) does not match the declared length",
			err.Kernel, err.ParamIndex, err.ParamName, err.ByteLen, err.ByteLen/err.ElementSize)
	}
	return fmt.Sprintf("kernel %q: parameter %d (%s): size not aligned: %d bytes is not a multiple of element size %d",
		err.Kernel, err.ParamIndex, err.ParamName, err.ByteLen, err.ElementSize)
}

// DuplicateName is returned by the KernelSpec builder when a parameter,
// dimension, or tuneable name is declared more than once in the same scope.
type DuplicateName struct {
	Scope string
	Name  string
}

func (err *DuplicateName) Error() string {
	return fmt.Sprintf("duplicate name %q in %s scope", err.Name, err.Scope)
}

// UnknownIdentifier is returned when a shape or grid expression references
// an identifier that is not a declared tuneable, dimension, or primitive
// parameter.
type UnknownIdentifier struct {
	Context string
	Name    string
}

func (err *UnknownIdentifier) Error() string {
	return fmt.Sprintf("unknown identifier %q in %s", err.Name, err.Context)
}

// GridMisalignment is returned at submission time when grid padding is not
// allowed and the global work size is not an exact multiple of the local
// (block) size on some axis.
type GridMisalignment struct {
	Axis   int
	Global uint64
	Local  uint64
}

func (err *GridMisalignment) Error() string {
	return fmt.Sprintf("grid misalignment on axis %d: global %d is not a multiple of local %d",
		err.Axis, err.Global, err.Local)
}

// BackendMismatch is returned when a handle, kernel, or event produced by
// one back-end is presented to another back-end's queue or binder.
type BackendMismatch struct {
	Expected string
	Got      string
}

func (err *BackendMismatch) Error() string {
	return fmt.Sprintf("backend mismatch: expected %q, got %q", err.Expected, err.Got)
}

// AlreadyRegistered is returned by the Registry when a (backend, name) pair
// already has a factory bound to it.
type AlreadyRegistered struct {
	Backend string
	Name    string
}

func (err *AlreadyRegistered) Error() string {
	return fmt.Sprintf("kernel %q already registered for backend %q", err.Name, err.Backend)
}

// PrereqFailed wraps the error of a prerequisite Event that did not
// resolve, preserving the original failure as the cause of a dependent
// Event's failure.
type PrereqFailed struct {
	Cause error
}

func (err *PrereqFailed) Error() string {
	return fmt.Sprintf("prerequisite failed: %v", err.Cause)
}

// Unwrap exposes the root cause so errors.Is/errors.As can see through
// chains of dependent PrereqFailed events.
func (err *PrereqFailed) Unwrap() error {
	return err.Cause
}

// WrapperError is a simple string-based error, used for conditions that
// carry no structured payload.
type WrapperError string

func (err WrapperError) Error() string {
	return string(err)
}

const (
	// ErrCancelled is returned by Await when the event was cancelled before
	// it resolved. Cancellation is advisory; a back-end that had already
	// begun the work may still resolve or fail normally instead.
	ErrCancelled = WrapperError("event cancelled")
	// ErrTimedOut is returned by AwaitFor when the deadline elapses before
	// the event reaches a terminal state. The event's own state is left
	// unchanged.
	ErrTimedOut = WrapperError("await timed out")
)
