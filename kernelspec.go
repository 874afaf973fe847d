package mldb

import "fmt"

// FormalParameter is the static description of one kernel argument slot:
// its name, element type, access mode, and shape (scalar or array length
// expression).
type FormalParameter struct {
	Name        string
	ElementType TypeDescriptor
	Access      AccessMode
	Shape       ParameterShape
}

// ConstraintOp is the comparison operator of a Constraint.
type ConstraintOp string

// The comparison operators add_constraint accepts.
const (
	OpEq ConstraintOp = "=="
	OpLe ConstraintOp = "<="
	OpLt ConstraintOp = "<"
	OpGe ConstraintOp = ">="
	OpGt ConstraintOp = ">"
	OpNe ConstraintOp = "!="
)

func (op ConstraintOp) apply(a, b int64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpLe:
		return a <= b
	case OpLt:
		return a < b
	case OpGe:
		return a >= b
	case OpGt:
		return a > b
	case OpNe:
		return a != b
	default:
		return false
	}
}

// Constraint is a named relation between two shape expressions, attached
// to a KernelSpec with add_constraint. A constraint whose operands
// reference only identifiers resolvable at bind
// time (tuneables, dimensions, already-bound primitive parameters) is
// checked as a hard assertion; one referencing anything else (for example
// a device-specific limit the binder cannot evaluate) is recorded as a
// hint instead.
type Constraint struct {
	LHS, RHS Expr
	Op       ConstraintOp
	Why      string
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s %s %s (%s)", c.LHS, c.Op, c.RHS, c.Why)
}

// EntryRef names the kernel's compute entry point. For the host back-end
// this is simply the Go function bound at registration time; other
// back-ends would resolve it against a compiled program.
type EntryRef struct {
	Name string
}

// KernelSpec is the static description of one kernel: its formal
// parameters, grid dimensions, tuneables, constraints, and entry point.
// A KernelSpec exclusively owns its FormalParameters.
type KernelSpec struct {
	Name             string
	Parameters       []FormalParameter
	Dimensions       []Dimension
	Tuneables        map[string]int64
	Constraints      []Constraint
	GridGlobal       []Expr
	GridLocal        []Expr
	Entry            EntryRef
	AllowGridPadding bool
}

// Dimension is one declared grid axis: a name, its extent expression, and
// an optional default block (local work-group) size.
type Dimension struct {
	Name         string
	Extent       Expr
	DefaultBlock *int64
}

// ParamByName returns the formal parameter named name, if declared.
func (spec *KernelSpec) ParamByName(name string) (FormalParameter, bool) {
	for _, p := range spec.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return FormalParameter{}, false
}

// Builder assembles a KernelSpec incrementally through an imperative
// add_parameter/add_dimension/... declaration surface.
// Every KernelSpec should be built through a Builder rather than
// constructed by hand, since the Builder is what enforces the "every
// identifier is declared" and "no duplicate names" invariants.
type Builder struct {
	spec        KernelSpec
	names       map[string]string // name -> scope it was declared in
	declaredIDs map[string]struct{}
	types       *TypeRegistry
	err         error
}

// NewBuilder starts a new KernelSpec named name, resolving type_expr
// element-type names against types.
func NewBuilder(name string, types *TypeRegistry) *Builder {
	return &Builder{
		spec: KernelSpec{
			Name:      name,
			Tuneables: make(map[string]int64),
		},
		names:       make(map[string]string),
		declaredIDs: make(map[string]struct{}),
		types:       types,
	}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (b *Builder) declare(scope, name string) bool {
	if _, exists := b.names[name]; exists {
		b.fail(&DuplicateName{Scope: scope, Name: name})
		return false
	}
	b.names[name] = scope
	b.declaredIDs[name] = struct{}{}
	return true
}

// AddParameter declares a formal parameter. access is "r", "w", or "rw";
// typeExpr is parsed with the "<prim> | <prim>[<expr>]" grammar.
func (b *Builder) AddParameter(name, access, typeExpr string) *Builder {
	if b.err != nil {
		return b
	}
	if !b.declare("parameter", name) {
		return b
	}
	mode, err := ParseAccessMode(access)
	if err != nil {
		return b.fail(err)
	}
	parsed, err := ParseTypeExpr(typeExpr)
	if err != nil {
		return b.fail(err)
	}
	descriptor, ok := b.types.Lookup(parsed.ElementName)
	if !ok {
		return b.fail(&UnknownIdentifier{Context: "type registry", Name: parsed.ElementName})
	}
	if parsed.Shape.IsArray {
		if err := b.checkIdentifiers("parameter "+name, parsed.Shape.Length); err != nil {
			return b.fail(err)
		}
	}
	b.spec.Parameters = append(b.spec.Parameters, FormalParameter{
		Name:        name,
		ElementType: descriptor,
		Access:      mode,
		Shape:       parsed.Shape,
	})
	return b
}

// AddDimension declares a grid axis. extentExpr may reference tuneables,
// earlier dimensions, or primitive parameters. defaultBlock, if present,
// is the local work-group size used when a caller's grid expression omits
// one.
func (b *Builder) AddDimension(name, extentExpr string, defaultBlock ...int64) *Builder {
	if b.err != nil {
		return b
	}
	if !b.declare("dimension", name) {
		return b
	}
	expr, err := ParseExpr(extentExpr)
	if err != nil {
		return b.fail(err)
	}
	if err := b.checkIdentifiers("dimension "+name, expr); err != nil {
		return b.fail(err)
	}
	dim := Dimension{Name: name, Extent: expr}
	if len(defaultBlock) > 0 {
		v := defaultBlock[0]
		dim.DefaultBlock = &v
	}
	b.spec.Dimensions = append(b.spec.Dimensions, dim)
	return b
}

// AddTuneable declares a named integer tuneable with a default value.
func (b *Builder) AddTuneable(name string, defaultValue int64) *Builder {
	if b.err != nil {
		return b
	}
	if !b.declare("tuneable", name) {
		return b
	}
	b.spec.Tuneables[name] = defaultValue
	return b
}

// AddConstraint attaches a named relation between two shape expressions.
func (b *Builder) AddConstraint(lhs string, op ConstraintOp, rhs string, why string) *Builder {
	if b.err != nil {
		return b
	}
	lhsExpr, err := ParseExpr(lhs)
	if err != nil {
		return b.fail(err)
	}
	rhsExpr, err := ParseExpr(rhs)
	if err != nil {
		return b.fail(err)
	}
	b.spec.Constraints = append(b.spec.Constraints, Constraint{LHS: lhsExpr, RHS: rhsExpr, Op: op, Why: why})
	return b
}

// SetGridExpression sets the grid's global (absolute work count per axis)
// and local (block size per axis) expression lists. Each is a
// comma-separated list of expressions in declared identifiers, one per
// axis, in the same order AddDimension declared them.
func (b *Builder) SetGridExpression(global, local []string) *Builder {
	if b.err != nil {
		return b
	}
	globalExprs, err := b.parseExprList("grid global", global)
	if err != nil {
		return b.fail(err)
	}
	localExprs, err := b.parseExprList("grid local", local)
	if err != nil {
		return b.fail(err)
	}
	b.spec.GridGlobal = globalExprs
	b.spec.GridLocal = localExprs
	return b
}

func (b *Builder) parseExprList(context string, exprs []string) ([]Expr, error) {
	out := make([]Expr, len(exprs))
	for i, s := range exprs {
		expr, err := ParseExpr(s)
		if err != nil {
			return nil, err
		}
		if err := b.checkIdentifiers(context, expr); err != nil {
			return nil, err
		}
		out[i] = expr
	}
	return out, nil
}

// SetEntry names the kernel's compute entry point.
func (b *Builder) SetEntry(entry string) *Builder {
	if b.err != nil {
		return b
	}
	b.spec.Entry = EntryRef{Name: entry}
	return b
}

// AllowGridPadding marks the kernel as tolerant of launches whose global
// work size exceeds its logical extent on some axis. Padded work items
// past the logical extent are skipped by IterateGrid before the kernel
// body is called.
func (b *Builder) AllowGridPadding() *Builder {
	if b.err != nil {
		return b
	}
	b.spec.AllowGridPadding = true
	return b
}

// checkIdentifiers verifies every identifier expr references is a
// tuneable, a dimension name, or a primitive-shaped parameter already
// declared.
func (b *Builder) checkIdentifiers(context string, expr Expr) error {
	ids := make(map[string]struct{})
	expr.Identifiers(ids)
	for name := range ids {
		if _, ok := b.spec.Tuneables[name]; ok {
			continue
		}
		if _, ok := b.declaredIDs[name]; ok {
			// Declared as a dimension or parameter name; if it is a
			// parameter it must be primitive-shaped.
			if param, isParam := b.spec.ParamByName(name); isParam && param.Shape.IsArray {
				return &UnknownIdentifier{Context: context, Name: name}
			}
			continue
		}
		return &UnknownIdentifier{Context: context, Name: name}
	}
	return nil
}

// Build finalizes the KernelSpec, or returns the first error encountered
// during any prior builder call.
func (b *Builder) Build() (*KernelSpec, error) {
	if b.err != nil {
		return nil, b.err
	}
	spec := b.spec
	return &spec, nil
}
