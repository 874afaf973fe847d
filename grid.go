package mldb

// GridRange is a half-open interval [Lo, Hi) over one grid dimension, plus
// the dimension's full logical extent (Range), used for boundary checks
// when the kernel is launched with allow_grid_padding set. Iterating a
// GridRange yields indices in ascending order.
type GridRange struct {
	Lo, Hi uint64
	Range  uint64
}

// InBounds reports whether index i is within the dimension's logical
// extent, i.e. whether a padded work item at i should actually execute.
func (r GridRange) InBounds(i uint64) bool {
	return i < r.Range
}

// Each calls fn for every index in [Lo, Hi), in ascending order.
func (r GridRange) Each(fn func(i uint64)) {
	for i := r.Lo; i < r.Hi; i++ {
		fn(i)
	}
}

// AxisPlan is the resolved launch geometry for one grid axis: the
// absolute work count (global), the block size (local), and the number of
// blocks, satisfying CeilDiv(global, local)*local >= global.
type AxisPlan struct {
	Global uint64
	Local  uint64
	Blocks uint64
}

// ResolveGrid evaluates a KernelSpec's grid_expr against env (built from
// resolved tuneables, dimension extents, and bound primitive parameters)
// and returns one AxisPlan per declared dimension. An axis with no local
// expression takes its dimension's default block size. If
// spec.AllowGridPadding is false and some axis's global size is not an
// exact multiple of its local size, it fails with GridMisalignment.
func ResolveGrid(spec *KernelSpec, env Env) ([]AxisPlan, error) {
	plans := make([]AxisPlan, len(spec.Dimensions))
	for i, dim := range spec.Dimensions {
		globalVal, err := spec.GridGlobal[i].Eval(env)
		if err != nil {
			return nil, err
		}
		var localVal int64
		switch {
		case i < len(spec.GridLocal):
			localVal, err = spec.GridLocal[i].Eval(env)
			if err != nil {
				return nil, err
			}
		case dim.DefaultBlock != nil:
			localVal = *dim.DefaultBlock
		default:
			return nil, &UnknownIdentifier{Context: "grid local", Name: dim.Name}
		}
		if globalVal < 0 || localVal <= 0 {
			return nil, &GridMisalignment{Axis: i, Global: uint64(globalVal), Local: uint64(localVal)}
		}
		global, local := uint64(globalVal), uint64(localVal)
		if !spec.AllowGridPadding && global%local != 0 {
			return nil, &GridMisalignment{Axis: i, Global: global, Local: local}
		}
		blocks := CeilDiv(int64(global), int64(local))
		plans[i] = AxisPlan{Global: global, Local: uint64(blocks) * local, Blocks: uint64(blocks)}
		// Local here names the block size, not the padded global size;
		// keep both available to callers that need the padded extent.
		plans[i].Local = local
	}
	return plans, nil
}

// PaddedGlobal returns the padded work count for the axis (Blocks*Local),
// which may exceed Global when allow_grid_padding let the grid round up.
func (p AxisPlan) PaddedGlobal() uint64 {
	return p.Blocks * p.Local
}

// Ranges converts a resolved AxisPlan into a GridRange covering the
// padded extent, with Range set to the logical (unpadded) extent for
// boundary checks.
func (p AxisPlan) Ranges() GridRange {
	return GridRange{Lo: 0, Hi: p.PaddedGlobal(), Range: p.Global}
}

// BaseEnv builds the Env a KernelSpec's grid and shape expressions
// resolve against, from its tuneable defaults overridden by any supplied
// in overrides, and the dimension extents evaluated in declaration order
// (so later dimensions may reference earlier ones).
func BaseEnv(spec *KernelSpec, tuneableOverrides map[string]int64) (Env, error) {
	env := NewEnv()
	for name, def := range spec.Tuneables {
		env = env.With(name, def)
	}
	for name, v := range tuneableOverrides {
		if _, declared := spec.Tuneables[name]; !declared {
			return Env{}, &UnknownIdentifier{Context: "tuneable override", Name: name}
		}
		env = env.With(name, v)
	}
	for _, dim := range spec.Dimensions {
		v, err := dim.Extent.Eval(env)
		if err != nil {
			return Env{}, err
		}
		env = env.With(dim.Name, v)
	}
	return env, nil
}
