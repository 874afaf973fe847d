package mldb

// IterateGrid walks every work item across plans, axis 0 outermost, in
// lexicographic order, and invokes work with the item's index. When a
// kernel allows grid padding, IterateGrid skips indices that fall outside
// an axis's logical extent so the caller's body never observes an
// out-of-range index — equivalent to, but simpler than, requiring every
// kernel body to bounds-check itself. A kernel body is free to do its own
// check instead, but the host back-end's default dispatcher performs it
// up front since it owns the loop.
func IterateGrid(plans []AxisPlan, work func(index []uint64) error) error {
	index := make([]uint64, len(plans))
	return iterateAxis(plans, index, 0, work)
}

func iterateAxis(plans []AxisPlan, index []uint64, axis int, work func(index []uint64) error) error {
	if axis == len(plans) {
		return work(index)
	}
	ranges := plans[axis].Ranges()
	var result error
	ranges.Each(func(i uint64) {
		if result != nil {
			return
		}
		if !ranges.InBounds(i) {
			return
		}
		index[axis] = i
		result = iterateAxis(plans, index, axis+1, work)
	})
	return result
}

// IterateOuterAsRange is used by kernels that request the outermost axis
// be delivered as a GridRange they iterate themselves (useful for tiled
// loops), while inner axes are still iterated sequentially by the host
// dispatcher at the correct nesting level.
func IterateOuterAsRange(plans []AxisPlan, work func(outer GridRange, innerIndex []uint64) error) error {
	if len(plans) == 0 {
		return work(GridRange{}, nil)
	}
	outer := plans[0].Ranges()
	inner := plans[1:]
	if len(inner) == 0 {
		return work(outer, nil)
	}
	index := make([]uint64, len(inner))
	return iterateAxis(inner, index, 0, func(idx []uint64) error {
		return work(outer, idx)
	})
}
