package mldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGridSpec(t *testing.T, allowPadding bool) *KernelSpec {
	t.Helper()
	types := StandardTypeRegistry()
	b := NewBuilder("gridtest", types).
		AddTuneable("block", 4).
		AddTuneable("count", 0).
		AddDimension("n", "count")
	if allowPadding {
		b = b.AllowGridPadding()
	}
	spec, err := b.SetGridExpression([]string{"n"}, []string{"block"}).SetEntry("noop").Build()
	require.NoError(t, err)
	return spec
}

func TestResolveGridExactMultiple(t *testing.T) {
	spec := buildGridSpec(t, false)
	env, err := BaseEnv(spec, map[string]int64{"count": 8})
	require.NoError(t, err)

	plans, err := ResolveGrid(spec, env)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, uint64(8), plans[0].Global)
	assert.Equal(t, uint64(4), plans[0].Local)
	assert.Equal(t, uint64(2), plans[0].Blocks)
	assert.Equal(t, uint64(8), plans[0].PaddedGlobal())
}

func TestResolveGridMisalignmentWithoutPadding(t *testing.T) {
	spec := buildGridSpec(t, false)
	env, err := BaseEnv(spec, map[string]int64{"count": 10})
	require.NoError(t, err)

	_, err = ResolveGrid(spec, env)
	var mis *GridMisalignment
	require.ErrorAs(t, err, &mis)
	assert.Equal(t, uint64(10), mis.Global)
	assert.Equal(t, uint64(4), mis.Local)
}

func TestResolveGridPaddedWhenAllowed(t *testing.T) {
	spec := buildGridSpec(t, true)
	env, err := BaseEnv(spec, map[string]int64{"count": 10})
	require.NoError(t, err)

	plans, err := ResolveGrid(spec, env)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), plans[0].Global)
	assert.Equal(t, uint64(12), plans[0].PaddedGlobal())
	assert.Equal(t, uint64(3), plans[0].Blocks)
}

func TestIterateGridSkipsPaddedTail(t *testing.T) {
	spec := buildGridSpec(t, true)
	env, err := BaseEnv(spec, map[string]int64{"count": 10})
	require.NoError(t, err)
	plans, err := ResolveGrid(spec, env)
	require.NoError(t, err)

	var seen []uint64
	err = IterateGrid(plans, func(index []uint64) error {
		seen = append(seen, index[0])
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 10)
	assert.Equal(t, uint64(9), seen[len(seen)-1])
}

func TestBaseEnvRejectsUnknownTuneableOverride(t *testing.T) {
	spec := buildGridSpec(t, false)
	_, err := BaseEnv(spec, map[string]int64{"bogus": 1})
	var unknown *UnknownIdentifier
	assert.ErrorAs(t, err, &unknown)
}

func TestIterateOuterAsRangeHandlesZeroDimensions(t *testing.T) {
	calls := 0
	err := IterateOuterAsRange(nil, func(outer GridRange, inner []uint64) error {
		calls++
		assert.Equal(t, GridRange{}, outer)
		assert.Nil(t, inner)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIterateOuterAsRangeDeliversOuterRangeOncePerInnerIndex(t *testing.T) {
	outerPlan := AxisPlan{Global: 4, Local: 4, Blocks: 1}
	innerPlan := AxisPlan{Global: 3, Local: 3, Blocks: 1}

	var innerSeen [][]uint64
	err := IterateOuterAsRange([]AxisPlan{outerPlan, innerPlan}, func(outer GridRange, inner []uint64) error {
		assert.Equal(t, outerPlan.Ranges(), outer)
		innerSeen = append(innerSeen, append([]uint64(nil), inner...))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]uint64{{0}, {1}, {2}}, innerSeen)
}
