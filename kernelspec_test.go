package mldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBuildsSpec(t *testing.T) {
	types := StandardTypeRegistry()
	spec, err := NewBuilder("add2", types).
		AddTuneable("block", 64).
		AddTuneable("count", 0).
		AddDimension("n", "count").
		AddParameter("a", "r", "f32[n]").
		AddParameter("b", "r", "f32[n]").
		AddParameter("out", "w", "f32[n]").
		SetGridExpression([]string{"n"}, []string{"block"}).
		SetEntry("add2").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "add2", spec.Name)
	assert.Len(t, spec.Parameters, 3)
	param, ok := spec.ParamByName("out")
	require.True(t, ok)
	assert.Equal(t, WriteOnly, param.Access)
	assert.True(t, param.Shape.IsArray)
}

func TestBuilderRejectsDuplicateName(t *testing.T) {
	types := StandardTypeRegistry()
	_, err := NewBuilder("dup", types).
		AddTuneable("n", 0).
		AddDimension("n", "0").
		Build()
	var dup *DuplicateName
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "n", dup.Name)
}

func TestBuilderRejectsUnknownIdentifierInShape(t *testing.T) {
	types := StandardTypeRegistry()
	_, err := NewBuilder("bad", types).
		AddParameter("a", "r", "f32[n]").
		Build()
	var unknown *UnknownIdentifier
	assert.ErrorAs(t, err, &unknown)
}

func TestBuilderRejectsArrayParameterInShapeExpression(t *testing.T) {
	types := StandardTypeRegistry()
	_, err := NewBuilder("bad", types).
		AddTuneable("count", 0).
		AddDimension("n", "count").
		AddParameter("lengths", "r", "u32[n]").
		AddParameter("a", "r", "f32[lengths]").
		Build()
	var unknown *UnknownIdentifier
	require.ErrorAs(t, err, &unknown)
}

func TestBuilderRejectsUnknownElementType(t *testing.T) {
	types := StandardTypeRegistry()
	_, err := NewBuilder("bad", types).
		AddParameter("a", "r", "decimal128").
		Build()
	var unknown *UnknownIdentifier
	require.ErrorAs(t, err, &unknown)
}

func TestBuilderAddConstraint(t *testing.T) {
	types := StandardTypeRegistry()
	spec, err := NewBuilder("tiled", types).
		AddTuneable("block", 16).
		AddConstraint("block", OpLe, "256", "hardware block-size limit").
		Build()
	require.NoError(t, err)
	require.Len(t, spec.Constraints, 1)
	assert.Equal(t, OpLe, spec.Constraints[0].Op)
}

func TestBuilderFirstErrorSticks(t *testing.T) {
	types := StandardTypeRegistry()
	b := NewBuilder("bad", types).AddParameter("a", "bogus-access", "u32")
	_, err := b.AddParameter("b", "r", "u32").Build()
	assert.Error(t, err)
	// The second AddParameter call should have been a no-op once b.err was set.
	assert.Len(t, b.spec.Parameters, 0)
}
