package mldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExprArithmetic(t *testing.T) {
	expr, err := ParseExpr("ceilDiv(n + 1, block) * block")
	require.NoError(t, err)

	env := NewEnv().With("n", 10).With("block", 4)
	v, err := expr.Eval(env)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v) // ceilDiv(11,4)=3, 3*4=12
}

func TestParseExprUnknownIdentifier(t *testing.T) {
	expr, err := ParseExpr("n * 2")
	require.NoError(t, err)

	_, err = expr.Eval(NewEnv())
	var unknown *UnknownIdentifier
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "n", unknown.Name)
}

func TestParseExprTrailingGarbage(t *testing.T) {
	_, err := ParseExpr("1 + 2)")
	assert.Error(t, err)
}

func TestCeilDivExprDivideByZero(t *testing.T) {
	expr, err := ParseExpr("ceilDiv(n, z)")
	require.NoError(t, err)
	_, err = expr.Eval(NewEnv().With("n", 10).With("z", 0))
	assert.Error(t, err)
}

func TestParseTypeExprPrimitive(t *testing.T) {
	parsed, err := ParseTypeExpr("u32")
	require.NoError(t, err)
	assert.Equal(t, "u32", parsed.ElementName)
	assert.False(t, parsed.Shape.IsArray)
}

func TestParseTypeExprArray(t *testing.T) {
	parsed, err := ParseTypeExpr("f32[nf + 1]")
	require.NoError(t, err)
	assert.Equal(t, "f32", parsed.ElementName)
	require.True(t, parsed.Shape.IsArray)

	v, err := parsed.Shape.Length.Eval(NewEnv().With("nf", 7))
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)
}

func TestParseTypeExprMalformed(t *testing.T) {
	_, err := ParseTypeExpr("f32[nf")
	assert.Error(t, err)

	_, err = ParseTypeExpr("")
	assert.Error(t, err)
}

func TestEnvWithIsImmutable(t *testing.T) {
	base := NewEnv().With("a", 1)
	derived := base.With("b", 2)

	_, ok := base.Lookup("b")
	assert.False(t, ok)

	v, ok := derived.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)
}
