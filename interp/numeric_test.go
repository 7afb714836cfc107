package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemlock-lang/hemlock/ast"
)

func TestIntAddWraps(t *testing.T) {
	v, err := EvalBinary(ast.OpAdd, Int(127, WI8), Int(1, WI8))
	require.NoError(t, err)
	assert.Equal(t, int64(-128), v.AsInt())
}

func TestIntDivisionByZeroThrows(t *testing.T) {
	_, err := EvalBinary(ast.OpDiv, Int(1, WI32), Int(0, WI32))
	require.Error(t, err)
	var exc *HemlockException
	assert.ErrorAs(t, err, &exc)
}

func TestDivisionAlwaysYieldsFloat(t *testing.T) {
	v, err := EvalBinary(ast.OpDiv, Int(7, WI32), Int(2, WI32))
	require.NoError(t, err)
	assert.Equal(t, KFloat, v.Kind)
	assert.Equal(t, 3.5, v.AsFloat())
}

func TestFloatDivisionByZeroYieldsInf(t *testing.T) {
	v, err := EvalBinary(ast.OpDiv, Float(1), Float(0))
	require.NoError(t, err)
	assert.True(t, math.IsInf(v.AsFloat(), 1))
}

func TestModuloPreservesIntegerness(t *testing.T) {
	v, err := EvalBinary(ast.OpMod, Int(7, WI32), Int(2, WI32))
	require.NoError(t, err)
	assert.Equal(t, KInt, v.Kind)
	assert.Equal(t, int64(1), v.AsInt())
}

func TestStringConcatenation(t *testing.T) {
	v, err := EvalBinary(ast.OpAdd, NewString("a"), NewString("b"))
	require.NoError(t, err)
	assert.Equal(t, "ab", v.AsString())
}

func TestStringPlusNonStringConvertsToDisplay(t *testing.T) {
	v, err := EvalBinary(ast.OpAdd, NewString("n="), Int(3, WI32))
	require.NoError(t, err)
	assert.Equal(t, "n=3", v.AsString())
}

func TestMixedSignedUnsignedPromotesToWiderSigned(t *testing.T) {
	v, err := EvalBinary(ast.OpAdd, Int(10, WU16), Int(5, WI32))
	require.NoError(t, err)
	assert.Equal(t, WI64, v.IntWidth())
}

func TestU64MixedWithSignedThrows(t *testing.T) {
	_, err := EvalBinary(ast.OpAdd, Int(10, WU64), Int(5, WI32))
	require.Error(t, err)
}

func TestShortCircuitNotExercisedByEvalBinary(t *testing.T) {
	// EvalBinary never receives && / || — the evaluator short-circuits
	// before operand evaluation (eval.go); this documents the contract.
	_, err := EvalBinary(ast.OpAndAnd, Bool(true), Bool(false))
	require.NoError(t, err)
}

func TestUnaryNegationWraps(t *testing.T) {
	v, err := EvalUnary(ast.OpNeg, Int(math.MinInt8, WI8))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt8), v.AsInt())
}

func TestUnaryNot(t *testing.T) {
	v, err := EvalUnary(ast.OpNot, Bool(false))
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}
