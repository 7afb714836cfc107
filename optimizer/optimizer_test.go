package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemlock-lang/hemlock/ast"
	"github.com/hemlock-lang/hemlock/parser"
)

func optimize(t *testing.T, src string) ([]ast.Stmt, Stats) {
	t.Helper()
	stmts, d := parser.Parse("<test>", []byte(src))
	require.Zero(t, d.Count())
	return New().OptimizeProgram(stmts)
}

func TestConstantFoldingArithmetic(t *testing.T) {
	stmts, stats := optimize(t, `let x = 2 + 3 * 4;`)
	n := stmts[0].(*ast.Let).Value.(*ast.Number)
	assert.Equal(t, int64(14), n.Int)
	assert.Greater(t, stats.ConstantsFolded, 0)
}

func TestConstantFoldingFloat(t *testing.T) {
	stmts, _ := optimize(t, `let x = 1.5 + 2.5;`)
	n := stmts[0].(*ast.Let).Value.(*ast.Number)
	assert.True(t, n.IsFloat)
	assert.Equal(t, 4.0, n.Float)
}

func TestStringConcatFolding(t *testing.T) {
	stmts, _ := optimize(t, `let x = "foo" + "bar";`)
	s := stmts[0].(*ast.Let).Value.(*ast.String)
	assert.Equal(t, "foobar", s.Value)
}

func TestComparisonFolding(t *testing.T) {
	stmts, _ := optimize(t, `let x = 1 < 2;`)
	b := stmts[0].(*ast.Let).Value.(*ast.Bool)
	assert.True(t, b.Value)
}

func TestShortCircuitOrOrDropsRight(t *testing.T) {
	stmts, stats := optimize(t, `let x = true || sideEffect();`)
	b, ok := stmts[0].(*ast.Let).Value.(*ast.Bool)
	require.True(t, ok)
	assert.True(t, b.Value)
	assert.Greater(t, stats.BooleansSimplified, 0)
}

func TestShortCircuitFalseOrKeepsRight(t *testing.T) {
	stmts, _ := optimize(t, `let x = false || y;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "y", id.Name)
}

func TestShortCircuitAndAndFalseDropsRight(t *testing.T) {
	stmts, _ := optimize(t, `let x = false && sideEffect();`)
	b, ok := stmts[0].(*ast.Let).Value.(*ast.Bool)
	require.True(t, ok)
	assert.False(t, b.Value)
}

func TestDoubleNegationElimination(t *testing.T) {
	stmts, _ := optimize(t, `let x = !!flag;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "flag", id.Name)
}

func TestStrengthReductionMulPowerOfTwo(t *testing.T) {
	stmts, stats := optimize(t, `let x = n * 8;`)
	bin, ok := stmts[0].(*ast.Let).Value.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpShl, bin.Op)
	shiftAmt := bin.Right.(*ast.Number)
	assert.Equal(t, int64(3), shiftAmt.Int)
	assert.Greater(t, stats.StrengthReductions, 0)
}

func TestStrengthReductionNotAppliedForNonPowerOfTwo(t *testing.T) {
	stmts, _ := optimize(t, `let x = n * 7;`)
	bin, ok := stmts[0].(*ast.Let).Value.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, bin.Op)
}

func TestAlgebraicIdentityAddZero(t *testing.T) {
	stmts, stats := optimize(t, `let x = n + 0;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
	assert.Greater(t, stats.StrengthReductions, 0)
}

func TestAlgebraicIdentityZeroPlusX(t *testing.T) {
	stmts, _ := optimize(t, `let x = 0 + n;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
}

func TestAlgebraicIdentityMulOne(t *testing.T) {
	stmts, _ := optimize(t, `let x = n * 1;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
}

func TestAlgebraicIdentityDivOne(t *testing.T) {
	stmts, _ := optimize(t, `let x = n / 1;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
}

func TestAlgebraicIdentityBitOrZero(t *testing.T) {
	stmts, _ := optimize(t, `let x = n | 0;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
}

func TestAlgebraicIdentityBitXorZero(t *testing.T) {
	stmts, _ := optimize(t, `let x = n ^ 0;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
}

func TestAlgebraicIdentityBitAndMinusOne(t *testing.T) {
	stmts, _ := optimize(t, `let x = n & -1;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
}

func TestAlgebraicIdentityShlZero(t *testing.T) {
	stmts, _ := optimize(t, `let x = n << 0;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
}

func TestAlgebraicIdentityShrZero(t *testing.T) {
	stmts, _ := optimize(t, `let x = n >> 0;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "n", id.Name)
}

func TestAlgebraicIdentityNotAppliedForNonIdentityConstant(t *testing.T) {
	stmts, _ := optimize(t, `let x = n + 1;`)
	bin, ok := stmts[0].(*ast.Let).Value.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, bin.Op)
}

func TestTernaryCollapse(t *testing.T) {
	stmts, _ := optimize(t, `let x = true ? a : b;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "a", id.Name)
}

func TestNullCoalesceFolding(t *testing.T) {
	stmts, _ := optimize(t, `let x = null ?? fallback;`)
	id, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "fallback", id.Name)
}

func TestNullCoalesceLiteralFolding(t *testing.T) {
	stmts, _ := optimize(t, `let x = "hi" ?? fallback;`)
	s, ok := stmts[0].(*ast.Let).Value.(*ast.String)
	require.True(t, ok)
	assert.Equal(t, "hi", s.Value)
}

// TestNullCoalesceIdentNotFolded guards against folding `x ?? y` to
// bare `x` when x is an identifier: its runtime value is unknown and
// may be null, unlike a literal.
func TestNullCoalesceIdentNotFolded(t *testing.T) {
	stmts, _ := optimize(t, `let x = maybeNull ?? fallback;`)
	_, ok := stmts[0].(*ast.Let).Value.(*ast.Ident)
	assert.False(t, ok, "identifier left operand must not be folded away")
	_, ok = stmts[0].(*ast.Let).Value.(*ast.NullCoalesce)
	assert.True(t, ok, "expected the NullCoalesce node to survive unfolded")
}

func TestIfWithLiteralConditionCollapses(t *testing.T) {
	stmts, _ := optimize(t, `if (true) { a; } else { b; }`)
	block, ok := stmts[0].(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Stmts, 1)
}

// TestOptimizerIsIdempotent checks that running the pass twice produces
// no further constant folds the second time, per the §8 optimizer
// idempotency property.
func TestOptimizerIsIdempotent(t *testing.T) {
	stmts, _ := optimize(t, `let x = 2 + 3 * 4; let y = n * 8; if (true) { a; }`)
	_, stats2 := New().OptimizeProgram(stmts)
	assert.Zero(t, stats2.ConstantsFolded)
	assert.Zero(t, stats2.BooleansSimplified)
	assert.Zero(t, stats2.StrengthReductions)
}

func TestNestedExpressionInsideFunctionBodyIsFolded(t *testing.T) {
	stmts, _ := optimize(t, `fn f() { return 2 * 3; }`)
	fn := stmts[0].(*ast.Let).Value.(*ast.Function)
	ret := fn.Body[0].(*ast.Return)
	n := ret.Value.(*ast.Number)
	assert.Equal(t, int64(6), n.Int)
}
