package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemlock-lang/hemlock/ast"
	"github.com/hemlock-lang/hemlock/parser"
)

func analyze(t *testing.T, src string) *Program {
	t.Helper()
	stmts, d := parser.Parse("<test>", []byte(src))
	require.Zero(t, d.Count())
	return Analyze(stmts)
}

func TestInferSimpleLetTypes(t *testing.T) {
	p := analyze(t, `fn f() { let a = 1; let b = 1.5; let c = "s"; let d = true; }`)
	info := p.Funcs["f"]
	require.NotNil(t, info)
	assert.Equal(t, LInt, info.VarTypes["a"])
	assert.Equal(t, LFloat, info.VarTypes["b"])
	assert.Equal(t, LString, info.VarTypes["c"])
	assert.Equal(t, LBool, info.VarTypes["d"])
}

func TestParamTypeFromAnnotation(t *testing.T) {
	p := analyze(t, `fn f(x: i32) { let y = x; }`)
	info := p.Funcs["f"]
	assert.Equal(t, LInt, info.VarTypes["x"])
}

func TestRefParamIsDynamic(t *testing.T) {
	p := analyze(t, `fn f(ref x: i32) { let y = x; }`)
	info := p.Funcs["f"]
	assert.Equal(t, Dynamic, info.VarTypes["x"])
}

func TestConflictingAssignmentsCollapseToDynamic(t *testing.T) {
	p := analyze(t, `
		fn f() {
			let a = 1;
			a = "now a string";
		}
	`)
	info := p.Funcs["f"]
	assert.Equal(t, Dynamic, info.VarTypes["a"])
}

func TestLoopCounterIsUnboxed(t *testing.T) {
	p := analyze(t, `
		fn sum() {
			let total = 0;
			for (let i = 0; i < 10; i = i + 1) {
				total = total + i;
			}
			return total;
		}
	`)
	info := p.Funcs["sum"]
	assert.True(t, info.Unboxed["i"])
}

func TestAccumulatorIsUnboxed(t *testing.T) {
	p := analyze(t, `
		fn sum() {
			let total = 0;
			for (let i = 0; i < 10; i++) {
				total = total + i;
			}
			return total;
		}
	`)
	info := p.Funcs["sum"]
	assert.True(t, info.Unboxed["total"])
}

func TestCapturedCounterIsNotUnboxed(t *testing.T) {
	p := analyze(t, `
		fn outer() {
			for (let i = 0; i < 10; i = i + 1) {
				let capture = fn() { return i; };
			}
		}
	`)
	info := p.Funcs["outer"]
	assert.False(t, info.Unboxed["i"])
}

func TestTailCallInReturnPosition(t *testing.T) {
	stmts, d := parser.Parse("<test>", []byte(`
		fn loopy(n: i32) {
			if (n <= 0) {
				return 0;
			} else {
				return loopy(n - 1);
			}
		}
	`))
	require.Zero(t, d.Count())
	p := Analyze(stmts)
	info := p.Funcs["loopy"]
	require.NotNil(t, info)

	fn := stmts[0].(*ast.Let).Value.(*ast.Function)
	elseBlock := fn.Body[0].(*ast.If).Else.(*ast.Block)
	ret := elseBlock.Stmts[0].(*ast.Return)
	call := ret.Value.(*ast.Call)
	assert.True(t, info.TailCalls[call])
}

func TestNonTailCallIsNotMarked(t *testing.T) {
	stmts, d := parser.Parse("<test>", []byte(`
		fn f(n: i32) {
			let x = g(n);
			return x + 1;
		}
	`))
	require.Zero(t, d.Count())
	p := Analyze(stmts)
	info := p.Funcs["f"]

	fn := stmts[0].(*ast.Let).Value.(*ast.Function)
	letStmt := fn.Body[0].(*ast.Let)
	call := letStmt.Value.(*ast.Call)
	assert.False(t, info.TailCalls[call])
}

func TestMeetLattice(t *testing.T) {
	assert.Equal(t, LInt, Meet(Bottom, LInt))
	assert.Equal(t, LInt, Meet(LInt, Bottom))
	assert.Equal(t, LInt, Meet(LInt, LInt))
	assert.Equal(t, Dynamic, Meet(LInt, LString))
	assert.Equal(t, LInt, Meet(LInt, LNull))
	assert.Equal(t, LInt, Meet(LNull, LInt))
}
