package parser

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemlock-lang/hemlock/ast"
)

func parseOK(t *testing.T, src string) []ast.Stmt {
	t.Helper()
	stmts, d := Parse("<test>", []byte(src))
	require.Zero(t, d.Count(), "unexpected diagnostics: %s", d.String())
	return stmts
}

func TestParseLiterals(t *testing.T) {
	stmts := parseOK(t, `let a = 1; let b = 1.5; let c = "hi"; let d = true; let e = null;`)
	require.Len(t, stmts, 5)

	n := stmts[0].(*ast.Let).Value.(*ast.Number)
	assert.False(t, n.IsFloat)
	assert.Equal(t, int64(1), n.Int)

	f := stmts[1].(*ast.Let).Value.(*ast.Number)
	assert.True(t, f.IsFloat)
	assert.Equal(t, 1.5, f.Float)

	s := stmts[2].(*ast.Let).Value.(*ast.String)
	assert.Equal(t, "hi", s.Value)

	b := stmts[3].(*ast.Let).Value.(*ast.Bool)
	assert.True(t, b.Value)

	_, isNull := stmts[4].(*ast.Let).Value.(*ast.Null)
	assert.True(t, isNull)
}

func TestBinaryPrecedence(t *testing.T) {
	// `1 + 2 * 3` must parse as `1 + (2 * 3)`.
	stmts := parseOK(t, `let x = 1 + 2 * 3;`)
	bin := stmts[0].(*ast.Let).Value.(*ast.Binary)
	assert.Equal(t, ast.OpAdd, bin.Op)
	_, leftIsNumber := bin.Left.(*ast.Number)
	assert.True(t, leftIsNumber)
	rhs, ok := bin.Right.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, rhs.Op)
}

func TestLogicalAndBitwisePrecedence(t *testing.T) {
	// `a || b && c | d` must parse as `a || (b && (c | d))`.
	stmts := parseOK(t, `let x = a || b && c | d;`)
	or := stmts[0].(*ast.Let).Value.(*ast.Binary)
	assert.Equal(t, ast.OpOrOr, or.Op)
	and := or.Right.(*ast.Binary)
	assert.Equal(t, ast.OpAndAnd, and.Op)
	or2 := and.Right.(*ast.Binary)
	assert.Equal(t, ast.OpBitOr, or2.Op)
}

func TestTernaryIsRightAssociative(t *testing.T) {
	stmts := parseOK(t, `let x = a ? b : c ? d : e;`)
	outer := stmts[0].(*ast.Let).Value.(*ast.Ternary)
	_, elseIsTernary := outer.Else.(*ast.Ternary)
	assert.True(t, elseIsTernary)
}

func TestAssignmentTargets(t *testing.T) {
	stmts := parseOK(t, `a = 1; a.b = 2; a[0] = 3;`)
	_, ok := stmts[0].(*ast.ExprStmt).Expr.(*ast.Assign)
	assert.True(t, ok)
	_, ok = stmts[1].(*ast.ExprStmt).Expr.(*ast.SetProperty)
	assert.True(t, ok)
	_, ok = stmts[2].(*ast.ExprStmt).Expr.(*ast.IndexAssign)
	assert.True(t, ok)
}

func TestIfElseIf(t *testing.T) {
	stmts := parseOK(t, `
		if (a) { b; } else if (c) { d; } else { e; }
	`)
	outer := stmts[0].(*ast.If)
	elseIf, ok := outer.Else.(*ast.If)
	require.True(t, ok)
	_, ok = elseIf.Else.(*ast.Block)
	assert.True(t, ok)
}

func TestForThreePart(t *testing.T) {
	stmts := parseOK(t, `for (let i = 0; i < 10; i = i + 1) { x; }`)
	f := stmts[0].(*ast.For)
	require.NotNil(t, f.Init)
	require.NotNil(t, f.Cond)
	require.NotNil(t, f.Step)
}

func TestForIn(t *testing.T) {
	stmts := parseOK(t, `for (k, v in m) { x; }`)
	f := stmts[0].(*ast.ForIn)
	assert.Equal(t, "k", f.Key)
	assert.Equal(t, "v", f.Value)

	stmts = parseOK(t, `for (v in xs) { x; }`)
	f = stmts[0].(*ast.ForIn)
	assert.Equal(t, "", f.Key)
	assert.Equal(t, "v", f.Value)
}

func TestFunctionDeclDesugarsToLet(t *testing.T) {
	stmts := parseOK(t, `fn add(a: i32, b: i32): i32 { return a + b; }`)
	let := stmts[0].(*ast.Let)
	assert.Equal(t, "add", let.Name)
	fn := let.Value.(*ast.Function)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, ast.TI32, fn.ReturnType.Kind)
}

func TestFunctionRestParam(t *testing.T) {
	stmts := parseOK(t, `fn f(a, ...rest) { return rest; }`)
	fn := stmts[0].(*ast.Let).Value.(*ast.Function)
	require.NotNil(t, fn.Rest)
	assert.Equal(t, "rest", fn.Rest.Name)
}

func TestCallAndChaining(t *testing.T) {
	stmts := parseOK(t, `a.b(1, 2)[0];`)
	idx := stmts[0].(*ast.ExprStmt).Expr.(*ast.Index)
	call := idx.Object.(*ast.Call)
	get := call.Callee.(*ast.GetProperty)
	assert.Equal(t, "b", get.Name)
	require.Len(t, call.Args, 2)
}

func TestTryCatchFinally(t *testing.T) {
	stmts := parseOK(t, `
		try { risky(); } catch (e) { handle(e); } finally { cleanup(); }
	`)
	try := stmts[0].(*ast.Try)
	assert.Equal(t, "e", try.CatchParam)
	require.NotNil(t, try.CatchBlock)
	require.NotNil(t, try.FinallyBlock)
}

func TestSwitchCases(t *testing.T) {
	stmts := parseOK(t, `
		switch (x) {
			case 1: a;
			case 2: b;
			default: c;
		}
	`)
	sw := stmts[0].(*ast.Switch)
	require.Len(t, sw.Cases, 3)
	assert.Nil(t, sw.Cases[2].Value)
}

func TestImportNamed(t *testing.T) {
	stmts := parseOK(t, `import { a, b as c } from "mod";`)
	imp := stmts[0].(*ast.Import)
	assert.Equal(t, "mod", imp.ModulePath)
	require.Len(t, imp.Names, 2)
	assert.Equal(t, "c", imp.Names[1].Alias)
}

func TestImportNamespace(t *testing.T) {
	stmts := parseOK(t, `import ns from "mod";`)
	imp := stmts[0].(*ast.Import)
	assert.True(t, imp.IsNamespace)
	assert.Equal(t, "ns", imp.NamespaceName)
}

func TestArrayAndObjectLiterals(t *testing.T) {
	stmts := parseOK(t, `let a = [1, 2, 3]; let b = { x: 1, y: 2 };`)
	arr := stmts[0].(*ast.Let).Value.(*ast.ArrayLiteral)
	require.Len(t, arr.Elements, 3)

	obj := stmts[1].(*ast.Let).Value.(*ast.ObjectLiteral)
	require.Len(t, obj.FieldNames, 2)
	assert.Equal(t, "x", obj.FieldNames[0])
}

func TestEnumDecl(t *testing.T) {
	stmts := parseOK(t, `enum Color { Red, Green = 5, Blue }`)
	e := stmts[0].(*ast.Enum)
	require.Len(t, e.Variants, 3)
	assert.Equal(t, "Green", e.Variants[1].Name)
	require.NotNil(t, e.Variants[1].Value)
}

func TestDefineObject(t *testing.T) {
	stmts := parseOK(t, `define Point { x: i32 = 0, y: i32 = 0, label?: string }`)
	d := stmts[0].(*ast.DefineObject)
	require.Len(t, d.Fields, 3)
	assert.True(t, d.Fields[2].Optional)
}

func TestExternFn(t *testing.T) {
	stmts := parseOK(t, `extern fn sqrt(f64): f64;`)
	ext := stmts[0].(*ast.ExternFn)
	assert.Equal(t, "sqrt", ext.Name)
	require.Len(t, ext.ParamTypes, 1)
	assert.Equal(t, ast.TF64, ext.ReturnType.Kind)
}

func TestStringInterpolationSplitsParts(t *testing.T) {
	stmts := parseOK(t, "let s = `hello ${name}!`;")
	si := stmts[0].(*ast.Let).Value.(*ast.StringInterpolation)
	require.Len(t, si.StringParts, 2)
	require.Len(t, si.ExprParts, 1)
	assert.Equal(t, "hello ", si.StringParts[0])
	assert.Equal(t, "!", si.StringParts[1])
	ident := si.ExprParts[0].(*ast.Ident)
	assert.Equal(t, "name", ident.Name)
}

func TestPlainStringIsNotInterpolated(t *testing.T) {
	stmts := parseOK(t, `let s = "plain text";`)
	_, ok := stmts[0].(*ast.Let).Value.(*ast.String)
	assert.True(t, ok)
}

// TestPanicModeRecoversAndContinues checks that a malformed statement
// produces one diagnostic but parsing still recovers at the next `;`
// and returns the following, well-formed statements, per §4.2.
func TestPanicModeRecoversAndContinues(t *testing.T) {
	stmts, d := Parse("<test>", []byte(`let a = ; let b = 2;`))
	assert.Equal(t, 1, d.Count())
	require.Len(t, stmts, 2)
	b := stmts[1].(*ast.Let)
	assert.Equal(t, "b", b.Name)
}

func TestMaxParamsEnforced(t *testing.T) {
	src := "fn f("
	for i := 0; i < MaxParams+1; i++ {
		if i > 0 {
			src += ", "
		}
		src += "p" + string(rune('a'+i%26))
	}
	src += ") { return 0; }"
	_, d := Parse("<test>", []byte(src))
	assert.Greater(t, d.Count(), 0)
}

// TestParseIsDeterministic backs the §8 testable property that parsing
// the same source twice produces structurally identical ASTs. cmp's
// default unexported-field panic is disabled only for types under the
// ast and token packages (each node embeds an unexported
// baseExpr/baseStmt carrying its span), via an Exporter scoped to those
// packages rather than an explicit per-type AllowUnexported list.
func TestParseIsDeterministic(t *testing.T) {
	src := `
		import { helper } from "./util";
		fn fib(n) {
			if (n < 2) { return n; }
			return fib(n - 1) + fib(n - 2);
		}
		let xs = [1, 2, 3];
		for (v in xs) {
			try {
				print(fib(v));
			} catch (e) {
				throw e;
			} finally {
				print("done");
			}
		}
	`
	a, d1 := Parse("<test>", []byte(src))
	require.Zero(t, d1.Count(), d1.String())
	b, d2 := Parse("<test>", []byte(src))
	require.Zero(t, d2.Count(), d2.String())

	exportAST := cmp.Exporter(func(t reflect.Type) bool {
		return strings.HasPrefix(t.PkgPath(), "github.com/hemlock-lang/hemlock/ast") ||
			strings.HasPrefix(t.PkgPath(), "github.com/hemlock-lang/hemlock/token")
	})
	if diff := cmp.Diff(a, b, exportAST); diff != "" {
		t.Fatalf("two parses of the same source differ:\n%s", diff)
	}
}
