package ccodegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemlock-lang/hemlock/parser"
	"github.com/hemlock-lang/hemlock/types"
)

func generate(t *testing.T, src string) (string, *Codegen) {
	t.Helper()
	stmts, d := parser.Parse("<test>", []byte(src))
	require.Zero(t, d.Count(), d.String())
	program := types.Analyze(stmts)
	g := NewCodegen("<test>", program)
	out := g.Generate(stmts)
	return out, g
}

func TestGenerateEmitsRuntimeInclude(t *testing.T) {
	out, g := generate(t, `let x = 1;`)
	require.Zero(t, g.Diagnostics().Count(), g.Diagnostics().String())
	assert.Contains(t, out, `#include "hemlock_runtime.h"`)
}

func TestGenerateLetDeclaration(t *testing.T) {
	out, g := generate(t, `let x = 1 + 2;`)
	require.Zero(t, g.Diagnostics().Count())
	assert.Contains(t, out, "hml_retain(hml_binop(HML_OP_ADD")
}

func TestGenerateNamedFunctionGetsForwardDeclared(t *testing.T) {
	out, g := generate(t, `
		fn add(a, b) { return a + b; }
		let r = add(1, 2);
	`)
	require.Zero(t, g.Diagnostics().Count())
	assert.Contains(t, out, "HmlValue add(HmlValue a, HmlValue b);")
	assert.Contains(t, out, "HmlValue add(HmlValue a, HmlValue b) {")
	assert.Contains(t, out, "add(")
}

func TestGenerateTailRecursiveFunctionGetsLoopRewrite(t *testing.T) {
	out, g := generate(t, `
		fn loop(n, acc) {
			if (n == 0) { return acc; }
			return loop(n - 1, acc + n);
		}
	`)
	require.Zero(t, g.Diagnostics().Count())
	assert.True(t, strings.Contains(out, "_Ltail_entry") || strings.Contains(out, "tail_entry"))
	assert.Contains(t, out, "goto")
}

func TestGenerateClosureCapturesOuterVariable(t *testing.T) {
	out, g := generate(t, `
		fn makeAdder(x) {
			return fn(y) { return x + y; };
		}
	`)
	require.Zero(t, g.Diagnostics().Count())
	assert.Contains(t, out, "typedef struct {")
	assert.Contains(t, out, "hml_closure_new(")
	assert.Contains(t, out, "_env->")
}

func TestGenerateSwitchWithIntCasesUsesNativeSwitch(t *testing.T) {
	out, g := generate(t, `
		let x = 1;
		switch (x) {
			case 1:
				print("one");
			case 2:
				print("two");
			default:
				print("other");
		}
	`)
	require.Zero(t, g.Diagnostics().Count())
	assert.Contains(t, out, "switch (")
	assert.Contains(t, out, "case 1LL:")
	assert.Contains(t, out, "default:")
}

func TestGenerateSwitchWithStringCasesUsesIfChain(t *testing.T) {
	out, g := generate(t, `
		let x = "a";
		switch (x) {
			case "a":
				print("first");
			case "b":
				print("second");
		}
	`)
	require.Zero(t, g.Diagnostics().Count())
	assert.Contains(t, out, "HML_OP_EQ")
	assert.NotContains(t, out, "switch (")
}

func TestGenerateForInArrayLowersToCountedLoop(t *testing.T) {
	out, g := generate(t, `
		let xs = [1, 2, 3];
		for (v in xs) { print(v); }
	`)
	require.Zero(t, g.Diagnostics().Count())
	assert.Contains(t, out, "hml_is_array(")
	assert.Contains(t, out, "hml_array_get(")
	assert.Contains(t, out, "hml_object_field_value_at(")
}

func TestGenerateTryCatchFinallyLowersHandlerLabels(t *testing.T) {
	out, g := generate(t, `
		try {
			throw "boom";
		} catch (e) {
			print(e);
		} finally {
			print("done");
		}
	`)
	require.Zero(t, g.Diagnostics().Count())
	assert.Contains(t, out, "hml_throw(")
	assert.Contains(t, out, "_catch:")
	assert.Contains(t, out, "hml_catch_value()")
	assert.Contains(t, out, "hml_clear_exception();")
}

func TestGenerateDeferFlushesOnReturn(t *testing.T) {
	out, g := generate(t, `
		fn f() {
			defer print("cleanup");
			return 1;
		}
	`)
	require.Zero(t, g.Diagnostics().Count())
	assert.Contains(t, out, `hml_string_new("cleanup")`)
}

func TestMangleEscapesReservedCWords(t *testing.T) {
	assert.Equal(t, "hu_int", Mangle("int"))
	assert.Equal(t, "hu_return", Mangle("return"))
	assert.Equal(t, "ordinary_name", Mangle("ordinary_name"))
}

func TestMangleEscapesReservedPrefixes(t *testing.T) {
	assert.Equal(t, "hu_hml_foo", Mangle("hml_foo"))
	assert.Equal(t, "hu__env", Mangle("_env"))
}

func TestModulePrefixIsDeterministic(t *testing.T) {
	a := ModulePrefix("./utils/strings")
	b := ModulePrefix("./utils/strings")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, ModulePrefix("./utils/arrays"))
}
