package interp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemlock-lang/hemlock/parser"
)

func run(t *testing.T, src string) (*Interp, *bytes.Buffer, error) {
	t.Helper()
	stmts, d := parser.Parse("<test>", []byte(src))
	require.Zero(t, d.Count(), d.String())
	it := New("<test>")
	var buf bytes.Buffer
	it.Out = &buf
	err := it.Run(stmts)
	return it, &buf, err
}

func TestLetAndPrint(t *testing.T) {
	_, out, err := run(t, `let x = 1 + 2; print(x);`)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out.String())
}

func TestIfElse(t *testing.T) {
	_, out, err := run(t, `
		if (1 < 2) { print("yes"); } else { print("no"); }
	`)
	require.NoError(t, err)
	assert.Equal(t, "yes\n", out.String())
}

func TestWhileLoop(t *testing.T) {
	_, out, err := run(t, `
		let i = 0;
		while (i < 3) { print(i); i = i + 1; }
	`)
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out.String())
}

func TestForLoopBreakContinue(t *testing.T) {
	_, out, err := run(t, `
		for (let i = 0; i < 5; i = i + 1) {
			if (i == 1) { continue; }
			if (i == 3) { break; }
			print(i);
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "0\n2\n", out.String())
}

func TestForInArray(t *testing.T) {
	_, out, err := run(t, `
		let a = [10, 20, 30];
		for (v in a) { print(v); }
	`)
	require.NoError(t, err)
	assert.Equal(t, "10\n20\n30\n", out.String())
}

func TestFunctionCallAndReturn(t *testing.T) {
	_, out, err := run(t, `
		fn add(a, b) { return a + b; }
		print(add(2, 3));
	`)
	require.NoError(t, err)
	assert.Equal(t, "5\n", out.String())
}

func TestClosureCapturesEnclosingVariable(t *testing.T) {
	_, out, err := run(t, `
		fn makeCounter() {
			let n = 0;
			fn inc() {
				n = n + 1;
				return n;
			}
			return inc;
		}
		let counter = makeCounter();
		print(counter());
		print(counter());
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", out.String())
}

func TestRecursiveFunction(t *testing.T) {
	_, out, err := run(t, `
		fn fact(n) {
			if (n <= 1) { return 1; }
			return n * fact(n - 1);
		}
		print(fact(5));
	`)
	require.NoError(t, err)
	assert.Equal(t, "120\n", out.String())
}

func TestUncaughtThrowPropagatesAsException(t *testing.T) {
	_, _, err := run(t, `throw "boom";`)
	require.Error(t, err)
	exc, ok := err.(*HemlockException)
	require.True(t, ok)
	assert.Equal(t, "boom", exc.Val.AsString())
}

func TestTryCatchCatchesThrow(t *testing.T) {
	_, out, err := run(t, `
		try {
			throw "oops";
		} catch (e) {
			print(e);
		}
		print("after");
	`)
	require.NoError(t, err)
	assert.Equal(t, "oops\nafter\n", out.String())
}

func TestFinallyRunsOnReturn(t *testing.T) {
	_, out, err := run(t, `
		fn f() {
			try {
				return 1;
			} finally {
				print("cleanup");
			}
		}
		print(f());
	`)
	require.NoError(t, err)
	assert.Equal(t, "cleanup\n1\n", out.String())
}

func TestDeferRunsOnNormalReturnInLIFOOrder(t *testing.T) {
	_, out, err := run(t, `
		fn f() {
			defer print("one");
			defer print("two");
			print("body");
		}
		f();
	`)
	require.NoError(t, err)
	assert.Equal(t, "body\ntwo\none\n", out.String())
}

func TestConstReassignmentThrows(t *testing.T) {
	_, _, err := run(t, `
		const x = 1;
		x = 2;
	`)
	require.Error(t, err)
}

func TestArrayIndexAndAssign(t *testing.T) {
	_, out, err := run(t, `
		let a = [1, 2, 3];
		a[1] = 99;
		print(a[1]);
	`)
	require.NoError(t, err)
	assert.Equal(t, "99\n", out.String())
}

func TestArrayOutOfBoundsThrows(t *testing.T) {
	_, _, err := run(t, `
		let a = [1, 2];
		print(a[5]);
	`)
	require.Error(t, err)
}

func TestObjectLiteralAndPropertyAccess(t *testing.T) {
	_, out, err := run(t, `
		let o = { x: 1, y: 2 };
		print(o.x);
		o.x = 10;
		print(o.x);
	`)
	require.NoError(t, err)
	assert.Equal(t, "1\n10\n", out.String())
}

func TestSwitchFallsThroughWithoutBreak(t *testing.T) {
	_, out, err := run(t, `
		let x = 1;
		switch (x) {
			case 1:
				print("one");
			case 2:
				print("two");
				break;
			default:
				print("other");
		}
	`)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", out.String())
}

func TestTernaryAndNullCoalesce(t *testing.T) {
	_, out, err := run(t, `
		let a = null;
		print(a ?? "default");
		print(1 < 2 ? "yes" : "no");
	`)
	require.NoError(t, err)
	assert.Equal(t, "default\nyes\n", out.String())
}

func TestStringInterpolation(t *testing.T) {
	_, out, err := run(t, "let n = 3; print(`n is ${n + 1}`);")
	require.NoError(t, err)
	assert.Equal(t, "n is 4\n", out.String())
}

func TestShortCircuitOrSkipsRightSideEffect(t *testing.T) {
	_, out, err := run(t, `
		fn sideEffect() { print("called"); return true; }
		let x = true || sideEffect();
	`)
	require.NoError(t, err)
	assert.Equal(t, "", out.String())
}

func TestRestParamsCollectExtraArgs(t *testing.T) {
	_, out, err := run(t, `
		fn sum(...nums) {
			let total = 0;
			for (n in nums) { total = total + n; }
			return total;
		}
		print(sum(1, 2, 3));
	`)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out.String())
}

func TestRefParamWritesBackToCaller(t *testing.T) {
	_, out, err := run(t, `
		fn bump(ref x) { x = x + 1; }
		let n = 1;
		bump(n);
		print(n);
	`)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out.String())
}
