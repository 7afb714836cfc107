package ccodegen

import (
	"fmt"

	"github.com/hemlock-lang/hemlock/ast"
	"github.com/hemlock-lang/hemlock/types"
)

// emitFunctionDef lowers one function literal (top-level, nested, named
// or anonymous — planFunctionNames already gave it a stable C name)
// into a C function definition, applying tail-call lowering (§4.6) when
// the type analyzer marked at least one self-recursive tail call in it
// and the body contains no defer/try (both disqualify the loop rewrite
// per the spec text). Tail-call analysis is only available for named
// top-level functions (types.Analyze indexes by function name), so
// anonymous/nested closures never get the loop rewrite.
func (g *Codegen) emitFunctionDef(fn *ast.Function) {
	var info *types.FuncInfo
	if fn.Name != "" {
		info = g.program.Funcs[fn.Name]
	}
	closure := g.closures[fn]
	ctx := &funcCtx{name: fn.Name, info: info, closure: closure}

	canLoop := info != nil && hasSelfTailCall(fn, info) && !hasDeferOrTry(fn.Body)
	if canLoop {
		ctx.tailLoop = true
		ctx.tailLabel = g.labelName("tail_entry")
	}

	g.funcStack = append(g.funcStack, ctx)
	defer func() { g.funcStack = g.funcStack[:len(g.funcStack)-1] }()

	o := g.out
	o.writei(fmt.Sprintf("HmlValue %s(", g.funcNames[fn]))
	g.writeParamList(fn, closure)
	o.writel(") {")
	o.indent()

	if ctx.tailLoop {
		o.writeil(ctx.tailLabel + ":;")
	}

	for _, s := range fn.Body {
		g.emitStmt(s)
	}

	// A function whose last statement isn't a Return still must return
	// something on fall-through; hemlock functions implicitly return
	// null in that case (mirrors the interpreter's callFunction, which
	// defaults result to Null() when it.returning never got set).
	o.writeil("return hml_val_null();")
	o.unindent()
	o.writel("}")
	o.writel("")
}

// writeParamList emits the C parameter list for fn. When closure is
// non-nil and backed by a shared environment struct, a leading
// `EnvStruct *_env` parameter carries the captured-variable record
// (§4.6: "passed by pointer to each nested function").
func (g *Codegen) writeParamList(fn *ast.Function, closure *ClosureInfo) {
	o := g.out
	wroteAny := false
	if closure != nil && closure.EnvStruct != "" {
		o.write(closure.EnvStruct + " *_env")
		wroteAny = true
	}
	for _, p := range fn.Params {
		if wroteAny {
			o.write(", ")
		}
		o.write("HmlValue " + Mangle(p.Name))
		wroteAny = true
	}
	if fn.Rest != nil {
		if wroteAny {
			o.write(", ")
		}
		o.write("int " + Mangle(fn.Rest.Name) + "_argc, HmlValue *" + Mangle(fn.Rest.Name) + "_argv")
		wroteAny = true
	}
	if !wroteAny {
		o.write("void")
	}
}

// currentFunc returns the innermost enclosing function context.
func (g *Codegen) currentFunc() *funcCtx {
	return g.funcStack[len(g.funcStack)-1]
}

// hasSelfTailCall reports whether any call info.TailCalls marks refers
// to a direct self-recursive invocation of fn (the only shape §4.6's
// tail-call loop rewrite applies to — mutual recursion across two
// functions is not lowered this way).
func hasSelfTailCall(fn *ast.Function, info *types.FuncInfo) bool {
	for call, marked := range info.TailCalls {
		if !marked {
			continue
		}
		if ident, ok := call.Callee.(*ast.Ident); ok && ident.Name == fn.Name {
			return true
		}
	}
	return false
}

// hasDeferOrTry reports whether stmts contains a Defer or Try anywhere,
// not descending into nested function literals (their own defers don't
// disqualify the *enclosing* function's tail-loop rewrite).
func hasDeferOrTry(stmts []ast.Stmt) bool {
	found := false
	var walk func(s ast.Stmt)
	walk = func(s ast.Stmt) {
		if found {
			return
		}
		switch n := s.(type) {
		case *ast.Defer, *ast.Try:
			found = true
		case *ast.If:
			walk(n.Then)
			if n.Else != nil {
				walk(n.Else)
			}
		case *ast.While:
			walk(n.Body)
		case *ast.For:
			if n.Init != nil {
				walk(n.Init)
			}
			walk(n.Body)
		case *ast.ForIn:
			walk(n.Body)
		case *ast.Block:
			for _, s2 := range n.Stmts {
				walk(s2)
			}
		case *ast.Switch:
			for _, c := range n.Cases {
				for _, s2 := range c.Body {
					walk(s2)
				}
			}
		}
	}
	for _, s := range stmts {
		walk(s)
	}
	return found
}
