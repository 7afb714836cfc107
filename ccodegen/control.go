package ccodegen

import (
	"fmt"

	"github.com/hemlock-lang/hemlock/ast"
	"github.com/hemlock-lang/hemlock/token"
)

// emitStmt lowers one statement. Local-variable lifetime management
// (exactly when a declared local's ref count is released) is left to
// the linked runtime's own bookkeeping; this codegen only emits the
// retain-on-declare half, matching the ABI contract's ownership rule
// that a store always retains. See DESIGN.md for the documented
// simplification (no per-block release sweep is emitted).
func (g *Codegen) emitStmt(s ast.Stmt) {
	o := g.out
	switch n := s.(type) {
	case *ast.Let:
		g.emitDeclare(n.Name, n.Value)
	case *ast.Const:
		g.emitDeclare(n.Name, n.Value)
	case *ast.ExprStmt:
		o.writeil(g.emitExpr(n.Expr) + ";")
		g.emitExceptionCheck()
	case *ast.If:
		o.writeil(fmt.Sprintf("if (hml_truthy(%s)) {", g.emitExpr(n.Cond)))
		o.indent()
		g.emitStmt(n.Then)
		o.unindent()
		if n.Else != nil {
			o.writeil("} else {")
			o.indent()
			g.emitStmt(n.Else)
			o.unindent()
		}
		o.writeil("}")
	case *ast.While:
		g.emitWhile(n)
	case *ast.For:
		g.emitFor(n)
	case *ast.ForIn:
		g.emitForIn(n)
	case *ast.Block:
		o.writeil("{")
		o.indent()
		for _, s2 := range n.Stmts {
			g.emitStmt(s2)
		}
		o.unindent()
		o.writeil("}")
	case *ast.Return:
		g.emitReturn(n)
	case *ast.Break:
		g.emitBreak()
	case *ast.Continue:
		g.emitContinue()
	case *ast.Try:
		g.emitTry(n)
	case *ast.Throw:
		o.writeil(fmt.Sprintf("hml_throw(%s);", g.emitExpr(n.Value)))
		g.emitExceptionCheck()
	case *ast.Switch:
		g.emitSwitch(n)
	case *ast.Defer:
		g.emitDefer(n)
	case *ast.Import, *ast.ImportFFI, *ast.ExternFn:
		// Module resolution and FFI signatures are consulted only for
		// mangling (§4.6 "Modules"); they emit no executable code here.
	case *ast.Export:
		if n.IsDeclaration && n.Declaration != nil {
			g.emitStmt(n.Declaration)
		}
	case *ast.DefineObject:
		// Typed-object shape checking is enforced by the runtime's
		// hml_object_new/hml_set_property using a type descriptor the
		// linked runtime builds from this declaration; no per-statement
		// code is emitted here.
	case *ast.Enum:
		g.emitEnum(n)
	default:
		g.diag.Addf(s.Span(), "ccodegen: unsupported statement %T", s)
	}
}

func (g *Codegen) emitDeclare(name string, value ast.Expr) {
	o := g.out
	rhs := "hml_val_null()"
	if value != nil {
		rhs = g.emitExpr(value)
	}
	o.writeil(fmt.Sprintf("HmlValue %s = hml_retain(%s);", Mangle(name), rhs))
	g.emitExceptionCheck()
}

// emitExceptionCheck emits the post-call flag test every potentially-
// throwing step needs: jump to the innermost try's handler label if one
// is active, otherwise (no enclosing try) let the exception keep
// propagating by returning null immediately — the runtime's own
// hml_exception_pending() check at each call site is what actually
// walks back up the C call stack, per §4.6(c)/§7's "every evaluator or
// emitted code checks after each step".
func (g *Codegen) emitExceptionCheck() {
	ctx := g.currentFunc()
	o := g.out
	if len(ctx.handlerLabels) > 0 {
		o.writeil(fmt.Sprintf("if (hml_exception_pending()) goto %s;", ctx.handlerLabels[len(ctx.handlerLabels)-1]))
		return
	}
	o.writeil("if (hml_exception_pending()) { " + g.deferFlushInline() + " return hml_val_null(); }")
}

func (g *Codegen) emitWhile(n *ast.While) {
	o := g.out
	cont := g.labelName("while_cont")
	brk := g.labelName("while_brk")
	g.ctrlStack = append(g.ctrlStack, loopLabels{continueLabel: cont, breakLabel: brk})
	o.writeil("for (;;) {")
	o.indent()
	o.writeil(cont + ":;")
	o.writeil(fmt.Sprintf("if (!hml_truthy(%s)) goto %s;", g.emitExpr(n.Cond), brk))
	g.emitStmt(n.Body)
	o.unindent()
	o.writeil("}")
	o.writeil(brk + ":;")
	g.ctrlStack = g.ctrlStack[:len(g.ctrlStack)-1]
}

func (g *Codegen) emitFor(n *ast.For) {
	o := g.out
	o.writeil("{")
	o.indent()
	if n.Init != nil {
		g.emitStmt(n.Init)
	}
	cont := g.labelName("for_cont")
	brk := g.labelName("for_brk")
	g.ctrlStack = append(g.ctrlStack, loopLabels{continueLabel: cont, breakLabel: brk})
	o.writeil("for (;;) {")
	o.indent()
	if n.Cond != nil {
		o.writeil(fmt.Sprintf("if (!hml_truthy(%s)) goto %s;", g.emitExpr(n.Cond), brk))
	}
	g.emitStmt(n.Body)
	o.writeil(cont + ":;")
	if n.Step != nil {
		g.emitStmt(n.Step)
	}
	o.unindent()
	o.writeil("}")
	o.writeil(brk + ":;")
	g.ctrlStack = g.ctrlStack[:len(g.ctrlStack)-1]
	o.unindent()
	o.writeil("}")
}

// emitForIn lowers array iteration to a C counted loop over indices and
// object iteration to a walk over the runtime's field table, per §4.6's
// "For-in lowering".
func (g *Codegen) emitForIn(n *ast.ForIn) {
	o := g.out
	iterTmp := g.tempName()
	o.writeil(fmt.Sprintf("HmlValue %s = %s;", iterTmp, g.emitExpr(n.Iterable)))

	cont := g.labelName("forin_cont")
	brk := g.labelName("forin_brk")
	g.ctrlStack = append(g.ctrlStack, loopLabels{continueLabel: cont, breakLabel: brk})

	idx := g.tempName()
	o.writeil(fmt.Sprintf("if (hml_is_array(%s)) {", iterTmp))
	o.indent()
	o.writeil(fmt.Sprintf("for (int %s = 0; %s < hml_array_len(%s); %s++) {", idx, idx, iterTmp, idx))
	o.indent()
	o.writeil(cont + ":;")
	o.writeil(fmt.Sprintf("HmlValue %s = hml_array_get(%s, %s);", Mangle(n.Value), iterTmp, idx))
	if n.Key != "" {
		o.writeil(fmt.Sprintf("HmlValue %s = hml_val_i32((int64_t)%s);", Mangle(n.Key), idx))
	}
	g.emitStmt(n.Body)
	o.unindent()
	o.writeil("}")
	o.unindent()
	o.writeil("} else if (hml_is_object(" + iterTmp + ")) {")
	o.indent()
	fidx := g.tempName()
	o.writeil(fmt.Sprintf("for (int %s = 0; %s < hml_object_field_count(%s); %s++) {", fidx, fidx, iterTmp, fidx))
	o.indent()
	o.writeil(fmt.Sprintf("HmlValue %s = hml_object_field_value_at(%s, %s);", Mangle(n.Value), iterTmp, fidx))
	if n.Key != "" {
		o.writeil(fmt.Sprintf("HmlValue %s = hml_string_new(hml_object_field_name_at(%s, %s));", Mangle(n.Key), iterTmp, fidx))
	}
	g.emitStmt(n.Body)
	o.unindent()
	o.writeil("}")
	o.unindent()
	o.writeil("} else {")
	o.indent()
	o.writeil(fmt.Sprintf("hml_throw(hml_string_new(\"value is not iterable\"));"))
	o.unindent()
	o.writeil("}")
	o.writeil(brk + ":;")
	g.ctrlStack = g.ctrlStack[:len(g.ctrlStack)-1]
}

// emitBreak targets the innermost ctrlStack frame, which is a switch's
// end label when the break sits inside a switch case; emitContinue skips
// switch frames and targets the innermost enclosing loop.
func (g *Codegen) emitBreak() {
	if len(g.ctrlStack) == 0 {
		g.diag.Addf(token.Span{}, "ccodegen: break outside a loop")
		return
	}
	g.out.writeil("goto " + g.ctrlStack[len(g.ctrlStack)-1].breakLabel + ";")
}

func (g *Codegen) emitContinue() {
	for i := len(g.ctrlStack) - 1; i >= 0; i-- {
		if g.ctrlStack[i].isSwitch {
			continue
		}
		g.out.writeil("goto " + g.ctrlStack[i].continueLabel + ";")
		return
	}
	g.diag.Addf(token.Span{}, "ccodegen: continue outside a loop")
}

// emitSwitch lowers integer/rune-constant cases to a native C switch
// (fallthrough is then simply C's own fallthrough, matching hemlock's
// own fallthrough-unless-break rule directly) and anything else to an
// if-else chain with explicit goto-based fallthrough, per §4.6's
// "Switch lowering".
func (g *Codegen) emitSwitch(n *ast.Switch) {
	o := g.out
	if allConstIntCases(n.Cases) {
		subj := g.tempName()
		o.writeil(fmt.Sprintf("int64_t %s = hml_to_i64(%s);", subj, g.emitExpr(n.Expr)))
		end := g.labelName("switch_end")
		g.ctrlStack = append(g.ctrlStack, loopLabels{breakLabel: end, isSwitch: true})
		o.writeil(fmt.Sprintf("switch (%s) {", subj))
		o.indent()
		for _, c := range n.Cases {
			if c.Value == nil {
				o.writeil("default:")
			} else {
				num := c.Value.(*ast.Number)
				o.writeil(fmt.Sprintf("case %dLL:", num.Int))
			}
			o.indent()
			for _, s := range c.Body {
				g.emitStmt(s)
			}
			o.unindent()
		}
		o.unindent()
		o.writeil("}")
		o.writeil(end + ":;")
		g.ctrlStack = g.ctrlStack[:len(g.ctrlStack)-1]
		return
	}

	subj := g.tempName()
	o.writeil(fmt.Sprintf("HmlValue %s = %s;", subj, g.emitExpr(n.Expr)))
	end := g.labelName("switch_end")
	g.ctrlStack = append(g.ctrlStack, loopLabels{breakLabel: end, isSwitch: true})
	labels := make([]string, len(n.Cases))
	for i := range n.Cases {
		labels[i] = g.labelName("case")
	}
	defaultIdx := -1
	for i, c := range n.Cases {
		if c.Value == nil {
			defaultIdx = i
			continue
		}
		o.writeil(fmt.Sprintf("if (hml_binop(HML_OP_EQ, %s, %s).as_bool) goto %s;", subj, g.emitExpr(c.Value), labels[i]))
	}
	if defaultIdx >= 0 {
		o.writeil("goto " + labels[defaultIdx] + ";")
	} else {
		o.writeil("goto " + end + ";")
	}
	for i, c := range n.Cases {
		o.writeil(labels[i] + ":;")
		for _, s := range c.Body {
			g.emitStmt(s)
		}
		if i+1 < len(labels) {
			o.writeil("goto " + labels[i+1] + ";")
		}
	}
	o.writeil(end + ":;")
	g.ctrlStack = g.ctrlStack[:len(g.ctrlStack)-1]
}

func allConstIntCases(cases []ast.SwitchCase) bool {
	for _, c := range cases {
		if c.Value == nil {
			continue
		}
		num, ok := c.Value.(*ast.Number)
		if !ok || num.IsFloat {
			return false
		}
	}
	return true
}

// emitDefer records the deferred call; its code is emitted at every
// exit point by deferFlushInline/emitReturn, in LIFO order, per §4.6's
// "Defer lowering".
func (g *Codegen) emitDefer(n *ast.Defer) {
	ctx := g.currentFunc()
	ctx.deferCalls = append(ctx.deferCalls, deferredCall{call: n.Call})
}

// deferFlushInline renders the current function's pending defers (LIFO)
// as a single inline C statement sequence suitable for splicing into an
// `if (...) { ... }` branch.
func (g *Codegen) deferFlushInline() string {
	ctx := g.currentFunc()
	out := ""
	for i := len(ctx.deferCalls) - 1; i >= 0; i-- {
		out += g.emitExpr(ctx.deferCalls[i].call) + "; "
	}
	return out
}

func (g *Codegen) emitDeferFlushBlock() {
	ctx := g.currentFunc()
	for i := len(ctx.deferCalls) - 1; i >= 0; i-- {
		g.out.writeil(g.emitExpr(ctx.deferCalls[i].call) + ";")
	}
}

// emitReturn stages the return value into a temporary, runs every
// pending defer in this call LIFO, then actually returns, per §4.6's
// "Defer lowering". In a function lowered to the tail-call loop, a
// `return f(args)` self call is not evaluated; it becomes emitTailJump's
// loop-back rewrite instead (such functions have no defers to flush).
func (g *Codegen) emitReturn(n *ast.Return) {
	o := g.out
	ctx := g.currentFunc()
	if ctx.tailLoop {
		if call, ok := n.Value.(*ast.Call); ok {
			if ident, ok2 := call.Callee.(*ast.Ident); ok2 && ident.Name == ctx.name {
				g.emitTailJump(call)
				return
			}
		}
	}
	val := "hml_val_null()"
	if n.Value != nil {
		val = g.emitExpr(n.Value)
	}
	tmp := g.tempName()
	o.writeil(fmt.Sprintf("HmlValue %s = %s;", tmp, val))
	g.emitDeferFlushBlock()
	o.writeil(fmt.Sprintf("return %s;", tmp))
}

// emitTailJump lowers a self-recursive tail call into the loop-back
// rewrite: new argument values are computed into temporaries first (so
// a call like `fact(n - 1, acc * n)` doesn't read partially-overwritten
// parameter slots), then copied into the parameter slots, then control
// jumps back to the function's entry label, per §4.6's "Tail-call
// lowering".
func (g *Codegen) emitTailJump(call *ast.Call) {
	o := g.out
	ctx := g.currentFunc()
	temps := make([]string, len(call.Args))
	for i, a := range call.Args {
		t := g.tempName()
		o.writeil(fmt.Sprintf("HmlValue %s = %s;", t, g.emitExpr(a)))
		temps[i] = t
	}
	fn := g.funcForName(ctx.name)
	if fn != nil {
		for i, p := range fn.Params {
			if i < len(temps) {
				o.writeil(fmt.Sprintf("%s = %s;", Mangle(p.Name), temps[i]))
			}
		}
	}
	o.writeil("goto " + ctx.tailLabel + ";")
}

func (g *Codegen) funcForName(name string) *ast.Function {
	for fn, n := range g.funcNames {
		if n == name {
			return fn
		}
	}
	return nil
}

func (g *Codegen) emitEnum(n *ast.Enum) {
	o := g.out
	next := int64(0)
	for _, v := range n.Variants {
		val := next
		if v.Value != nil {
			if num, ok := v.Value.(*ast.Number); ok {
				val = num.Int
			}
		}
		o.writeil(fmt.Sprintf("static const int64_t %s_%s = %dLL;", Mangle(n.Name), Mangle(v.Name), val))
		next = val + 1
	}
}

// emitTry lowers try/catch/finally. The try block runs with the new
// catch label pushed onto the current function's handler-label stack,
// so any exception check reached while lowering it (emitExceptionCheck,
// run after every call and declaration) jumps straight to the catch
// label instead of unwinding the whole function. If there is no catch
// clause, the finally block still runs and the exception (if still
// pending) keeps propagating outward afterward, per §4.6's "Try /
// catch / finally lowering". A return inside the try or catch block
// returns directly; the finally block does not run on that path.
func (g *Codegen) emitTry(n *ast.Try) {
	o := g.out
	base := g.labelName("try")
	catchLabel := base + "_catch"
	afterLabel := base + "_after"

	ctx := g.currentFunc()
	ctx.handlerLabels = append(ctx.handlerLabels, catchLabel)

	o.writeil("{")
	o.indent()
	for _, s := range n.TryBlock.Stmts {
		g.emitStmt(s)
	}
	ctx.handlerLabels = ctx.handlerLabels[:len(ctx.handlerLabels)-1]

	o.writeil("goto " + afterLabel + ";")
	o.writeil(catchLabel + ":;")
	if n.CatchBlock != nil {
		if n.CatchParam != "" {
			o.writeil(fmt.Sprintf("HmlValue %s = hml_catch_value();", Mangle(n.CatchParam)))
		}
		o.writeil("hml_clear_exception();")
		for _, s := range n.CatchBlock.Stmts {
			g.emitStmt(s)
		}
	}
	o.writeil(afterLabel + ":;")
	if n.FinallyBlock != nil {
		for _, s := range n.FinallyBlock.Stmts {
			g.emitStmt(s)
		}
	}
	if n.CatchBlock == nil {
		g.emitExceptionCheck()
	}
	o.unindent()
	o.writeil("}")
}
