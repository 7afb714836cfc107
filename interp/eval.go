package interp

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hemlock-lang/hemlock/ast"
	"github.com/hemlock-lang/hemlock/token"
)

// Frame is one call-stack entry, used only for backtraces (§4.5:
// "a call stack (for backtraces)").
type Frame struct {
	FuncName string
	File     string
	Line     int
}

type deferEntry struct {
	call *ast.Call
	env  *Env
}

// Interp is hemlock's tree-walking evaluator. A single Interp carries
// one ctx for its whole program run, matching §4.5's "a single ctx is
// used per program run; the evaluator is single-threaded cooperative
// within a ctx." The control-flow flags (returning/breaking/
// continuing/throwing) are checked by every statement-sequence runner
// after each sub-evaluation and propagated without further work, per
// the same section.
type Interp struct {
	Global *Env
	env    *Env
	Out    io.Writer

	File          string
	MaxStackDepth int
	frames        []Frame
	deferStacks   [][]deferEntry

	returning bool
	returnVal Value
	breaking  bool
	continuing bool
	throwing  bool
	thrownVal Value

	Log *logrus.Logger
}

// New builds an interpreter with its global frame seeded with the
// builtin function table (builtins.go).
func New(file string) *Interp {
	it := &Interp{
		Global:        NewEnv(nil),
		Out:           os.Stdout,
		File:          file,
		MaxStackDepth: 10000,
		Log:           logrus.New(),
	}
	it.env = it.Global
	registerBuiltins(it)
	return it
}

// astFunctionBody adapts a parsed statement list to the FunctionBody
// interface expected by interp.Value's FunctionObj, keeping value.go
// free of an ast import.
type astFunctionBody struct{ stmts []ast.Stmt }

func (b *astFunctionBody) Exec(it *Interp, env *Env) error {
	prev := it.env
	it.env = env
	err := it.execStmts(b.stmts)
	it.env = prev
	return err
}

type astEvaluable struct{ expr ast.Expr }

func (e *astEvaluable) Eval(it *Interp, env *Env) (Value, error) {
	prev := it.env
	it.env = env
	v, err := it.evalExpr(e.expr)
	it.env = prev
	return v, err
}

func paramInfosFrom(params []ast.Param) []ParamInfo {
	out := make([]ParamInfo, len(params))
	for i, p := range params {
		info := ParamInfo{Name: p.Name, IsRef: p.IsRef}
		if p.Default != nil {
			info.Default = &astEvaluable{p.Default}
		}
		out[i] = info
	}
	return out
}

// Run executes a parsed program's top-level statements in the global
// frame. On an uncaught exception it returns a *HemlockException; it
// prints nothing itself (callers render the trace via FormatStackTrace).
func (it *Interp) Run(stmts []ast.Stmt) error {
	err := it.execStmts(stmts)
	if err != nil {
		return err
	}
	if it.throwing {
		v := it.thrownVal
		it.throwing = false
		return &HemlockException{Val: v}
	}
	return nil
}

// FormatStackTrace renders the §6 "at <function> (<file>:<line>)"
// lines, innermost frame first.
func (it *Interp) FormatStackTrace() string {
	s := ""
	for i := len(it.frames) - 1; i >= 0; i-- {
		f := it.frames[i]
		s += fmt.Sprintf("    at %s (%s:%d)\n", f.FuncName, f.File, f.Line)
	}
	return s
}

// execStmts runs a statement list, stopping as soon as any control
// flag is set so the caller observes and propagates it.
func (it *Interp) execStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := it.execStmt(s); err != nil {
			return err
		}
		if it.returning || it.breaking || it.continuing || it.throwing {
			return nil
		}
	}
	return nil
}

func (it *Interp) execStmt(s ast.Stmt) error {
	_, err := s.Accept(it)
	return err
}

func (it *Interp) evalExpr(e ast.Expr) (Value, error) {
	res, err := e.Accept(it)
	if err != nil {
		return Value{}, err
	}
	if res == nil {
		return Null(), nil
	}
	return res.(Value), nil
}

// throwHere sets the exception flag with a Value built from a format
// string, mirroring §7's recoverable runtime faults.
func (it *Interp) throwHere(format string, args ...any) {
	it.throwing = true
	it.thrownVal = NewString(fmt.Sprintf(format, args...))
}

func (it *Interp) catch(err error) bool {
	if exc, ok := err.(*HemlockException); ok {
		it.throwing = true
		it.thrownVal = exc.Val
		return true
	}
	return false
}

// failed reports whether evaluation should stop here: either err just
// converted into a pending exception, or a callee (e.g. VisitIdent's
// undefined-variable check) already set it.throwing directly
// without routing through a Go error.
func (it *Interp) failed(err error) bool {
	if it.catch(err) {
		return true
	}
	return it.throwing
}

// --- Statement visitors ---

func (it *Interp) VisitLet(n *ast.Let) (any, error) {
	val := Null()
	if n.Value != nil {
		v, err := it.evalExpr(n.Value)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		val = v
	}
	it.env.Define(n.Name, val, false)
	return nil, nil
}

func (it *Interp) VisitConst(n *ast.Const) (any, error) {
	v, err := it.evalExpr(n.Value)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	it.env.Define(n.Name, v, true)
	return nil, nil
}

func (it *Interp) VisitExprStmt(n *ast.ExprStmt) (any, error) {
	_, err := it.evalExpr(n.Expr)
	if it.failed(err) {
		return nil, nil
	}
	return nil, err
}

func (it *Interp) VisitIf(n *ast.If) (any, error) {
	cond, err := it.evalExpr(n.Cond)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if IsTruthy(cond) {
		return nil, it.execStmt(n.Then)
	}
	if n.Else != nil {
		return nil, it.execStmt(n.Else)
	}
	return nil, nil
}

func (it *Interp) VisitWhile(n *ast.While) (any, error) {
	for {
		cond, err := it.evalExpr(n.Cond)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !IsTruthy(cond) {
			return nil, nil
		}
		if err := it.execStmt(n.Body); err != nil {
			return nil, err
		}
		if it.throwing || it.returning {
			return nil, nil
		}
		if it.breaking {
			it.breaking = false
			return nil, nil
		}
		if it.continuing {
			it.continuing = false
		}
	}
}

func (it *Interp) VisitFor(n *ast.For) (any, error) {
	loopEnv := NewEnv(it.env)
	prev := it.env
	it.env = loopEnv
	defer func() { it.env = prev; loopEnv.releaseFrame() }()

	if n.Init != nil {
		if err := it.execStmt(n.Init); err != nil {
			return nil, err
		}
		if it.throwing {
			return nil, nil
		}
	}
	for {
		if n.Cond != nil {
			cond, err := it.evalExpr(n.Cond)
			if it.failed(err) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			if !IsTruthy(cond) {
				return nil, nil
			}
		}
		if err := it.execStmt(n.Body); err != nil {
			return nil, err
		}
		if it.throwing || it.returning {
			return nil, nil
		}
		if it.breaking {
			it.breaking = false
			return nil, nil
		}
		if it.continuing {
			it.continuing = false
		}
		if n.Step != nil {
			if err := it.execStmt(n.Step); err != nil {
				return nil, err
			}
			if it.throwing {
				return nil, nil
			}
		}
	}
}

func (it *Interp) VisitForIn(n *ast.ForIn) (any, error) {
	iterable, err := it.evalExpr(n.Iterable)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	runBody := func(key, val Value) (bool, error) {
		iterEnv := NewEnv(it.env)
		prev := it.env
		it.env = iterEnv
		if n.Key != "" {
			iterEnv.Define(n.Key, key, false)
		}
		iterEnv.Define(n.Value, val, false)
		err := it.execStmt(n.Body)
		it.env = prev
		iterEnv.releaseFrame()
		if err != nil {
			return false, err
		}
		if it.throwing || it.returning {
			return false, nil
		}
		if it.breaking {
			it.breaking = false
			return false, nil
		}
		if it.continuing {
			it.continuing = false
		}
		return true, nil
	}

	switch iterable.Kind {
	case KArray:
		for i, item := range iterable.arr.Items {
			cont, err := runBody(Int(int64(i), WI64), item)
			if err != nil {
				return nil, err
			}
			if !cont {
				return nil, nil
			}
		}
	case KObject:
		for _, name := range iterable.obj.Order {
			cont, err := runBody(NewString(name), iterable.obj.Fields[name])
			if err != nil {
				return nil, err
			}
			if !cont {
				return nil, nil
			}
		}
	default:
		it.throwHere("value of kind %s is not iterable", iterable.Kind)
	}
	return nil, nil
}

func (it *Interp) VisitBlock(n *ast.Block) (any, error) {
	blockEnv := NewEnv(it.env)
	prev := it.env
	it.env = blockEnv
	err := it.execStmts(n.Stmts)
	it.env = prev
	blockEnv.releaseFrame()
	return nil, err
}

func (it *Interp) VisitReturn(n *ast.Return) (any, error) {
	val := Null()
	if n.Value != nil {
		v, err := it.evalExpr(n.Value)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		val = v
	}
	it.returning = true
	it.returnVal = val
	return nil, nil
}

func (it *Interp) VisitBreak(n *ast.Break) (any, error) {
	it.breaking = true
	return nil, nil
}

func (it *Interp) VisitContinue(n *ast.Continue) (any, error) {
	it.continuing = true
	return nil, nil
}

func (it *Interp) VisitTry(n *ast.Try) (any, error) {
	err := it.execStmt(n.TryBlock)
	if err != nil && !it.failed(err) {
		return nil, err
	}

	if it.throwing && n.CatchBlock != nil {
		caught := it.thrownVal
		it.throwing = false
		catchEnv := NewEnv(it.env)
		if n.CatchParam != "" {
			catchEnv.Define(n.CatchParam, caught, false)
		}
		prev := it.env
		it.env = catchEnv
		err := it.execStmt(n.CatchBlock)
		it.env = prev
		catchEnv.releaseFrame()
		if err != nil && !it.failed(err) {
			return nil, err
		}
	}

	if n.FinallyBlock != nil {
		savedReturning, savedReturnVal := it.returning, it.returnVal
		savedThrowing, savedThrownVal := it.throwing, it.thrownVal
		savedBreaking, savedContinuing := it.breaking, it.continuing
		it.returning, it.breaking, it.continuing, it.throwing = false, false, false, false

		err := it.execStmt(n.FinallyBlock)
		if err != nil && !it.failed(err) {
			return nil, err
		}

		// finally's own exit (return/throw) takes precedence; otherwise
		// restore what try/catch was doing on the way out.
		if !it.returning && !it.throwing && !it.breaking && !it.continuing {
			it.returning, it.returnVal = savedReturning, savedReturnVal
			it.throwing, it.thrownVal = savedThrowing, savedThrownVal
			it.breaking, it.continuing = savedBreaking, savedContinuing
		}
	}
	return nil, nil
}

func (it *Interp) VisitThrow(n *ast.Throw) (any, error) {
	v, err := it.evalExpr(n.Value)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	it.throwing = true
	it.thrownVal = v
	return nil, nil
}

func (it *Interp) VisitSwitch(n *ast.Switch) (any, error) {
	subject, err := it.evalExpr(n.Expr)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	matched := -1
	defaultIdx := -1
	for i, c := range n.Cases {
		if c.Value == nil {
			defaultIdx = i
			continue
		}
		cv, err := it.evalExpr(c.Value)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if NumericallyEqual(subject, cv) {
			matched = i
			break
		}
	}
	if matched == -1 {
		matched = defaultIdx
	}
	if matched == -1 {
		return nil, nil
	}

	// §4.5: falls through only when a case body has no terminating break.
	for i := matched; i < len(n.Cases); i++ {
		if err := it.execStmts(n.Cases[i].Body); err != nil {
			return nil, err
		}
		if it.throwing || it.returning || it.continuing {
			return nil, nil
		}
		if it.breaking {
			it.breaking = false
			return nil, nil
		}
	}
	return nil, nil
}

func (it *Interp) VisitDefer(n *ast.Defer) (any, error) {
	if len(it.deferStacks) == 0 {
		// a top-level defer outside any call; nothing will ever run it.
		return nil, nil
	}
	top := len(it.deferStacks) - 1
	it.env.retain()
	it.deferStacks[top] = append(it.deferStacks[top], deferEntry{call: n.Call, env: it.env})
	return nil, nil
}

func (it *Interp) VisitImport(n *ast.Import) (any, error) { return nil, nil }
func (it *Interp) VisitExport(n *ast.Export) (any, error) {
	if n.IsDeclaration && n.Declaration != nil {
		return nil, it.execStmt(n.Declaration)
	}
	return nil, nil
}
func (it *Interp) VisitImportFFI(n *ast.ImportFFI) (any, error) { return nil, nil }
func (it *Interp) VisitExternFn(n *ast.ExternFn) (any, error)   { return nil, nil }

func (it *Interp) VisitDefineObject(n *ast.DefineObject) (any, error) {
	it.Global.Define("$type$"+n.Name, NewString(n.Name), true)
	return nil, nil
}

func (it *Interp) VisitEnum(n *ast.Enum) (any, error) {
	var next int64
	names := make([]string, len(n.Variants))
	values := make([]Value, len(n.Variants))
	for i, variant := range n.Variants {
		v := next
		if variant.Value != nil {
			val, err := it.evalExpr(variant.Value)
			if it.failed(err) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			v = val.AsInt()
		}
		names[i] = variant.Name
		values[i] = Int(v, WI32)
		next = v + 1
	}
	it.Global.Define(n.Name, NewObject(n.Name, names, values), true)
	return nil, nil
}

// --- Expression visitors ---

func (it *Interp) VisitNumber(n *ast.Number) (any, error) {
	if n.IsFloat {
		return Float(n.Float), nil
	}
	return Int(n.Int, WI32), nil
}

func (it *Interp) VisitBool(n *ast.Bool) (any, error)  { return Bool(n.Value), nil }
func (it *Interp) VisitString(n *ast.String) (any, error) { return NewString(n.Value), nil }
func (it *Interp) VisitRune(n *ast.Rune) (any, error)     { return RuneVal(n.Codepoint), nil }
func (it *Interp) VisitNull(n *ast.Null) (any, error)     { return Null(), nil }

func (it *Interp) VisitIdent(n *ast.Ident) (any, error) {
	if v, ok := it.env.Get(n.Name); ok {
		return v, nil
	}
	it.throwHere("undefined variable: %s", n.Name)
	return nil, nil
}

func (it *Interp) VisitBinary(n *ast.Binary) (any, error) {
	l, err := it.evalExpr(n.Left)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// §4.5: short-circuit — evaluate the right operand only when the
	// left's truthiness doesn't already decide the result.
	if n.Op == ast.OpOrOr {
		if IsTruthy(l) {
			return Bool(true), nil
		}
		r, err := it.evalExpr(n.Right)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return Bool(IsTruthy(r)), nil
	}
	if n.Op == ast.OpAndAnd {
		if !IsTruthy(l) {
			return Bool(false), nil
		}
		r, err := it.evalExpr(n.Right)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return Bool(IsTruthy(r)), nil
	}

	r, err := it.evalExpr(n.Right)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v, err := EvalBinary(n.Op, l, r)
	if it.failed(err) {
		return nil, nil
	}
	return v, err
}

func (it *Interp) VisitUnary(n *ast.Unary) (any, error) {
	v, err := it.evalExpr(n.Operand)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res, err := EvalUnary(n.Op, v)
	if it.failed(err) {
		return nil, nil
	}
	return res, err
}

func (it *Interp) VisitTernary(n *ast.Ternary) (any, error) {
	c, err := it.evalExpr(n.Cond)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if IsTruthy(c) {
		return it.evalExpr(n.Then)
	}
	return it.evalExpr(n.Else)
}

func (it *Interp) VisitCall(n *ast.Call) (any, error) {
	callee, err := it.evalExpr(n.Callee)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if callee.Kind != KFunction {
		it.throwHere("value of kind %s is not callable", callee.Kind)
		return nil, nil
	}

	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := it.evalExpr(a)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	span := n.Span()
	result, err := it.callFunction(callee.fn, args, n.Args, span)
	if it.failed(err) {
		return nil, nil
	}
	return result, err
}

// callFunction invokes a FunctionObj, handling both native builtins and
// user-defined closures, ref-parameter writeback, and the defer/frame
// discipline described in §4.5.
func (it *Interp) callFunction(fn *FunctionObj, args []Value, argExprs []ast.Expr, span token.Span) (Value, error) {
	if fn.Native != nil {
		return fn.Native(it, args)
	}

	if len(it.frames) >= it.MaxStackDepth {
		return Value{}, fmt.Errorf("stack overflow: exceeded max call depth %d", it.MaxStackDepth)
	}

	callEnv := NewEnv(fn.Closure)
	for i, p := range fn.Params {
		var v Value
		if i < len(args) {
			v = args[i]
		} else if p.Default != nil {
			dv, err := p.Default.Eval(it, fn.Closure)
			if err != nil {
				return Value{}, err
			}
			v = dv
		} else {
			v = Null()
		}
		callEnv.Define(p.Name, v, false)
	}
	if fn.Rest != nil {
		var rest []Value
		if len(args) > len(fn.Params) {
			rest = append(rest, args[len(fn.Params):]...)
		}
		callEnv.Define(fn.Rest.Name, NewArray(rest), false)
	}

	it.frames = append(it.frames, Frame{FuncName: displayFnName(fn), File: it.File, Line: span.Pos.Line})
	it.deferStacks = append(it.deferStacks, nil)
	start := time.Now()
	it.Log.WithField("depth", len(it.frames)).Debugf("enter %s", displayFnName(fn))

	savedReturning, savedReturnVal := it.returning, it.returnVal
	it.returning, it.returnVal = false, Value{}

	bodyErr := fn.Body.Exec(it, callEnv)
	if bodyErr != nil {
		it.catch(bodyErr)
	}

	it.runDefers()
	it.Log.WithField("depth", len(it.frames)).Debugf("exit %s (%s)", displayFnName(fn), time.Since(start))

	// ref parameters: copy the (possibly mutated) local back into the
	// caller's variable, approximating pass-by-reference in a tree
	// walker without aliasing Go storage across frames.
	callerEnv := it.env
	for i, p := range fn.Params {
		if !p.IsRef || i >= len(argExprs) {
			continue
		}
		ident, ok := argExprs[i].(*ast.Ident)
		if !ok {
			continue
		}
		if v, ok := callEnv.vars[p.Name]; ok {
			callerEnv.Set(ident.Name, v)
		}
	}

	result := Value{}
	if it.returning {
		result = it.returnVal
	} else {
		result = Null()
	}

	propagatedThrow := it.throwing
	propagatedThrownVal := it.thrownVal

	it.returning, it.returnVal = savedReturning, savedReturnVal
	it.throwing, it.thrownVal = propagatedThrow, propagatedThrownVal

	callEnv.releaseFrame()
	it.frames = it.frames[:len(it.frames)-1]
	it.deferStacks = it.deferStacks[:len(it.deferStacks)-1]

	if bodyErr != nil && !it.catch(bodyErr) {
		return Value{}, bodyErr
	}
	return result, nil
}

// runDefers executes the current call's deferred expressions in LIFO
// order in their captured environments. A throw from a defer
// supersedes whatever exception or return is already in flight, per
// §4.5's "if a defer itself throws, it supersedes any existing
// exception."
func (it *Interp) runDefers() {
	top := len(it.deferStacks) - 1
	defers := it.deferStacks[top]
	for i := len(defers) - 1; i >= 0; i-- {
		d := defers[i]
		savedThrowing, savedThrownVal := it.throwing, it.thrownVal
		it.throwing = false
		prev := it.env
		it.env = d.env
		_, err := d.call.Accept(it)
		it.env = prev
		d.env.releaseFrame()
		if err != nil {
			it.failed(err)
		}
		if it.throwing {
			it.returning = false
		} else {
			it.throwing, it.thrownVal = savedThrowing, savedThrownVal
		}
	}
}

func displayFnName(fn *FunctionObj) string {
	if fn.Name != "" {
		return fn.Name
	}
	return "<anonymous>"
}

func (it *Interp) VisitAssign(n *ast.Assign) (any, error) {
	v, err := it.evalExpr(n.Value)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if it.env.IsConst(n.Name) {
		it.throwHere("cannot assign to const binding: %s", n.Name)
		return nil, nil
	}
	it.env.Set(n.Name, v)
	return v, nil
}

func (it *Interp) VisitGetProperty(n *ast.GetProperty) (any, error) {
	obj, err := it.evalExpr(n.Object)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if obj.Kind != KObject {
		it.throwHere("cannot read property %s of %s", n.Name, obj.Kind)
		return nil, nil
	}
	v, ok := obj.obj.Get(n.Name)
	if !ok {
		it.throwHere("field missing on typed object: %s", n.Name)
		return nil, nil
	}
	Retain(v)
	return v, nil
}

func (it *Interp) VisitSetProperty(n *ast.SetProperty) (any, error) {
	obj, err := it.evalExpr(n.Object)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v, err := it.evalExpr(n.Value)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if obj.Kind != KObject {
		it.throwHere("cannot set property %s on %s", n.Name, obj.Kind)
		return nil, nil
	}
	if obj.obj.TypeName != "" {
		if _, ok := obj.obj.Get(n.Name); !ok {
			it.throwHere("unknown field %s on %s", n.Name, obj.obj.TypeName)
			return nil, nil
		}
	}
	obj.obj.Set(n.Name, v)
	return v, nil
}

func (it *Interp) VisitIndex(n *ast.Index) (any, error) {
	obj, err := it.evalExpr(n.Object)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	at, err := it.evalExpr(n.At)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	switch obj.Kind {
	case KArray:
		i := at.AsInt()
		if i < 0 || i >= int64(len(obj.arr.Items)) {
			it.throwHere("array index out of bounds: %d", i)
			return nil, nil
		}
		v := obj.arr.Items[i]
		Retain(v)
		return v, nil
	case KBuffer:
		i := at.AsInt()
		if i < 0 || i >= int64(len(obj.buf.Data)) {
			it.throwHere("buffer index out of bounds: %d", i)
			return nil, nil
		}
		return Int(int64(obj.buf.Data[i]), WU8), nil
	case KObject:
		v, ok := obj.obj.Get(Display(at))
		if !ok {
			it.throwHere("field missing: %s", Display(at))
			return nil, nil
		}
		Retain(v)
		return v, nil
	}
	it.throwHere("value of kind %s is not indexable", obj.Kind)
	return nil, nil
}

func (it *Interp) VisitIndexAssign(n *ast.IndexAssign) (any, error) {
	obj, err := it.evalExpr(n.Object)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	at, err := it.evalExpr(n.At)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v, err := it.evalExpr(n.Value)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	switch obj.Kind {
	case KArray:
		i := at.AsInt()
		if i < 0 || i >= int64(len(obj.arr.Items)) {
			it.throwHere("array index out of bounds: %d", i)
			return nil, nil
		}
		Retain(v)
		Release(obj.arr.Items[i])
		obj.arr.Items[i] = v
		return v, nil
	case KBuffer:
		i := at.AsInt()
		if i < 0 || i >= int64(len(obj.buf.Data)) {
			it.throwHere("buffer index out of bounds: %d", i)
			return nil, nil
		}
		obj.buf.Data[i] = byte(v.AsInt())
		return v, nil
	case KObject:
		obj.obj.Set(Display(at), v)
		return v, nil
	}
	it.throwHere("value of kind %s is not indexable", obj.Kind)
	return nil, nil
}

func (it *Interp) VisitFunction(n *ast.Function) (any, error) {
	it.env.retain()
	return NewFunction(n.Name, paramInfosFrom(n.Params), restParamInfo(n.Rest), &astFunctionBody{n.Body}, it.env), nil
}

func restParamInfo(p *ast.Param) *ParamInfo {
	if p == nil {
		return nil
	}
	return &ParamInfo{Name: p.Name, IsRef: p.IsRef}
}

func (it *Interp) VisitArrayLiteral(n *ast.ArrayLiteral) (any, error) {
	items := make([]Value, len(n.Elements))
	for i, e := range n.Elements {
		v, err := it.evalExpr(e)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		items[i] = v
	}
	return NewArray(items), nil
}

func (it *Interp) VisitObjectLiteral(n *ast.ObjectLiteral) (any, error) {
	values := make([]Value, len(n.FieldValues))
	for i, e := range n.FieldValues {
		v, err := it.evalExpr(e)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return NewObject("", n.FieldNames, values), nil
}

func (it *Interp) VisitPrefixIncDec(n *ast.PrefixIncDec) (any, error) {
	v, err := it.incDec(n.Operand, n.Inc)
	if it.failed(err) {
		return nil, nil
	}
	return v, err
}

func (it *Interp) VisitPostfixIncDec(n *ast.PostfixIncDec) (any, error) {
	ident, ok := n.Operand.(*ast.Ident)
	if !ok {
		it.throwHere("invalid increment/decrement target")
		return nil, nil
	}
	old, ok := it.env.Get(ident.Name)
	if !ok {
		it.throwHere("undefined variable: %s", ident.Name)
		return nil, nil
	}
	delta := Int(1, old.IntWidth())
	if !n.Inc {
		delta = Int(-1, old.IntWidth())
	}
	nv, err := EvalBinary(ast.OpAdd, old, delta)
	if err != nil {
		return nil, err
	}
	it.env.Set(ident.Name, nv)
	return old, nil
}

func (it *Interp) incDec(operand ast.Expr, inc bool) (Value, error) {
	ident, ok := operand.(*ast.Ident)
	if !ok {
		it.throwHere("invalid increment/decrement target")
		return Value{}, nil
	}
	old, ok := it.env.Get(ident.Name)
	if !ok {
		it.throwHere("undefined variable: %s", ident.Name)
		return Value{}, nil
	}
	delta := Int(1, old.IntWidth())
	if !inc {
		delta = Int(-1, old.IntWidth())
	}
	nv, err := EvalBinary(ast.OpAdd, old, delta)
	if err != nil {
		return Value{}, err
	}
	it.env.Set(ident.Name, nv)
	return nv, nil
}

func (it *Interp) VisitAwait(n *ast.Await) (any, error) {
	// §5: "await is recognised syntactically and routed to the runtime's
	// task primitive; its implementation is out of scope." The tree
	// walker evaluates the operand synchronously and passes it through.
	return it.evalExpr(n.Operand)
}

func (it *Interp) VisitStringInterpolation(n *ast.StringInterpolation) (any, error) {
	var sb []byte
	sb = append(sb, n.StringParts[0]...)
	for i, e := range n.ExprParts {
		v, err := it.evalExpr(e)
		if it.failed(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		sb = append(sb, Display(v)...)
		sb = append(sb, n.StringParts[i+1]...)
	}
	return NewString(string(sb)), nil
}

func (it *Interp) VisitOptionalChain(n *ast.OptionalChain) (any, error) {
	obj, err := it.evalExpr(n.Object)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if obj.Kind == KNull {
		return Null(), nil
	}
	if obj.Kind != KObject {
		it.throwHere("cannot read property %s of %s", n.Name, obj.Kind)
		return nil, nil
	}
	v, ok := obj.obj.Get(n.Name)
	if !ok {
		return Null(), nil
	}
	Retain(v)
	return v, nil
}

func (it *Interp) VisitNullCoalesce(n *ast.NullCoalesce) (any, error) {
	l, err := it.evalExpr(n.Left)
	if it.failed(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if l.Kind != KNull {
		return l, nil
	}
	return it.evalExpr(n.Right)
}
