package types

import "github.com/hemlock-lang/hemlock/ast"

// maxFixedPointPasses bounds the type-propagation loop; hemlock
// programs don't need more passes than there are distinct variables in
// a function to converge, but this is a hard backstop against a
// mistaken analysis rule looping forever.
const maxFixedPointPasses = 32

// FuncInfo is the per-function result of analysis.
type FuncInfo struct {
	VarTypes  map[string]Lattice
	Unboxed   map[string]bool
	TailCalls map[*ast.Call]bool
}

func newFuncInfo() *FuncInfo {
	return &FuncInfo{
		VarTypes:  make(map[string]Lattice),
		Unboxed:   make(map[string]bool),
		TailCalls: make(map[*ast.Call]bool),
	}
}

// Program is the analysis result for every named function in a parsed
// program, keyed by function name ("" is never stored — anonymous
// functions are analyzed but not indexed since nothing outside their
// own expression can observe their facts).
type Program struct {
	Funcs map[string]*FuncInfo
}

// Analyze walks a parsed (and typically already-optimized) program and
// infers, per function: declared-variable lattice types, which locals
// are eligible for unboxed storage, and which Return statements are
// eligible tail calls.
func Analyze(stmts []ast.Stmt) *Program {
	p := &Program{Funcs: make(map[string]*FuncInfo)}
	var walk func(list []ast.Stmt)
	walk = func(list []ast.Stmt) {
		for _, s := range list {
			switch n := s.(type) {
			case *ast.Let:
				if fn, ok := n.Value.(*ast.Function); ok {
					info := analyzeFunction(fn)
					if fn.Name != "" {
						p.Funcs[fn.Name] = info
					}
					walk(fn.Body)
				}
			case *ast.Export:
				if n.IsDeclaration && n.Declaration != nil {
					walk([]ast.Stmt{n.Declaration})
				}
			case *ast.Block:
				walk(n.Stmts)
			case *ast.If:
				walk([]ast.Stmt{n.Then})
				if n.Else != nil {
					walk([]ast.Stmt{n.Else})
				}
			case *ast.While:
				walk([]ast.Stmt{n.Body})
			case *ast.For:
				walk([]ast.Stmt{n.Body})
			case *ast.ForIn:
				walk([]ast.Stmt{n.Body})
			}
		}
	}
	walk(stmts)
	return p
}

func analyzeFunction(fn *ast.Function) *FuncInfo {
	info := newFuncInfo()
	env := make(map[string]Lattice)
	for _, param := range fn.Params {
		if param.IsRef {
			env[param.Name] = Dynamic
			continue
		}
		env[param.Name] = FromTypeAnnotation(param.Type)
	}
	if fn.Rest != nil {
		env[fn.Rest.Name] = LArray
	}

	// Fixed-point propagation: re-walk the body, meeting each
	// assignment's inferred type into the variable's running fact, until
	// a pass leaves every fact unchanged.
	for pass := 0; pass < maxFixedPointPasses; pass++ {
		changed := false
		propagateStmts(fn.Body, env, &changed)
		if !changed {
			break
		}
	}
	for name, lat := range env {
		info.VarTypes[name] = lat
	}

	captured := capturedNames(fn.Body)
	markUnboxedLoops(fn.Body, env, captured, info)
	markUnboxedAccumulators(fn.Body, env, captured, info)

	collectTailCalls(fn.Body, info)

	return info
}

func propagateStmts(stmts []ast.Stmt, env map[string]Lattice, changed *bool) {
	for _, s := range stmts {
		propagateStmt(s, env, changed)
	}
}

func meetInto(env map[string]Lattice, name string, lat Lattice, changed *bool) {
	if lat == Bottom {
		return
	}
	merged := Meet(env[name], lat)
	if merged != env[name] {
		env[name] = merged
		*changed = true
	}
}

func propagateStmt(s ast.Stmt, env map[string]Lattice, changed *bool) {
	switch n := s.(type) {
	case *ast.Let:
		lat := FromTypeAnnotation(n.Type)
		if n.Value != nil {
			lat = Meet(lat, inferExpr(n.Value, env))
		}
		meetInto(env, n.Name, lat, changed)
	case *ast.Const:
		lat := FromTypeAnnotation(n.Type)
		if n.Value != nil {
			lat = Meet(lat, inferExpr(n.Value, env))
		}
		meetInto(env, n.Name, lat, changed)
	case *ast.ExprStmt:
		inferExpr(n.Expr, env)
		propagateAssignTargets(n.Expr, env, changed)
	case *ast.If:
		inferExpr(n.Cond, env)
		propagateStmt(n.Then, env, changed)
		if n.Else != nil {
			propagateStmt(n.Else, env, changed)
		}
	case *ast.While:
		inferExpr(n.Cond, env)
		propagateStmt(n.Body, env, changed)
	case *ast.For:
		if n.Init != nil {
			propagateStmt(n.Init, env, changed)
		}
		if n.Cond != nil {
			inferExpr(n.Cond, env)
		}
		if n.Step != nil {
			propagateStmt(n.Step, env, changed)
		}
		propagateStmt(n.Body, env, changed)
	case *ast.ForIn:
		meetInto(env, n.Value, Dynamic, changed)
		if n.Key != "" {
			meetInto(env, n.Key, LString, changed)
		}
		propagateStmt(n.Body, env, changed)
	case *ast.Block:
		propagateStmts(n.Stmts, env, changed)
	case *ast.Return:
		if n.Value != nil {
			inferExpr(n.Value, env)
		}
	case *ast.Try:
		propagateStmt(n.TryBlock, env, changed)
		if n.CatchParam != "" {
			meetInto(env, n.CatchParam, Dynamic, changed)
		}
		if n.CatchBlock != nil {
			propagateStmt(n.CatchBlock, env, changed)
		}
		if n.FinallyBlock != nil {
			propagateStmt(n.FinallyBlock, env, changed)
		}
	case *ast.Throw:
		inferExpr(n.Value, env)
	case *ast.Switch:
		inferExpr(n.Expr, env)
		for _, c := range n.Cases {
			propagateStmts(c.Body, env, changed)
		}
	case *ast.Defer:
		inferExpr(n.Call, env)
	}
}

// propagateAssignTargets meets the inferred RHS type back into the
// assigned variable's fact when an assignment appears as a bare
// expression statement (the common `x = x + 1;` shape).
func propagateAssignTargets(e ast.Expr, env map[string]Lattice, changed *bool) {
	switch n := e.(type) {
	case *ast.Assign:
		meetInto(env, n.Name, inferExpr(n.Value, env), changed)
	case *ast.PrefixIncDec:
		if id, ok := n.Operand.(*ast.Ident); ok {
			meetInto(env, id.Name, LInt, changed)
		}
	case *ast.PostfixIncDec:
		if id, ok := n.Operand.(*ast.Ident); ok {
			meetInto(env, id.Name, LInt, changed)
		}
	}
}

// inferExpr infers the lattice type of an expression against the
// current fact set, without mutating env (assignments are handled by
// propagateAssignTargets/propagateStmt so this stays side-effect free
// and safe to call repeatedly across fixed-point passes).
func inferExpr(e ast.Expr, env map[string]Lattice) Lattice {
	switch n := e.(type) {
	case *ast.Number:
		if n.IsFloat {
			return LFloat
		}
		return LInt
	case *ast.Bool:
		return LBool
	case *ast.String:
		return LString
	case *ast.Rune:
		return LRune
	case *ast.Null:
		return LNull
	case *ast.Ident:
		return env[n.Name]
	case *ast.Binary:
		l := inferExpr(n.Left, env)
		r := inferExpr(n.Right, env)
		switch n.Op {
		case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte,
			ast.OpAndAnd, ast.OpOrOr:
			return LBool
		}
		if l == LFloat || r == LFloat {
			return LFloat
		}
		if l == LString || r == LString {
			return LString
		}
		return Meet(l, r)
	case *ast.Unary:
		if n.Op == ast.OpNot {
			return LBool
		}
		return inferExpr(n.Operand, env)
	case *ast.Ternary:
		inferExpr(n.Cond, env)
		return Meet(inferExpr(n.Then, env), inferExpr(n.Else, env))
	case *ast.Call:
		inferExpr(n.Callee, env)
		for _, a := range n.Args {
			inferExpr(a, env)
		}
		return Dynamic
	case *ast.Assign:
		return inferExpr(n.Value, env)
	case *ast.GetProperty:
		inferExpr(n.Object, env)
		return Dynamic
	case *ast.SetProperty:
		inferExpr(n.Object, env)
		return inferExpr(n.Value, env)
	case *ast.Index:
		inferExpr(n.Object, env)
		inferExpr(n.At, env)
		return Dynamic
	case *ast.IndexAssign:
		inferExpr(n.Object, env)
		inferExpr(n.At, env)
		return inferExpr(n.Value, env)
	case *ast.Function:
		return Dynamic
	case *ast.ArrayLiteral:
		for _, el := range n.Elements {
			inferExpr(el, env)
		}
		return LArray
	case *ast.ObjectLiteral:
		for _, v := range n.FieldValues {
			inferExpr(v, env)
		}
		return LObject
	case *ast.PrefixIncDec:
		return inferExpr(n.Operand, env)
	case *ast.PostfixIncDec:
		return inferExpr(n.Operand, env)
	case *ast.Await:
		return Dynamic
	case *ast.StringInterpolation:
		for _, sub := range n.ExprParts {
			inferExpr(sub, env)
		}
		return LString
	case *ast.OptionalChain:
		inferExpr(n.Object, env)
		return Dynamic
	case *ast.NullCoalesce:
		return Meet(inferExpr(n.Left, env), inferExpr(n.Right, env))
	}
	return Dynamic
}
