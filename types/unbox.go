package types

import "github.com/hemlock-lang/hemlock/ast"

// capturedNames returns every identifier name referenced inside any
// function literal nested within body (but not names referenced by
// body's own top-level statements). A captured name can never be
// unboxed: the C backend's closure environments box every captured
// local so a shared copy survives the enclosing frame's return, per
// SPEC_FULL.md §4.6. The approximation is deliberately conservative —
// a name used inside a nested closure is always treated as captured,
// even where shadowing would make it a distinct local — because
// failing to unbox is merely a missed optimization, while unboxing a
// captured variable would be a correctness bug.
func capturedNames(body []ast.Stmt) map[string]bool {
	captured := make(map[string]bool)
	walkStmtsForCapture(body, false, captured)
	return captured
}

func walkStmtsForCapture(stmts []ast.Stmt, inNested bool, out map[string]bool) {
	for _, s := range stmts {
		walkStmtForCapture(s, inNested, out)
	}
}

func walkStmtForCapture(s ast.Stmt, inNested bool, out map[string]bool) {
	switch n := s.(type) {
	case *ast.Let:
		if n.Value != nil {
			walkExprForCapture(n.Value, inNested, out)
		}
	case *ast.Const:
		walkExprForCapture(n.Value, inNested, out)
	case *ast.ExprStmt:
		walkExprForCapture(n.Expr, inNested, out)
	case *ast.If:
		walkExprForCapture(n.Cond, inNested, out)
		walkStmtForCapture(n.Then, inNested, out)
		if n.Else != nil {
			walkStmtForCapture(n.Else, inNested, out)
		}
	case *ast.While:
		walkExprForCapture(n.Cond, inNested, out)
		walkStmtForCapture(n.Body, inNested, out)
	case *ast.For:
		if n.Init != nil {
			walkStmtForCapture(n.Init, inNested, out)
		}
		if n.Cond != nil {
			walkExprForCapture(n.Cond, inNested, out)
		}
		if n.Step != nil {
			walkStmtForCapture(n.Step, inNested, out)
		}
		walkStmtForCapture(n.Body, inNested, out)
	case *ast.ForIn:
		walkExprForCapture(n.Iterable, inNested, out)
		walkStmtForCapture(n.Body, inNested, out)
	case *ast.Block:
		walkStmtsForCapture(n.Stmts, inNested, out)
	case *ast.Return:
		if n.Value != nil {
			walkExprForCapture(n.Value, inNested, out)
		}
	case *ast.Try:
		walkStmtForCapture(n.TryBlock, inNested, out)
		if n.CatchBlock != nil {
			walkStmtForCapture(n.CatchBlock, inNested, out)
		}
		if n.FinallyBlock != nil {
			walkStmtForCapture(n.FinallyBlock, inNested, out)
		}
	case *ast.Throw:
		walkExprForCapture(n.Value, inNested, out)
	case *ast.Switch:
		walkExprForCapture(n.Expr, inNested, out)
		for _, c := range n.Cases {
			walkStmtsForCapture(c.Body, inNested, out)
		}
	case *ast.Defer:
		walkExprForCapture(n.Call, inNested, out)
	}
}

func walkExprForCapture(e ast.Expr, inNested bool, out map[string]bool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Ident:
		if inNested {
			out[n.Name] = true
		}
	case *ast.Binary:
		walkExprForCapture(n.Left, inNested, out)
		walkExprForCapture(n.Right, inNested, out)
	case *ast.Unary:
		walkExprForCapture(n.Operand, inNested, out)
	case *ast.Ternary:
		walkExprForCapture(n.Cond, inNested, out)
		walkExprForCapture(n.Then, inNested, out)
		walkExprForCapture(n.Else, inNested, out)
	case *ast.Call:
		walkExprForCapture(n.Callee, inNested, out)
		for _, a := range n.Args {
			walkExprForCapture(a, inNested, out)
		}
	case *ast.Assign:
		if inNested {
			out[n.Name] = true
		}
		walkExprForCapture(n.Value, inNested, out)
	case *ast.GetProperty:
		walkExprForCapture(n.Object, inNested, out)
	case *ast.SetProperty:
		walkExprForCapture(n.Object, inNested, out)
		walkExprForCapture(n.Value, inNested, out)
	case *ast.Index:
		walkExprForCapture(n.Object, inNested, out)
		walkExprForCapture(n.At, inNested, out)
	case *ast.IndexAssign:
		walkExprForCapture(n.Object, inNested, out)
		walkExprForCapture(n.At, inNested, out)
		walkExprForCapture(n.Value, inNested, out)
	case *ast.Function:
		// Entering a nested closure: everything within is analyzed with
		// inNested=true regardless of the caller's own nesting level.
		for _, p := range n.Params {
			if p.Default != nil {
				walkExprForCapture(p.Default, true, out)
			}
		}
		walkStmtsForCapture(n.Body, true, out)
	case *ast.ArrayLiteral:
		for _, el := range n.Elements {
			walkExprForCapture(el, inNested, out)
		}
	case *ast.ObjectLiteral:
		for _, v := range n.FieldValues {
			walkExprForCapture(v, inNested, out)
		}
	case *ast.PrefixIncDec:
		walkExprForCapture(n.Operand, inNested, out)
	case *ast.PostfixIncDec:
		walkExprForCapture(n.Operand, inNested, out)
	case *ast.Await:
		walkExprForCapture(n.Operand, inNested, out)
	case *ast.StringInterpolation:
		for _, sub := range n.ExprParts {
			walkExprForCapture(sub, inNested, out)
		}
	case *ast.OptionalChain:
		walkExprForCapture(n.Object, inNested, out)
	case *ast.NullCoalesce:
		walkExprForCapture(n.Left, inNested, out)
		walkExprForCapture(n.Right, inNested, out)
	}
}

// markUnboxedLoops recognizes the canonical counting-loop shape
// `for (let i = <int>; i <cmp> <expr>; i = i + <int>) body` and marks
// the counter variable unboxed when it converged to a primitive
// lattice type and never escapes into a nested closure.
func markUnboxedLoops(stmts []ast.Stmt, env map[string]Lattice, captured map[string]bool, info *FuncInfo) {
	var walk func([]ast.Stmt)
	walk = func(list []ast.Stmt) {
		for _, s := range list {
			switch n := s.(type) {
			case *ast.For:
				if init, ok := n.Init.(*ast.Let); ok {
					if lat, ok := env[init.Name]; ok && lat.IsUnboxablePrimitive() && !captured[init.Name] {
						if _, isNum := init.Value.(*ast.Number); isNum && isMonotonicStep(n.Step, init.Name) {
							info.Unboxed[init.Name] = true
						}
					}
				}
				walk([]ast.Stmt{n.Body})
			case *ast.While:
				walk([]ast.Stmt{n.Body})
			case *ast.If:
				walk([]ast.Stmt{n.Then})
				if n.Else != nil {
					walk([]ast.Stmt{n.Else})
				}
			case *ast.Block:
				walk(n.Stmts)
			case *ast.ForIn:
				walk([]ast.Stmt{n.Body})
			}
		}
	}
	walk(stmts)
}

// isMonotonicStep reports whether a for-loop's step clause is exactly
// `name = name <op> <literal>` or `name++`/`name--`, the only shapes
// the unboxing analysis trusts to keep the counter a primitive across
// every iteration.
func isMonotonicStep(step ast.Stmt, name string) bool {
	es, ok := step.(*ast.ExprStmt)
	if !ok {
		return false
	}
	switch e := es.Expr.(type) {
	case *ast.PostfixIncDec:
		id, ok := e.Operand.(*ast.Ident)
		return ok && id.Name == name
	case *ast.PrefixIncDec:
		id, ok := e.Operand.(*ast.Ident)
		return ok && id.Name == name
	case *ast.Assign:
		if e.Name != name {
			return false
		}
		bin, ok := e.Value.(*ast.Binary)
		if !ok {
			return false
		}
		if bin.Op != ast.OpAdd && bin.Op != ast.OpSub {
			return false
		}
		id, ok := bin.Left.(*ast.Ident)
		if !ok || id.Name != name {
			return false
		}
		_, litOK := bin.Right.(*ast.Number)
		return litOK
	}
	return false
}

// markUnboxedAccumulators recognizes `x = x <op> <expr>`
// rewrites of an already-primitive variable inside a loop body and
// marks x unboxed, covering the running-sum/running-product pattern
// that isn't a loop counter itself.
func markUnboxedAccumulators(stmts []ast.Stmt, env map[string]Lattice, captured map[string]bool, info *FuncInfo) {
	var walkLoopBody func(body ast.Stmt)
	walkLoopBody = func(body ast.Stmt) {
		var stmtsIn []ast.Stmt
		if b, ok := body.(*ast.Block); ok {
			stmtsIn = b.Stmts
		} else {
			stmtsIn = []ast.Stmt{body}
		}
		for _, s := range stmtsIn {
			es, ok := s.(*ast.ExprStmt)
			if !ok {
				continue
			}
			assign, ok := es.Expr.(*ast.Assign)
			if !ok {
				continue
			}
			bin, ok := assign.Value.(*ast.Binary)
			if !ok {
				continue
			}
			id, ok := bin.Left.(*ast.Ident)
			if !ok || id.Name != assign.Name {
				continue
			}
			lat, known := env[assign.Name]
			if !known || !lat.IsUnboxablePrimitive() || captured[assign.Name] {
				continue
			}
			if already, ok := info.Unboxed[assign.Name]; ok && already {
				continue
			}
			info.Unboxed[assign.Name] = true
		}
	}
	var walk func([]ast.Stmt)
	walk = func(list []ast.Stmt) {
		for _, s := range list {
			switch n := s.(type) {
			case *ast.For:
				walkLoopBody(n.Body)
				walk([]ast.Stmt{n.Body})
			case *ast.While:
				walkLoopBody(n.Body)
				walk([]ast.Stmt{n.Body})
			case *ast.ForIn:
				walk([]ast.Stmt{n.Body})
			case *ast.If:
				walk([]ast.Stmt{n.Then})
				if n.Else != nil {
					walk([]ast.Stmt{n.Else})
				}
			case *ast.Block:
				walk(n.Stmts)
			}
		}
	}
	walk(stmts)
}
