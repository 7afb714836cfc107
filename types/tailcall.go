package types

import "github.com/hemlock-lang/hemlock/ast"

// collectTailCalls marks every *ast.Call that sits in syntactic tail
// position within a function body: the last statement reached along
// every control-flow path out of the function, where a `return <call>`
// is the final action taken. The C backend rewrites a marked call into
// a loop-back jump instead of a recursive C call when it is
// self-recursive, per SPEC_FULL.md §4.6. `try`/`finally` bodies are
// deliberately excluded — a pending finally block means the return
// isn't really the last action, so those Returns are never marked.
func collectTailCalls(body []ast.Stmt, info *FuncInfo) {
	markTailStmts(body, info)
}

func markTailStmts(stmts []ast.Stmt, info *FuncInfo) {
	// A Return is the final action on its path wherever it sits, so every
	// statement is visited, not only the last one.
	for _, s := range stmts {
		markTailStmt(s, info)
	}
}

func markTailStmt(s ast.Stmt, info *FuncInfo) {
	switch n := s.(type) {
	case *ast.Return:
		if call, ok := n.Value.(*ast.Call); ok {
			info.TailCalls[call] = true
		}
	case *ast.Block:
		markTailStmts(n.Stmts, info)
	case *ast.If:
		markTailStmt(n.Then, info)
		if n.Else != nil {
			markTailStmt(n.Else, info)
		}
	case *ast.Switch:
		for _, c := range n.Cases {
			markTailStmts(c.Body, info)
		}
	}
}
