package ccodegen

import (
	"sort"

	"github.com/hemlock-lang/hemlock/ast"
)

// emitClosureStructs emits one C struct typedef per distinct shared
// environment discovered by analyzeClosures, each with one HmlValue
// field per captured slot in stable slot order (§4.6: "Slot assignment
// is stable within the compilation unit").
func (g *Codegen) emitClosureStructs() {
	seen := make(map[string]bool)
	var names []string
	fields := make(map[string][]string)
	for _, info := range g.closures {
		if info.EnvStruct == "" || seen[info.EnvStruct] {
			continue
		}
		seen[info.EnvStruct] = true
		names = append(names, info.EnvStruct)
		ordered := make([]string, len(info.EnvSlot))
		for name, slot := range info.EnvSlot {
			ordered[slot] = name
		}
		fields[info.EnvStruct] = ordered
	}
	sort.Strings(names)
	for _, structName := range names {
		g.out.writel("typedef struct {")
		g.out.indent()
		for _, f := range fields[structName] {
			g.out.writeil("HmlValue " + Mangle(f) + ";")
		}
		g.out.unindent()
		g.out.writel("} " + structName + ";")
		g.out.writel("")
	}
}

// ClosureInfo is the compile-time plan for one function literal's
// environment, per §4.6's "Closure analysis": the captured set, the
// shared environment struct it participates in (if any), and the
// stable per-name slot index within that struct.
type ClosureInfo struct {
	// Captured lists every name the function body references that is
	// neither a parameter nor locally declared, in deterministic
	// (first-use) order.
	Captured []string
	// EnvStruct is the mangled C struct name backing this function's
	// environment. Multiple sibling functions that capture overlapping
	// names share one EnvStruct (and therefore one EnvSlot numbering),
	// per §4.6's "materialises a single shared closure environment".
	EnvStruct string
	// EnvSlot maps a captured name to its stable index within EnvStruct.
	EnvSlot map[string]int
}

// closureSet is a shared environment: one or more sibling function
// literals in the same enclosing block whose captured sets overlap,
// merged into a single named struct with one slot per distinct name.
type closureSet struct {
	structName string
	slot       map[string]int
	order      []string
}

func (cs *closureSet) add(names []string) {
	for _, n := range names {
		if _, ok := cs.slot[n]; !ok {
			cs.slot[n] = len(cs.order)
			cs.order = append(cs.order, n)
		}
	}
}

// analyzeClosures walks every function literal in body (recursively,
// including nested ones) and assigns each a ClosureInfo, merging
// overlapping-capture siblings within the same enclosing block into one
// shared environment struct. Top-level (module-scope) functions are
// included too; any name one references without binding it itself (a
// global, a builtin, its own name) lands in its captured set like any
// other capture.
func (g *Codegen) analyzeClosures(stmts []ast.Stmt) map[*ast.Function]*ClosureInfo {
	infos := make(map[*ast.Function]*ClosureInfo)
	g.walkBlockForClosures(stmts, infos)
	return infos
}

// walkBlockForClosures finds every *ast.Function literal directly or
// indirectly reachable from one syntactic block, groups the ones that
// are siblings within that block by overlapping captured names, and
// recurses into each function's own body to analyze nested closures
// against their own enclosing block.
func (g *Codegen) walkBlockForClosures(stmts []ast.Stmt, infos map[*ast.Function]*ClosureInfo) {
	siblings := collectSiblingFunctions(stmts)
	sets := groupOverlapping(siblings, g)

	for _, set := range sets {
		for _, fn := range set.fns {
			captured := capturedNamesOf(fn)
			info := &ClosureInfo{Captured: captured}
			if len(set.fns) > 1 || len(captured) > 0 {
				info.EnvStruct = set.cs.structName
				info.EnvSlot = set.cs.slot
			}
			infos[fn] = info
			g.walkBlockForClosures(fn.Body, infos)
		}
	}
}

type fnGroup struct {
	fns []*ast.Function
	cs  *closureSet
}

// groupOverlapping unions sibling functions whose captured sets share
// at least one name into the same closureSet (classic union-find over
// a small N), assigning each resulting set a fresh mangled struct name.
func groupOverlapping(fns []*ast.Function, g *Codegen) []fnGroup {
	parent := make([]int, len(fns))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	captures := make([][]string, len(fns))
	for i, fn := range fns {
		captures[i] = capturedNamesOf(fn)
	}
	for i := range fns {
		for j := i + 1; j < len(fns); j++ {
			if overlaps(captures[i], captures[j]) {
				union(i, j)
			}
		}
	}

	groups := make(map[int]*fnGroup)
	var order []int
	for i, fn := range fns {
		root := find(i)
		grp, ok := groups[root]
		if !ok {
			grp = &fnGroup{cs: &closureSet{
				structName: g.labelName("Env"),
				slot:       make(map[string]int),
			}}
			groups[root] = grp
			order = append(order, root)
		}
		grp.fns = append(grp.fns, fn)
		grp.cs.add(captures[i])
	}

	result := make([]fnGroup, 0, len(order))
	for _, root := range order {
		result = append(result, *groups[root])
	}
	return result
}

func overlaps(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, n := range a {
		set[n] = true
	}
	for _, n := range b {
		if set[n] {
			return true
		}
	}
	return false
}

// collectSiblingFunctions returns every *ast.Function literal that is a
// direct child of stmts (assigned via `let`/`const`, an expression
// statement, or otherwise immediately reachable) without descending
// into a function's own body — those are handled as their own sibling
// group by the recursive call in walkBlockForClosures.
func collectSiblingFunctions(stmts []ast.Stmt) []*ast.Function {
	var out []*ast.Function
	var visitExpr func(e ast.Expr)
	visitExpr = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.Function:
			out = append(out, n)
		case *ast.Binary:
			visitExpr(n.Left)
			visitExpr(n.Right)
		case *ast.Unary:
			visitExpr(n.Operand)
		case *ast.Ternary:
			visitExpr(n.Cond)
			visitExpr(n.Then)
			visitExpr(n.Else)
		case *ast.Call:
			visitExpr(n.Callee)
			for _, a := range n.Args {
				visitExpr(a)
			}
		case *ast.Assign:
			visitExpr(n.Value)
		case *ast.GetProperty:
			visitExpr(n.Object)
		case *ast.SetProperty:
			visitExpr(n.Object)
			visitExpr(n.Value)
		case *ast.Index:
			visitExpr(n.Object)
			visitExpr(n.At)
		case *ast.IndexAssign:
			visitExpr(n.Object)
			visitExpr(n.At)
			visitExpr(n.Value)
		case *ast.ArrayLiteral:
			for _, el := range n.Elements {
				visitExpr(el)
			}
		case *ast.ObjectLiteral:
			for _, v := range n.FieldValues {
				visitExpr(v)
			}
		case *ast.PrefixIncDec:
			visitExpr(n.Operand)
		case *ast.PostfixIncDec:
			visitExpr(n.Operand)
		case *ast.Await:
			visitExpr(n.Operand)
		case *ast.StringInterpolation:
			for _, sub := range n.ExprParts {
				visitExpr(sub)
			}
		case *ast.OptionalChain:
			visitExpr(n.Object)
		case *ast.NullCoalesce:
			visitExpr(n.Left)
			visitExpr(n.Right)
		}
	}
	var visitStmt func(s ast.Stmt)
	visitStmt = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.Let:
			visitExpr(n.Value)
		case *ast.Const:
			visitExpr(n.Value)
		case *ast.ExprStmt:
			visitExpr(n.Expr)
		case *ast.Return:
			visitExpr(n.Value)
		case *ast.Throw:
			visitExpr(n.Value)
		case *ast.Defer:
			visitExpr(n.Call)
		case *ast.If:
			visitExpr(n.Cond)
		case *ast.While:
			visitExpr(n.Cond)
		case *ast.For:
			if n.Cond != nil {
				visitExpr(n.Cond)
			}
		case *ast.ForIn:
			visitExpr(n.Iterable)
		case *ast.Switch:
			visitExpr(n.Expr)
		}
	}
	for _, s := range stmts {
		visitStmt(s)
	}
	return out
}

// capturedNamesOf returns fn's captured set in deterministic order: a
// name is captured if referenced in the body and not a parameter,
// the rest-parameter, or a name the body itself declares via
// let/const before any use (a conservative over-approximation that
// never misses a real capture, matching the caution the unboxing
// analysis (types/unbox.go) applies to the same question).
func capturedNamesOf(fn *ast.Function) []string {
	local := make(map[string]bool)
	for _, p := range fn.Params {
		local[p.Name] = true
	}
	if fn.Rest != nil {
		local[fn.Rest.Name] = true
	}
	declareLocals(fn.Body, local)

	seen := make(map[string]bool)
	var order []string
	mark := func(name string) {
		if local[name] || seen[name] {
			return
		}
		seen[name] = true
		order = append(order, name)
	}

	var visitExpr func(e ast.Expr)
	visitExpr = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.Ident:
			mark(n.Name)
		case *ast.Assign:
			mark(n.Name)
			visitExpr(n.Value)
		case *ast.Binary:
			visitExpr(n.Left)
			visitExpr(n.Right)
		case *ast.Unary:
			visitExpr(n.Operand)
		case *ast.Ternary:
			visitExpr(n.Cond)
			visitExpr(n.Then)
			visitExpr(n.Else)
		case *ast.Call:
			visitExpr(n.Callee)
			for _, a := range n.Args {
				visitExpr(a)
			}
		case *ast.GetProperty:
			visitExpr(n.Object)
		case *ast.SetProperty:
			visitExpr(n.Object)
			visitExpr(n.Value)
		case *ast.Index:
			visitExpr(n.Object)
			visitExpr(n.At)
		case *ast.IndexAssign:
			visitExpr(n.Object)
			visitExpr(n.At)
			visitExpr(n.Value)
		case *ast.Function:
			// A nested closure's own captures that aren't bound within
			// it either are, transitively, captures of this function too.
			for _, name := range capturedNamesOf(n) {
				mark(name)
			}
		case *ast.ArrayLiteral:
			for _, el := range n.Elements {
				visitExpr(el)
			}
		case *ast.ObjectLiteral:
			for _, v := range n.FieldValues {
				visitExpr(v)
			}
		case *ast.PrefixIncDec:
			visitExpr(n.Operand)
		case *ast.PostfixIncDec:
			visitExpr(n.Operand)
		case *ast.Await:
			visitExpr(n.Operand)
		case *ast.StringInterpolation:
			for _, sub := range n.ExprParts {
				visitExpr(sub)
			}
		case *ast.OptionalChain:
			visitExpr(n.Object)
		case *ast.NullCoalesce:
			visitExpr(n.Left)
			visitExpr(n.Right)
		}
	}
	var visitStmt func(s ast.Stmt)
	visitStmt = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.Let:
			visitExpr(n.Value)
		case *ast.Const:
			visitExpr(n.Value)
		case *ast.ExprStmt:
			visitExpr(n.Expr)
		case *ast.If:
			visitExpr(n.Cond)
			visitStmt(n.Then)
			if n.Else != nil {
				visitStmt(n.Else)
			}
		case *ast.While:
			visitExpr(n.Cond)
			visitStmt(n.Body)
		case *ast.For:
			if n.Init != nil {
				visitStmt(n.Init)
			}
			if n.Cond != nil {
				visitExpr(n.Cond)
			}
			if n.Step != nil {
				visitStmt(n.Step)
			}
			visitStmt(n.Body)
		case *ast.ForIn:
			visitExpr(n.Iterable)
			visitStmt(n.Body)
		case *ast.Block:
			for _, s2 := range n.Stmts {
				visitStmt(s2)
			}
		case *ast.Return:
			visitExpr(n.Value)
		case *ast.Try:
			visitStmt(n.TryBlock)
			if n.CatchBlock != nil {
				visitStmt(n.CatchBlock)
			}
			if n.FinallyBlock != nil {
				visitStmt(n.FinallyBlock)
			}
		case *ast.Throw:
			visitExpr(n.Value)
		case *ast.Switch:
			visitExpr(n.Expr)
			for _, c := range n.Cases {
				for _, s2 := range c.Body {
					visitStmt(s2)
				}
			}
		case *ast.Defer:
			visitExpr(n.Call)
		}
	}
	for _, s := range fn.Body {
		visitStmt(s)
	}
	return order
}

// declareLocals records every name a function body declares directly
// (not inside a nested function literal) so capturedNamesOf can
// distinguish a genuinely free identifier from a local the body itself
// introduces.
func declareLocals(stmts []ast.Stmt, local map[string]bool) {
	var walk func(s ast.Stmt)
	walk = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.Let:
			local[n.Name] = true
		case *ast.Const:
			local[n.Name] = true
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
			if n.Key != "" {
				local[n.Key] = true
			}
			local[n.Value] = true
			walk(n.Body)
		case *ast.Block:
			for _, s2 := range n.Stmts {
				walk(s2)
			}
		case *ast.Try:
			walk(n.TryBlock)
			if n.CatchParam != "" {
				local[n.CatchParam] = true
			}
			if n.CatchBlock != nil {
				walk(n.CatchBlock)
			}
			if n.FinallyBlock != nil {
				walk(n.FinallyBlock)
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
}
