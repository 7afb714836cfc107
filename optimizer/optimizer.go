// Package optimizer performs a pure AST-to-AST rewrite pass over a
// parsed program: constant folding, boolean short-circuit
// simplification, algebraic identities, and strength reduction, per
// SPEC_FULL.md §4.3. It never changes observable evaluation order or
// drops a side-effecting subterm's evaluation.
//
// The walk is grounded on
// _examples/clarete-langlang/go/grammar_ast_visitor.go's visitor
// dispatch: one struct implementing both ast.ExprVisitor and
// ast.StmtVisitor, with Accept doing the double-dispatch instead of a
// switch on a node-kind tag.
package optimizer

import (
	"math/bits"

	"github.com/hemlock-lang/hemlock/ast"
	"github.com/hemlock-lang/hemlock/token"
)

// Stats tallies how many rewrites of each kind the pass applied, for
// hemlockc's `-v` debug log and for tests asserting the pass actually
// fired.
type Stats struct {
	ConstantsFolded     int
	BooleansSimplified  int
	StrengthReductions  int
}

type Optimizer struct {
	stats Stats
}

func New() *Optimizer { return &Optimizer{} }

// OptimizeProgram rewrites every statement in place (structurally; the
// tree itself is never mutated node-by-node, each Visit returns a fresh
// or passed-through node) and returns the accumulated Stats.
func (o *Optimizer) OptimizeProgram(stmts []ast.Stmt) ([]ast.Stmt, Stats) {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = o.stmt(s)
	}
	return out, o.stats
}

func (o *Optimizer) stmt(s ast.Stmt) ast.Stmt {
	if s == nil {
		return nil
	}
	res, _ := s.Accept(o)
	if r, ok := res.(ast.Stmt); ok {
		return r
	}
	return s
}

func (o *Optimizer) expr(e ast.Expr) ast.Expr {
	if e == nil {
		return nil
	}
	res, _ := e.Accept(o)
	if r, ok := res.(ast.Expr); ok {
		return r
	}
	return e
}

func (o *Optimizer) stmts(list []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, len(list))
	for i, s := range list {
		out[i] = o.stmt(s)
	}
	return out
}

// ---- StmtVisitor ----

func (o *Optimizer) VisitLet(n *ast.Let) (any, error) {
	n.Value = o.expr(n.Value)
	return n, nil
}

func (o *Optimizer) VisitConst(n *ast.Const) (any, error) {
	n.Value = o.expr(n.Value)
	return n, nil
}

func (o *Optimizer) VisitExprStmt(n *ast.ExprStmt) (any, error) {
	n.Expr = o.expr(n.Expr)
	return n, nil
}

func (o *Optimizer) VisitIf(n *ast.If) (any, error) {
	n.Cond = o.expr(n.Cond)
	n.Then = o.stmt(n.Then)
	if n.Else != nil {
		n.Else = o.stmt(n.Else)
	}
	// `if (true) { a } else { b }` -> `a` ; `if (false) {...} else {b}` -> `b`.
	// Safe: the runtime would already execute exactly one branch.
	if lit, ok := literalBool(n.Cond); ok {
		o.stats.BooleansSimplified++
		if lit {
			return n.Then, nil
		}
		if n.Else != nil {
			return n.Else, nil
		}
		return ast.NewBlock(n.Span(), nil), nil
	}
	return n, nil
}

func (o *Optimizer) VisitWhile(n *ast.While) (any, error) {
	n.Cond = o.expr(n.Cond)
	n.Body = o.stmt(n.Body)
	return n, nil
}

func (o *Optimizer) VisitFor(n *ast.For) (any, error) {
	if n.Init != nil {
		n.Init = o.stmt(n.Init)
	}
	if n.Cond != nil {
		n.Cond = o.expr(n.Cond)
	}
	if n.Step != nil {
		n.Step = o.stmt(n.Step)
	}
	n.Body = o.stmt(n.Body)
	return n, nil
}

func (o *Optimizer) VisitForIn(n *ast.ForIn) (any, error) {
	n.Iterable = o.expr(n.Iterable)
	n.Body = o.stmt(n.Body)
	return n, nil
}

func (o *Optimizer) VisitBlock(n *ast.Block) (any, error) {
	n.Stmts = o.stmts(n.Stmts)
	return n, nil
}

func (o *Optimizer) VisitReturn(n *ast.Return) (any, error) {
	if n.Value != nil {
		n.Value = o.expr(n.Value)
	}
	return n, nil
}

func (o *Optimizer) VisitBreak(n *ast.Break) (any, error)       { return n, nil }
func (o *Optimizer) VisitContinue(n *ast.Continue) (any, error) { return n, nil }

func (o *Optimizer) VisitTry(n *ast.Try) (any, error) {
	n.TryBlock = o.stmt(n.TryBlock).(*ast.Block)
	if n.CatchBlock != nil {
		n.CatchBlock = o.stmt(n.CatchBlock).(*ast.Block)
	}
	if n.FinallyBlock != nil {
		n.FinallyBlock = o.stmt(n.FinallyBlock).(*ast.Block)
	}
	return n, nil
}

func (o *Optimizer) VisitThrow(n *ast.Throw) (any, error) {
	n.Value = o.expr(n.Value)
	return n, nil
}

func (o *Optimizer) VisitSwitch(n *ast.Switch) (any, error) {
	n.Expr = o.expr(n.Expr)
	for i := range n.Cases {
		if n.Cases[i].Value != nil {
			n.Cases[i].Value = o.expr(n.Cases[i].Value)
		}
		n.Cases[i].Body = o.stmts(n.Cases[i].Body)
	}
	return n, nil
}

func (o *Optimizer) VisitDefer(n *ast.Defer) (any, error) {
	call := o.expr(n.Call)
	if c, ok := call.(*ast.Call); ok {
		n.Call = c
	}
	return n, nil
}

func (o *Optimizer) VisitImport(n *ast.Import) (any, error)       { return n, nil }
func (o *Optimizer) VisitExport(n *ast.Export) (any, error) {
	if n.IsDeclaration && n.Declaration != nil {
		n.Declaration = o.stmt(n.Declaration)
	}
	return n, nil
}
func (o *Optimizer) VisitImportFFI(n *ast.ImportFFI) (any, error)       { return n, nil }
func (o *Optimizer) VisitExternFn(n *ast.ExternFn) (any, error)         { return n, nil }
func (o *Optimizer) VisitDefineObject(n *ast.DefineObject) (any, error) {
	for i := range n.Fields {
		if n.Fields[i].Default != nil {
			n.Fields[i].Default = o.expr(n.Fields[i].Default)
		}
	}
	return n, nil
}
func (o *Optimizer) VisitEnum(n *ast.Enum) (any, error) {
	for i := range n.Variants {
		if n.Variants[i].Value != nil {
			n.Variants[i].Value = o.expr(n.Variants[i].Value)
		}
	}
	return n, nil
}

// ---- ExprVisitor ----

func (o *Optimizer) VisitNumber(n *ast.Number) (any, error) { return n, nil }
func (o *Optimizer) VisitBool(n *ast.Bool) (any, error)     { return n, nil }
func (o *Optimizer) VisitString(n *ast.String) (any, error) { return n, nil }
func (o *Optimizer) VisitRune(n *ast.Rune) (any, error)     { return n, nil }
func (o *Optimizer) VisitNull(n *ast.Null) (any, error)     { return n, nil }
func (o *Optimizer) VisitIdent(n *ast.Ident) (any, error)   { return n, nil }

func (o *Optimizer) VisitBinary(n *ast.Binary) (any, error) {
	n.Left = o.expr(n.Left)
	n.Right = o.expr(n.Right)

	if folded, ok := o.foldShortCircuit(n); ok {
		o.stats.BooleansSimplified++
		return folded, nil
	}
	if folded, ok := foldConstantBinary(n); ok {
		o.stats.ConstantsFolded++
		return folded, nil
	}
	if folded, ok := foldAlgebraicIdentity(n); ok {
		o.stats.StrengthReductions++
		return folded, nil
	}
	if reduced, ok := o.reduceStrength(n); ok {
		o.stats.StrengthReductions++
		return reduced, nil
	}
	return n, nil
}

func (o *Optimizer) VisitUnary(n *ast.Unary) (any, error) {
	n.Operand = o.expr(n.Operand)

	// `!!x` -> `x`; `-(-x)` -> `x`; `~(~x)` -> `x`.
	if inner, ok := n.Operand.(*ast.Unary); ok && inner.Op == n.Op {
		o.stats.BooleansSimplified++
		return inner.Operand, nil
	}
	if folded, ok := foldConstantUnary(n); ok {
		o.stats.ConstantsFolded++
		return folded, nil
	}
	return n, nil
}

func (o *Optimizer) VisitTernary(n *ast.Ternary) (any, error) {
	n.Cond = o.expr(n.Cond)
	n.Then = o.expr(n.Then)
	n.Else = o.expr(n.Else)
	if lit, ok := literalBool(n.Cond); ok {
		o.stats.BooleansSimplified++
		if lit {
			return n.Then, nil
		}
		return n.Else, nil
	}
	return n, nil
}

func (o *Optimizer) VisitCall(n *ast.Call) (any, error) {
	n.Callee = o.expr(n.Callee)
	for i := range n.Args {
		n.Args[i] = o.expr(n.Args[i])
	}
	return n, nil
}

func (o *Optimizer) VisitAssign(n *ast.Assign) (any, error) {
	n.Value = o.expr(n.Value)
	return n, nil
}

func (o *Optimizer) VisitGetProperty(n *ast.GetProperty) (any, error) {
	n.Object = o.expr(n.Object)
	return n, nil
}

func (o *Optimizer) VisitSetProperty(n *ast.SetProperty) (any, error) {
	n.Object = o.expr(n.Object)
	n.Value = o.expr(n.Value)
	return n, nil
}

func (o *Optimizer) VisitIndex(n *ast.Index) (any, error) {
	n.Object = o.expr(n.Object)
	n.At = o.expr(n.At)
	return n, nil
}

func (o *Optimizer) VisitIndexAssign(n *ast.IndexAssign) (any, error) {
	n.Object = o.expr(n.Object)
	n.At = o.expr(n.At)
	n.Value = o.expr(n.Value)
	return n, nil
}

func (o *Optimizer) VisitFunction(n *ast.Function) (any, error) {
	for i := range n.Params {
		if n.Params[i].Default != nil {
			n.Params[i].Default = o.expr(n.Params[i].Default)
		}
	}
	n.Body = o.stmts(n.Body)
	return n, nil
}

func (o *Optimizer) VisitArrayLiteral(n *ast.ArrayLiteral) (any, error) {
	for i := range n.Elements {
		n.Elements[i] = o.expr(n.Elements[i])
	}
	return n, nil
}

func (o *Optimizer) VisitObjectLiteral(n *ast.ObjectLiteral) (any, error) {
	for i := range n.FieldValues {
		n.FieldValues[i] = o.expr(n.FieldValues[i])
	}
	return n, nil
}

func (o *Optimizer) VisitPrefixIncDec(n *ast.PrefixIncDec) (any, error) {
	n.Operand = o.expr(n.Operand)
	return n, nil
}

func (o *Optimizer) VisitPostfixIncDec(n *ast.PostfixIncDec) (any, error) {
	n.Operand = o.expr(n.Operand)
	return n, nil
}

func (o *Optimizer) VisitAwait(n *ast.Await) (any, error) {
	n.Operand = o.expr(n.Operand)
	return n, nil
}

func (o *Optimizer) VisitStringInterpolation(n *ast.StringInterpolation) (any, error) {
	for i := range n.ExprParts {
		n.ExprParts[i] = o.expr(n.ExprParts[i])
	}
	return n, nil
}

func (o *Optimizer) VisitOptionalChain(n *ast.OptionalChain) (any, error) {
	n.Object = o.expr(n.Object)
	return n, nil
}

func (o *Optimizer) VisitNullCoalesce(n *ast.NullCoalesce) (any, error) {
	n.Left = o.expr(n.Left)
	n.Right = o.expr(n.Right)
	if _, isNull := n.Left.(*ast.Null); isNull {
		o.stats.BooleansSimplified++
		return n.Right, nil
	}
	if isPureLiteral(n.Left) {
		o.stats.BooleansSimplified++
		return n.Left, nil
	}
	return n, nil
}

// ---- rewrite rules ----

func literalBool(e ast.Expr) (bool, bool) {
	if b, ok := e.(*ast.Bool); ok {
		return b.Value, true
	}
	return false, false
}

// isPureLiteral reports whether e is a literal known, at optimize time,
// to never be null. An identifier's runtime value is unknown and must
// not be folded here: `let x = null; x ?? "default"` would otherwise
// wrongly fold to bare `x`.
func isPureLiteral(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Number, *ast.Bool, *ast.String, *ast.Rune:
		return true
	}
	return false
}

// foldShortCircuit applies `true || x -> true`, `false || x -> x`,
// `true && x -> x`, `false && x -> false`. Always sound: at runtime the
// right operand of a short-circuit operator is only ever evaluated
// when the left operand's truth value doesn't already decide the
// result, so folding on a statically-known left operand never discards
// an evaluation that would otherwise have happened.
func (o *Optimizer) foldShortCircuit(n *ast.Binary) (ast.Expr, bool) {
	lit, ok := literalBool(n.Left)
	if !ok {
		return nil, false
	}
	switch n.Op {
	case ast.OpOrOr:
		if lit {
			return n.Left, true
		}
		return n.Right, true
	case ast.OpAndAnd:
		if !lit {
			return n.Left, true
		}
		return n.Right, true
	}
	return nil, false
}

// reduceStrength rewrites multiplication by a power of two into a left
// shift, when the non-constant operand's evaluation is preserved
// exactly once. Division is not reduced anywhere: `/` always yields
// f64, so it has no shift equivalent.
func (o *Optimizer) reduceStrength(n *ast.Binary) (ast.Expr, bool) {
	if n.Op != ast.OpMul {
		return nil, false
	}
	if k, pow, ok := powerOfTwoOperand(n.Right); ok {
		if k == 0 {
			return n.Left, true
		}
		return ast.NewBinary(n.Span(), ast.OpShl, n.Left, numberLiteral(n.Span(), int64(pow))), true
	}
	if k, pow, ok := powerOfTwoOperand(n.Left); ok {
		if k == 0 {
			return n.Right, true
		}
		return ast.NewBinary(n.Span(), ast.OpShl, n.Right, numberLiteral(n.Span(), int64(pow))), true
	}
	return nil, false
}

// foldAlgebraicIdentity applies the identity-element rewrites named in
// SPEC_FULL.md §4.3: `x+0`, `x*1`, `x/1`, `x|0`, `x^0`, `x&-1`, `x<<0`,
// `x>>0` all collapse to the non-constant operand. Only the side that
// still carries a possible side effect is kept, and it is kept
// unevaluated-again (the existing `o.expr` walk over both operands
// already ran once, before this rule fires).
func foldAlgebraicIdentity(n *ast.Binary) (ast.Expr, bool) {
	switch n.Op {
	case ast.OpAdd:
		if isIntConst(n.Right, 0) {
			return n.Left, true
		}
		if isIntConst(n.Left, 0) {
			return n.Right, true
		}
	case ast.OpMul:
		if isIntConst(n.Right, 1) {
			return n.Left, true
		}
		if isIntConst(n.Left, 1) {
			return n.Right, true
		}
	case ast.OpDiv:
		if isIntConst(n.Right, 1) {
			return n.Left, true
		}
	case ast.OpBitOr:
		if isIntConst(n.Right, 0) {
			return n.Left, true
		}
		if isIntConst(n.Left, 0) {
			return n.Right, true
		}
	case ast.OpBitXor:
		if isIntConst(n.Right, 0) {
			return n.Left, true
		}
		if isIntConst(n.Left, 0) {
			return n.Right, true
		}
	case ast.OpBitAnd:
		if isIntConst(n.Right, -1) {
			return n.Left, true
		}
		if isIntConst(n.Left, -1) {
			return n.Right, true
		}
	case ast.OpShl:
		if isIntConst(n.Right, 0) {
			return n.Left, true
		}
	case ast.OpShr:
		if isIntConst(n.Right, 0) {
			return n.Left, true
		}
	}
	return nil, false
}

func isIntConst(e ast.Expr, v int64) bool {
	num, ok := e.(*ast.Number)
	return ok && !num.IsFloat && num.Int == v
}

func powerOfTwoOperand(e ast.Expr) (value int64, shift int, ok bool) {
	num, isNum := e.(*ast.Number)
	if !isNum || num.IsFloat || num.Int <= 0 {
		return 0, 0, false
	}
	if num.Int&(num.Int-1) != 0 {
		return 0, 0, false
	}
	return num.Int, bits.TrailingZeros64(uint64(num.Int)), true
}

func numberLiteral(sp token.Span, shift int64) *ast.Number {
	return ast.NewNumber(sp, false, shift, 0)
}

// foldConstantBinary evaluates a binary operator over two literal
// operands at compile time.
func foldConstantBinary(n *ast.Binary) (ast.Expr, bool) {
	// String concatenation: "a" + "b" -> "ab".
	if n.Op == ast.OpAdd {
		if l, ok := n.Left.(*ast.String); ok {
			if r, ok := n.Right.(*ast.String); ok {
				return ast.NewString(n.Span(), l.Value+r.Value), true
			}
		}
	}

	ln, lok := n.Left.(*ast.Number)
	rn, rok := n.Right.(*ast.Number)
	if lok && rok {
		return foldNumericBinary(n.Span(), n.Op, ln, rn)
	}

	lb, lbok := n.Left.(*ast.Bool)
	rb, rbok := n.Right.(*ast.Bool)
	if lbok && rbok {
		switch n.Op {
		case ast.OpEq:
			return ast.NewBool(n.Span(), lb.Value == rb.Value), true
		case ast.OpNeq:
			return ast.NewBool(n.Span(), lb.Value != rb.Value), true
		}
	}
	return nil, false
}

func foldNumericBinary(sp token.Span, op ast.BinaryOp, l, r *ast.Number) (ast.Expr, bool) {
	if l.IsFloat || r.IsFloat {
		lf, rf := l.Float, r.Float
		if !l.IsFloat {
			lf = float64(l.Int)
		}
		if !r.IsFloat {
			rf = float64(r.Int)
		}
		switch op {
		case ast.OpAdd:
			return ast.NewNumber(sp, true, 0, lf+rf), true
		case ast.OpSub:
			return ast.NewNumber(sp, true, 0, lf-rf), true
		case ast.OpMul:
			return ast.NewNumber(sp, true, 0, lf*rf), true
		case ast.OpDiv:
			if rf == 0 {
				return nil, false
			}
			return ast.NewNumber(sp, true, 0, lf/rf), true
		case ast.OpLt:
			return ast.NewBool(sp, lf < rf), true
		case ast.OpLte:
			return ast.NewBool(sp, lf <= rf), true
		case ast.OpGt:
			return ast.NewBool(sp, lf > rf), true
		case ast.OpGte:
			return ast.NewBool(sp, lf >= rf), true
		case ast.OpEq:
			return ast.NewBool(sp, lf == rf), true
		case ast.OpNeq:
			return ast.NewBool(sp, lf != rf), true
		}
		return nil, false
	}

	li, ri := l.Int, r.Int
	switch op {
	case ast.OpAdd:
		return ast.NewNumber(sp, false, li+ri, 0), true
	case ast.OpSub:
		return ast.NewNumber(sp, false, li-ri, 0), true
	case ast.OpMul:
		return ast.NewNumber(sp, false, li*ri, 0), true
	case ast.OpDiv:
		if ri == 0 {
			return nil, false
		}
		return ast.NewNumber(sp, true, 0, float64(li)/float64(ri)), true
	case ast.OpMod:
		if ri == 0 {
			return nil, false
		}
		return ast.NewNumber(sp, false, li%ri, 0), true
	case ast.OpBitAnd:
		return ast.NewNumber(sp, false, li&ri, 0), true
	case ast.OpBitOr:
		return ast.NewNumber(sp, false, li|ri, 0), true
	case ast.OpBitXor:
		return ast.NewNumber(sp, false, li^ri, 0), true
	case ast.OpShl:
		return ast.NewNumber(sp, false, li<<uint(ri), 0), true
	case ast.OpShr:
		return ast.NewNumber(sp, false, li>>uint(ri), 0), true
	case ast.OpLt:
		return ast.NewBool(sp, li < ri), true
	case ast.OpLte:
		return ast.NewBool(sp, li <= ri), true
	case ast.OpGt:
		return ast.NewBool(sp, li > ri), true
	case ast.OpGte:
		return ast.NewBool(sp, li >= ri), true
	case ast.OpEq:
		return ast.NewBool(sp, li == ri), true
	case ast.OpNeq:
		return ast.NewBool(sp, li != ri), true
	}
	return nil, false
}

func foldConstantUnary(n *ast.Unary) (ast.Expr, bool) {
	switch n.Op {
	case ast.OpNot:
		if b, ok := n.Operand.(*ast.Bool); ok {
			return ast.NewBool(n.Span(), !b.Value), true
		}
	case ast.OpNeg:
		if num, ok := n.Operand.(*ast.Number); ok {
			if num.IsFloat {
				return ast.NewNumber(n.Span(), true, 0, -num.Float), true
			}
			return ast.NewNumber(n.Span(), false, -num.Int, 0), true
		}
	case ast.OpBitNot:
		if num, ok := n.Operand.(*ast.Number); ok && !num.IsFloat {
			return ast.NewNumber(n.Span(), false, ^num.Int, 0), true
		}
	}
	return nil, false
}
