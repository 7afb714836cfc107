package ccodegen

import (
	"fmt"
	"strconv"

	"github.com/hemlock-lang/hemlock/ast"
)

// resolveIdent returns the C lvalue/rvalue expression for a hemlock
// name in the current function: a captured-environment field access if
// the innermost function's closure captures it, otherwise the mangled
// local/parameter name.
func (g *Codegen) resolveIdent(name string) string {
	ctx := g.currentFunc()
	if ctx.closure != nil {
		if _, ok := ctx.closure.EnvSlot[name]; ok {
			return "_env->" + Mangle(name)
		}
	}
	return Mangle(name)
}

// emitExpr lowers e to a C expression string. Most hemlock expressions
// map onto a single runtime intrinsic call and therefore need no
// statement-level staging; the few that do (calls used only for their
// side effect, covered by emitStmt's ExprStmt case) are handled there
// instead.
func (g *Codegen) emitExpr(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Number:
		if n.IsFloat {
			return fmt.Sprintf("hml_val_f64(%s)", formatFloat(n.Float))
		}
		return fmt.Sprintf("hml_val_i32(%dLL)", n.Int)
	case *ast.Bool:
		if n.Value {
			return "hml_val_bool(1)"
		}
		return "hml_val_bool(0)"
	case *ast.String:
		return fmt.Sprintf("hml_string_new(%s)", strconv.Quote(n.Value))
	case *ast.Rune:
		return fmt.Sprintf("hml_val_rune(%dL)", n.Codepoint)
	case *ast.Null:
		return "hml_val_null()"
	case *ast.Ident:
		return g.resolveIdent(n.Name)
	case *ast.Binary:
		return g.emitBinary(n)
	case *ast.Unary:
		return fmt.Sprintf("hml_unop(%s, %s)", unaryOpCode(n.Op), g.emitExpr(n.Operand))
	case *ast.Ternary:
		return fmt.Sprintf("(hml_truthy(%s) ? (%s) : (%s))",
			g.emitExpr(n.Cond), g.emitExpr(n.Then), g.emitExpr(n.Else))
	case *ast.Call:
		return g.emitCall(n)
	case *ast.Assign:
		return fmt.Sprintf("(%s = %s)", g.resolveIdent(n.Name), g.emitExpr(n.Value))
	case *ast.GetProperty:
		return fmt.Sprintf("hml_get_property(%s, %s)", g.emitExpr(n.Object), strconv.Quote(n.Name))
	case *ast.SetProperty:
		return fmt.Sprintf("hml_set_property(%s, %s, %s)",
			g.emitExpr(n.Object), strconv.Quote(n.Name), g.emitExpr(n.Value))
	case *ast.Index:
		return fmt.Sprintf("hml_index_get(%s, %s)", g.emitExpr(n.Object), g.emitExpr(n.At))
	case *ast.IndexAssign:
		return fmt.Sprintf("hml_index_set(%s, %s, %s)",
			g.emitExpr(n.Object), g.emitExpr(n.At), g.emitExpr(n.Value))
	case *ast.Function:
		return g.emitClosureLiteral(n)
	case *ast.ArrayLiteral:
		return g.emitArrayLiteral(n)
	case *ast.ObjectLiteral:
		return g.emitObjectLiteral(n)
	case *ast.PrefixIncDec:
		return g.emitPrefixIncDec(n)
	case *ast.PostfixIncDec:
		return g.emitPostfixIncDec(n)
	case *ast.Await:
		// §5: "await is recognised syntactically and routed to the
		// runtime's task primitive; its implementation is out of scope."
		return fmt.Sprintf("hml_await(%s)", g.emitExpr(n.Operand))
	case *ast.StringInterpolation:
		return g.emitStringInterpolation(n)
	case *ast.OptionalChain:
		return fmt.Sprintf("hml_optional_get_property(%s, %s)", g.emitExpr(n.Object), strconv.Quote(n.Name))
	case *ast.NullCoalesce:
		return fmt.Sprintf("hml_null_coalesce(%s, %s)", g.emitExpr(n.Left), g.emitExpr(n.Right))
	}
	g.diag.Addf(e.Span(), "ccodegen: unsupported expression %T", e)
	return "hml_val_null()"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func binaryOpCode(op ast.BinaryOp) string {
	switch op {
	case ast.OpAdd:
		return "HML_OP_ADD"
	case ast.OpSub:
		return "HML_OP_SUB"
	case ast.OpMul:
		return "HML_OP_MUL"
	case ast.OpDiv:
		return "HML_OP_DIV"
	case ast.OpMod:
		return "HML_OP_MOD"
	case ast.OpEq:
		return "HML_OP_EQ"
	case ast.OpNeq:
		return "HML_OP_NEQ"
	case ast.OpLt:
		return "HML_OP_LT"
	case ast.OpLte:
		return "HML_OP_LTE"
	case ast.OpGt:
		return "HML_OP_GT"
	case ast.OpGte:
		return "HML_OP_GTE"
	case ast.OpBitAnd:
		return "HML_OP_BITAND"
	case ast.OpBitOr:
		return "HML_OP_BITOR"
	case ast.OpBitXor:
		return "HML_OP_BITXOR"
	case ast.OpShl:
		return "HML_OP_SHL"
	case ast.OpShr:
		return "HML_OP_SHR"
	}
	return "HML_OP_ADD"
}

func unaryOpCode(op ast.UnaryOp) string {
	switch op {
	case ast.OpNot:
		return "HML_UNARY_NOT"
	case ast.OpNeg:
		return "HML_UNARY_NEG"
	case ast.OpBitNot:
		return "HML_UNARY_BITNOT"
	}
	return "HML_UNARY_NOT"
}

// emitBinary lowers && and || to short-circuiting C expressions (the
// interpreter's VisitBinary does the same ahead of EvalBinary) and
// everything else to the HML_OP_* intrinsic.
func (g *Codegen) emitBinary(n *ast.Binary) string {
	switch n.Op {
	case ast.OpAndAnd:
		return fmt.Sprintf("hml_val_bool(hml_truthy(%s) && hml_truthy(%s))",
			g.emitExpr(n.Left), g.emitExpr(n.Right))
	case ast.OpOrOr:
		return fmt.Sprintf("hml_val_bool(hml_truthy(%s) || hml_truthy(%s))",
			g.emitExpr(n.Left), g.emitExpr(n.Right))
	}
	return fmt.Sprintf("hml_binop(%s, %s, %s)", binaryOpCode(n.Op), g.emitExpr(n.Left), g.emitExpr(n.Right))
}

// emitCall lowers a call expression. A call through a plain identifier
// becomes a direct C call with the arguments passed positionally; any
// other callee goes through hml_call_dynamic with an argument array.
// Trailing arguments are not packed into a rest parameter's (argc,
// argv) pair, and `ref` arguments are not copied back after the call.
func (g *Codegen) emitCall(n *ast.Call) string {
	if ident, ok := n.Callee.(*ast.Ident); ok {
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = g.emitExpr(a)
		}
		return fmt.Sprintf("%s(%s)", Mangle(ident.Name), joinArgs(args))
	}
	argc := len(n.Args)
	return fmt.Sprintf("hml_call_dynamic(%s, %d, (HmlValue[]){%s})",
		g.emitExpr(n.Callee), argc, joinArgsExprs(g, n.Args))
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}

func joinArgsExprs(g *Codegen, args []ast.Expr) string {
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = g.emitExpr(a)
	}
	return joinArgs(strs)
}

func (g *Codegen) emitArrayLiteral(n *ast.ArrayLiteral) string {
	return fmt.Sprintf("hml_array_new(%d, (HmlValue[]){%s})", len(n.Elements), joinArgsExprs(g, n.Elements))
}

func (g *Codegen) emitObjectLiteral(n *ast.ObjectLiteral) string {
	names := ""
	for i, nm := range n.FieldNames {
		if i > 0 {
			names += ", "
		}
		names += strconv.Quote(nm)
	}
	return fmt.Sprintf("hml_object_new(%d, (const char*[]){%s}, (HmlValue[]){%s})",
		len(n.FieldNames), names, joinArgsExprs(g, n.FieldValues))
}

func (g *Codegen) emitPrefixIncDec(n *ast.PrefixIncDec) string {
	id, ok := n.Operand.(*ast.Ident)
	if !ok {
		g.diag.Addf(n.Span(), "ccodegen: ++/-- target must be a plain identifier")
		return "hml_val_null()"
	}
	op := "HML_OP_ADD"
	if !n.Inc {
		op = "HML_OP_SUB"
	}
	lv := g.resolveIdent(id.Name)
	return fmt.Sprintf("(%s = hml_binop(%s, %s, hml_val_i32(1LL)))", lv, op, lv)
}

func (g *Codegen) emitPostfixIncDec(n *ast.PostfixIncDec) string {
	id, ok := n.Operand.(*ast.Ident)
	if !ok {
		g.diag.Addf(n.Span(), "ccodegen: ++/-- target must be a plain identifier")
		return "hml_val_null()"
	}
	op := "HML_OP_ADD"
	if !n.Inc {
		op = "HML_OP_SUB"
	}
	lv := g.resolveIdent(id.Name)
	tmp := g.tempName()
	// Postfix must yield the pre-increment value; emitted as a GNU
	// statement expression since hemlock expressions may nest inside a
	// larger C expression (matches the runtime's existing use of
	// statement expressions for multi-step intrinsics).
	return fmt.Sprintf("({ HmlValue %s = %s; %s = hml_binop(%s, %s, hml_val_i32(1LL)); %s; })",
		tmp, lv, lv, op, tmp, tmp)
}

func (g *Codegen) emitStringInterpolation(n *ast.StringInterpolation) string {
	parts := make([]string, 0, len(n.StringParts)+len(n.ExprParts))
	for i, lit := range n.StringParts {
		parts = append(parts, fmt.Sprintf("hml_string_new(%s)", strconv.Quote(lit)))
		if i < len(n.ExprParts) {
			parts = append(parts, fmt.Sprintf("hml_to_display_string(%s)", g.emitExpr(n.ExprParts[i])))
		}
	}
	return fmt.Sprintf("hml_string_concat_all(%d, (HmlValue[]){%s})", len(parts), joinArgs(parts))
}

// emitClosureLiteral builds a closure value: a function pointer paired
// with a freshly allocated environment record populated from the
// enclosing scope's current bindings, per §4.6's `{fn_ptr, env_ptr}`
// closure representation. The function body itself is emitted as its
// own standalone top-level C function, named and forward-declared by
// planFunctionNames/emitForwardDeclarations in codegen.go; this only
// builds the runtime value referencing it.
func (g *Codegen) emitClosureLiteral(n *ast.Function) string {
	info := g.closures[n]
	fnName := g.nestedFuncName(n)
	if info == nil || info.EnvStruct == "" {
		return fmt.Sprintf("hml_closure_new((HmlFnPtr)%s, NULL)", fnName)
	}
	assigns := make([]string, 0, len(info.Captured))
	for _, name := range info.Captured {
		assigns = append(assigns, fmt.Sprintf(".%s = %s", Mangle(name), g.resolveIdent(name)))
	}
	return fmt.Sprintf("hml_closure_new((HmlFnPtr)%s, hml_env_alloc(sizeof(%s), &(%s){%s}))",
		fnName, info.EnvStruct, info.EnvStruct, joinArgs(assigns))
}
