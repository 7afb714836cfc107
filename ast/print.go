package ast

import (
	"fmt"
	"strings"
)

// Print renders a statement list as an S-expression-like tree, used by
// the CLI's --ast-only style debugging output and by tests that assert
// on AST shape. Grounded on
// _examples/clarete-langlang/go/value.go's indent-tracking TreePrinter,
// simplified to plain text (hemlock has no terminal-highlight mode).
func Print(stmts []Stmt) string {
	var b strings.Builder
	p := &printer{out: &b}
	for _, s := range stmts {
		p.stmt(s)
		b.WriteByte('\n')
	}
	return b.String()
}

type printer struct {
	out   *strings.Builder
	depth int
}

func (p *printer) indent() {
	for i := 0; i < p.depth; i++ {
		p.out.WriteString("  ")
	}
}

func (p *printer) line(format string, args ...any) {
	p.indent()
	fmt.Fprintf(p.out, format, args...)
	p.out.WriteByte('\n')
}

func (p *printer) stmt(s Stmt) {
	switch n := s.(type) {
	case *Let:
		p.line("Let %s", n.Name)
		if n.Value != nil {
			p.depth++
			p.expr(n.Value)
			p.depth--
		}
	case *Const:
		p.line("Const %s", n.Name)
	case *ExprStmt:
		p.line("ExprStmt")
		p.depth++
		p.expr(n.Expr)
		p.depth--
	case *Block:
		p.line("Block")
		p.depth++
		for _, s := range n.Stmts {
			p.stmt(s)
		}
		p.depth--
	case *If:
		p.line("If")
	case *While:
		p.line("While")
	case *For:
		p.line("For")
	case *ForIn:
		p.line("ForIn")
	case *Return:
		p.line("Return")
	case *Break:
		p.line("Break")
	case *Continue:
		p.line("Continue")
	case *Try:
		p.line("Try")
	case *Throw:
		p.line("Throw")
	case *Switch:
		p.line("Switch")
	case *Defer:
		p.line("Defer")
	case *Import:
		p.line("Import %s", n.ModulePath)
	case *Export:
		p.line("Export")
	case *ImportFFI:
		p.line("ImportFFI %s", n.LibraryPath)
	case *ExternFn:
		p.line("ExternFn %s", n.Name)
	case *DefineObject:
		p.line("DefineObject %s", n.Name)
	case *Enum:
		p.line("Enum %s", n.Name)
	default:
		p.line("<unknown stmt %T>", n)
	}
}

func (p *printer) expr(e Expr) {
	switch n := e.(type) {
	case *Number:
		if n.IsFloat {
			p.line("Number %g", n.Float)
		} else {
			p.line("Number %d", n.Int)
		}
	case *Bool:
		p.line("Bool %v", n.Value)
	case *String:
		p.line("String %q", n.Value)
	case *Rune:
		p.line("Rune %q", n.Codepoint)
	case *Null:
		p.line("Null")
	case *Ident:
		p.line("Ident %s", n.Name)
	case *Binary:
		p.line("Binary %d", n.Op)
		p.depth++
		p.expr(n.Left)
		p.expr(n.Right)
		p.depth--
	case *Unary:
		p.line("Unary %d", n.Op)
		p.depth++
		p.expr(n.Operand)
		p.depth--
	case *Call:
		p.line("Call")
		p.depth++
		p.expr(n.Callee)
		for _, a := range n.Args {
			p.expr(a)
		}
		p.depth--
	case *Function:
		p.line("Function %s", n.Name)
	default:
		p.line("<unknown expr %T>", n)
	}
}
