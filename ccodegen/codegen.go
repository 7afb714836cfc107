// Package ccodegen lowers a parsed hemlock program to C against the
// fixed runtime ABI described by SPEC_FULL.md §4.6: a tagged-union
// HmlValue, per-width boxing helpers, operator intrinsics keyed by op
// code, heap primitives (strings/arrays/objects/closures/channels/
// files), retain/release, and a thread-local thrown-exception slot.
// Grounded on _examples/clarete-langlang/go/genc.go's outputWriter-
// based emitter and its prelude/runtime/body staging, generalized from
// emitting one fixed VM bytecode program to emitting a full lowering of
// arbitrary hemlock statements and expressions.
package ccodegen

import (
	"fmt"

	"github.com/hemlock-lang/hemlock/ast"
	"github.com/hemlock-lang/hemlock/diag"
	"github.com/hemlock-lang/hemlock/token"
	"github.com/hemlock-lang/hemlock/types"
)

// runtimeHeader is the single #include the generated C file depends on;
// the header (and its implementation) is the runtime contract §4.6
// declares out of scope for the codegen itself.
const runtimeHeader = "hemlock_runtime.h"

// Codegen lowers one parsed compilation unit to C. One Codegen is used
// per file; it is not safe for concurrent use (mirrors the single-
// threaded-per-evaluation model of §5, which the generated code itself
// also inherits).
type Codegen struct {
	out  *outputWriter
	diag *diag.Bag

	program  *types.Program
	closures map[*ast.Function]*ClosureInfo

	// funcNames assigns every function literal in the program (named or
	// anonymous, top-level or nested) its generated C function name, so
	// a closure literal built deep inside one function body can always
	// reference the already-planned C symbol for another.
	funcNames map[*ast.Function]string
	funcOrder []*ast.Function

	tmpCounter   int
	labelCounter int

	// funcStack tracks the enclosing function(s) currently being
	// emitted, innermost last, so Return/Defer/tail-call lowering can
	// find the right defer list and tail-loop label.
	funcStack []*funcCtx

	// ctrlStack tracks enclosing loops and switches, innermost last, for
	// break/continue lowering (§4.6 "Break / continue"). A switch frame
	// only ever supplies a break target: continue always targets the
	// nearest enclosing loop frame, skipping over any switch frames in
	// between, since a switch inside a loop does not intercept continue.
	ctrlStack []loopLabels

	modulePrefixes map[string]string
}

type funcCtx struct {
	name        string
	info        *types.FuncInfo
	closure     *ClosureInfo
	deferCalls  []deferredCall
	tailLoop    bool   // true when this function's body is wrapped in the tail-call loop
	tailLabel   string // entry label for the tail-call loop, set iff tailLoop
	retTemp     string // not set by the current lowering; emitReturn stages into a fresh temporary
	hasTryScope bool   // not set by the current lowering; a return inside a try does not run its finally block

	// handlerLabels is the stack of enclosing try blocks' catch labels,
	// innermost last; emitExceptionCheck jumps to the top of this stack
	// instead of returning early when it is non-empty.
	handlerLabels []string
}

type deferredCall struct {
	call *ast.Call
	// label is not set by the current lowering: the deferred call is
	// re-emitted from its AST at every exit point, so its arguments are
	// evaluated when the deferred code runs, not at the `defer` statement.
	label string
}

type loopLabels struct {
	continueLabel string // "" for a switch frame, which has no continue target of its own
	breakLabel    string
	isSwitch      bool
}

// NewCodegen constructs a compiler for one file. program is the result
// of types.Analyze over the same statement list about to be generated;
// pass an empty &types.Program{Funcs: map[string]*types.FuncInfo{}} if
// no analysis was run (unboxing and tail-call lowering then simply
// never trigger).
func NewCodegen(file string, program *types.Program) *Codegen {
	if program == nil {
		program = &types.Program{Funcs: map[string]*types.FuncInfo{}}
	}
	return &Codegen{
		out:            newOutputWriter("    "),
		diag:           diag.NewBag(file),
		program:        program,
		modulePrefixes: make(map[string]string),
	}
}

// Diagnostics returns the accumulated compile-time error bag; per
// §4.6's "Errors" paragraph, the caller must check this after Generate
// and must not use the returned C source if it is non-empty.
func (g *Codegen) Diagnostics() *diag.Bag { return g.diag }

// Generate lowers stmts to a complete C translation unit. It always
// returns a string; callers must check Diagnostics().Count() == 0
// before trusting it is well-formed, per §4.6's "never produces a C
// file known to be malformed" (a nonzero diagnostic count means
// Generate gave up on some construct and the output must be discarded).
func (g *Codegen) Generate(stmts []ast.Stmt) string {
	g.closures = g.analyzeClosures(stmts)
	g.planFunctionNames(stmts)

	g.writePrelude()
	g.emitClosureStructs()
	g.emitForwardDeclarations()

	_, rest := splitTopLevel(stmts)
	for _, fn := range g.funcOrder {
		g.emitFunctionDef(fn)
	}
	g.emitModuleMain(rest)

	return g.out.String()
}

// nestedFuncName returns the C function name already planned for fn by
// planFunctionNames.
func (g *Codegen) nestedFuncName(fn *ast.Function) string {
	return g.funcNames[fn]
}

// planFunctionNames walks the whole program once, recursively, and
// assigns every *ast.Function literal a stable C function name: a
// top-level (or exported) named function keeps its own mangled name;
// everything else (nested and/or anonymous) gets a generated
// `_closureN` name. Order is preorder, so an enclosing function is
// always planned before the literals nested inside its own body.
func (g *Codegen) planFunctionNames(stmts []ast.Stmt) {
	g.funcNames = make(map[*ast.Function]string)
	topFuncs, rest := splitTopLevel(stmts)
	named := make(map[*ast.Function]bool, len(topFuncs))
	for _, tf := range topFuncs {
		g.funcNames[tf.fn] = Mangle(tf.name)
		g.funcOrder = append(g.funcOrder, tf.fn)
		named[tf.fn] = true
	}

	var walkExprs func(stmts []ast.Stmt)
	var planFn func(fn *ast.Function)
	planFn = func(fn *ast.Function) {
		if _, ok := g.funcNames[fn]; !ok {
			g.funcNames[fn] = g.labelName("closure")
			g.funcOrder = append(g.funcOrder, fn)
		}
		walkExprs(fn.Body)
	}
	walkExprs = func(stmts []ast.Stmt) {
		for _, fn := range collectSiblingFunctions(stmts) {
			planFn(fn)
		}
	}
	for _, tf := range topFuncs {
		walkExprs(tf.fn.Body)
	}
	walkExprs(rest)
}

// topFunc pairs a named top-level function with the binding statement
// it was unwrapped from (Let, Const, or an exported Declaration of
// either), so diagnostics can still point at a real span.
type topFunc struct {
	name string
	fn   *ast.Function
	sp   token.Span
}

func splitTopLevel(stmts []ast.Stmt) ([]topFunc, []ast.Stmt) {
	var funcs []topFunc
	var rest []ast.Stmt
	for _, s := range stmts {
		s := unwrapExport(s)
		switch n := s.(type) {
		case *ast.Let:
			if fn, ok := n.Value.(*ast.Function); ok && fn.Name != "" {
				funcs = append(funcs, topFunc{name: fn.Name, fn: fn, sp: n.Span()})
				continue
			}
		case *ast.Const:
			if fn, ok := n.Value.(*ast.Function); ok && fn.Name != "" {
				funcs = append(funcs, topFunc{name: fn.Name, fn: fn, sp: n.Span()})
				continue
			}
		}
		rest = append(rest, s)
	}
	return funcs, rest
}

// emitForwardDeclarations emits a C prototype for every planned
// function so call sites compile regardless of definition order (a
// function can reference a sibling closure defined later in the unit).
func (g *Codegen) emitForwardDeclarations() {
	for _, fn := range g.funcOrder {
		o := g.out
		o.writei(fmt.Sprintf("HmlValue %s(", g.funcNames[fn]))
		g.writeParamList(fn, g.closures[fn])
		o.writel(");")
	}
	g.out.writel("")
}

func unwrapExport(s ast.Stmt) ast.Stmt {
	if exp, ok := s.(*ast.Export); ok && exp.IsDeclaration && exp.Declaration != nil {
		return exp.Declaration
	}
	return s
}

func (g *Codegen) writePrelude() {
	o := g.out
	o.writel("/*")
	o.writel(" * Auto-generated C translation unit.")
	o.writel(" *")
	o.writel(" * Links against the hemlock runtime ABI (HmlValue, hml_val_*,")
	o.writel(" * hml_to_*, HML_OP_*/HML_UNARY_*, hml_retain/hml_release, the")
	o.writel(" * thrown-exception slot) declared in " + runtimeHeader + ".")
	o.writel(" */")
	o.writel("")
	o.writel(fmt.Sprintf("#include %q", runtimeHeader))
	o.writel("")
}

// emitModuleMain lowers every top-level non-function statement into the
// generated entry point the linked runtime's real `main` calls after
// setting up argv/exception handling (out of scope here per §4.6).
func (g *Codegen) emitModuleMain(stmts []ast.Stmt) {
	o := g.out
	o.writel("int hml_user_main(void) {")
	o.indent()
	g.funcStack = append(g.funcStack, &funcCtx{name: "hml_user_main"})
	for _, s := range stmts {
		g.emitStmt(s)
	}
	g.funcStack = g.funcStack[:len(g.funcStack)-1]
	o.writeil("return 0;")
	o.unindent()
	o.writel("}")
}
