package ast

import "github.com/hemlock-lang/hemlock/token"

// Stmt is the tagged sum of all statement node kinds from §3.
type Stmt interface {
	Span() token.Span
	Accept(StmtVisitor) (any, error)
}

type StmtVisitor interface {
	VisitLet(*Let) (any, error)
	VisitConst(*Const) (any, error)
	VisitExprStmt(*ExprStmt) (any, error)
	VisitIf(*If) (any, error)
	VisitWhile(*While) (any, error)
	VisitFor(*For) (any, error)
	VisitForIn(*ForIn) (any, error)
	VisitBlock(*Block) (any, error)
	VisitReturn(*Return) (any, error)
	VisitBreak(*Break) (any, error)
	VisitContinue(*Continue) (any, error)
	VisitTry(*Try) (any, error)
	VisitThrow(*Throw) (any, error)
	VisitSwitch(*Switch) (any, error)
	VisitDefer(*Defer) (any, error)
	VisitImport(*Import) (any, error)
	VisitExport(*Export) (any, error)
	VisitImportFFI(*ImportFFI) (any, error)
	VisitExternFn(*ExternFn) (any, error)
	VisitDefineObject(*DefineObject) (any, error)
	VisitEnum(*Enum) (any, error)
}

type baseStmt struct{ sp token.Span }

func (b baseStmt) Span() token.Span { return b.sp }

type Let struct {
	baseStmt
	Name  string
	Type  *Type
	Value Expr // nil if uninitialized
}

func NewLet(sp token.Span, name string, typ *Type, value Expr) *Let {
	return &Let{baseStmt{sp}, name, typ, value}
}
func (n *Let) Accept(v StmtVisitor) (any, error) { return v.VisitLet(n) }

type Const struct {
	baseStmt
	Name  string
	Type  *Type
	Value Expr
}

func NewConst(sp token.Span, name string, typ *Type, value Expr) *Const {
	return &Const{baseStmt{sp}, name, typ, value}
}
func (n *Const) Accept(v StmtVisitor) (any, error) { return v.VisitConst(n) }

type ExprStmt struct {
	baseStmt
	Expr Expr
}

func NewExprStmt(sp token.Span, e Expr) *ExprStmt { return &ExprStmt{baseStmt{sp}, e} }
func (n *ExprStmt) Accept(v StmtVisitor) (any, error) { return v.VisitExprStmt(n) }

type If struct {
	baseStmt
	Cond Expr
	Then Stmt
	Else Stmt // nil, *If (else-if), or *Block
}

func NewIf(sp token.Span, cond Expr, then, els Stmt) *If {
	return &If{baseStmt{sp}, cond, then, els}
}
func (n *If) Accept(v StmtVisitor) (any, error) { return v.VisitIf(n) }

type While struct {
	baseStmt
	Cond Expr
	Body Stmt
}

func NewWhile(sp token.Span, cond Expr, body Stmt) *While {
	return &While{baseStmt{sp}, cond, body}
}
func (n *While) Accept(v StmtVisitor) (any, error) { return v.VisitWhile(n) }

type For struct {
	baseStmt
	Init Stmt // nil or *Let/*ExprStmt
	Cond Expr // nil
	Step Stmt // nil or *ExprStmt
	Body Stmt
}

func NewFor(sp token.Span, init Stmt, cond Expr, step Stmt, body Stmt) *For {
	return &For{baseStmt{sp}, init, cond, step, body}
}
func (n *For) Accept(v StmtVisitor) (any, error) { return v.VisitFor(n) }

type ForIn struct {
	baseStmt
	Key      string // "" if absent
	Value    string
	Iterable Expr
	Body     Stmt
}

func NewForIn(sp token.Span, key, value string, iterable Expr, body Stmt) *ForIn {
	return &ForIn{baseStmt{sp}, key, value, iterable, body}
}
func (n *ForIn) Accept(v StmtVisitor) (any, error) { return v.VisitForIn(n) }

type Block struct {
	baseStmt
	Stmts []Stmt
}

func NewBlock(sp token.Span, stmts []Stmt) *Block { return &Block{baseStmt{sp}, stmts} }
func (n *Block) Accept(v StmtVisitor) (any, error) { return v.VisitBlock(n) }

type Return struct {
	baseStmt
	Value Expr // nil
}

func NewReturn(sp token.Span, value Expr) *Return { return &Return{baseStmt{sp}, value} }
func (n *Return) Accept(v StmtVisitor) (any, error) { return v.VisitReturn(n) }

type Break struct{ baseStmt }

func NewBreak(sp token.Span) *Break                 { return &Break{baseStmt{sp}} }
func (n *Break) Accept(v StmtVisitor) (any, error) { return v.VisitBreak(n) }

type Continue struct{ baseStmt }

func NewContinue(sp token.Span) *Continue             { return &Continue{baseStmt{sp}} }
func (n *Continue) Accept(v StmtVisitor) (any, error) { return v.VisitContinue(n) }

type Try struct {
	baseStmt
	TryBlock     *Block
	CatchParam   string // "" if absent
	CatchBlock   *Block // nil if absent
	FinallyBlock *Block // nil if absent
}

func NewTry(sp token.Span, tryBlock *Block, catchParam string, catchBlock, finallyBlock *Block) *Try {
	return &Try{baseStmt{sp}, tryBlock, catchParam, catchBlock, finallyBlock}
}
func (n *Try) Accept(v StmtVisitor) (any, error) { return v.VisitTry(n) }

type Throw struct {
	baseStmt
	Value Expr
}

func NewThrow(sp token.Span, value Expr) *Throw    { return &Throw{baseStmt{sp}, value} }
func (n *Throw) Accept(v StmtVisitor) (any, error) { return v.VisitThrow(n) }

// SwitchCase models one `case value:`/`default:` arm; Value == nil means default.
type SwitchCase struct {
	Value Expr
	Body  []Stmt
}

type Switch struct {
	baseStmt
	Expr  Expr
	Cases []SwitchCase
}

func NewSwitch(sp token.Span, expr Expr, cases []SwitchCase) *Switch {
	return &Switch{baseStmt{sp}, expr, cases}
}
func (n *Switch) Accept(v StmtVisitor) (any, error) { return v.VisitSwitch(n) }

type Defer struct {
	baseStmt
	Call *Call
}

func NewDefer(sp token.Span, call *Call) *Defer    { return &Defer{baseStmt{sp}, call} }
func (n *Defer) Accept(v StmtVisitor) (any, error) { return v.VisitDefer(n) }

type Import struct {
	baseStmt
	ModulePath    string
	IsNamespace   bool
	NamespaceName string
	Names         []ImportName
}

func NewImport(sp token.Span, path string, isNS bool, nsName string, names []ImportName) *Import {
	return &Import{baseStmt{sp}, path, isNS, nsName, names}
}
func (n *Import) Accept(v StmtVisitor) (any, error) { return v.VisitImport(n) }

type Export struct {
	baseStmt
	IsDeclaration bool
	Declaration   Stmt // nil unless IsDeclaration
	IsReexport    bool
	ModulePath    string // set when IsReexport
	Names         []ImportName
}

func NewExport(sp token.Span) *Export               { return &Export{baseStmt: baseStmt{sp}} }
func (n *Export) Accept(v StmtVisitor) (any, error) { return v.VisitExport(n) }

type ImportFFI struct {
	baseStmt
	LibraryPath string
}

func NewImportFFI(sp token.Span, path string) *ImportFFI { return &ImportFFI{baseStmt{sp}, path} }
func (n *ImportFFI) Accept(v StmtVisitor) (any, error)   { return v.VisitImportFFI(n) }

type ExternFn struct {
	baseStmt
	Name       string
	ParamTypes []Type
	ReturnType Type
}

func NewExternFn(sp token.Span, name string, params []Type, ret Type) *ExternFn {
	return &ExternFn{baseStmt{sp}, name, params, ret}
}
func (n *ExternFn) Accept(v StmtVisitor) (any, error) { return v.VisitExternFn(n) }

type DefineObject struct {
	baseStmt
	Name   string
	Fields []Field
}

func NewDefineObject(sp token.Span, name string, fields []Field) *DefineObject {
	return &DefineObject{baseStmt{sp}, name, fields}
}
func (n *DefineObject) Accept(v StmtVisitor) (any, error) { return v.VisitDefineObject(n) }

type Enum struct {
	baseStmt
	Name     string
	Variants []EnumVariant
}

func NewEnum(sp token.Span, name string, variants []EnumVariant) *Enum {
	return &Enum{baseStmt{sp}, name, variants}
}
func (n *Enum) Accept(v StmtVisitor) (any, error) { return v.VisitEnum(n) }
