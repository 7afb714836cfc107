// Package ast defines hemlock's tagged-sum expression and statement
// nodes, per SPEC_FULL.md §3. The shape — one interface plus one
// concrete struct per variant, dispatched through a visitor's Accept
// method — is grounded on
// _examples/clarete-langlang/go/grammar_ast.go's AstNode/AstNodeVisitor
// pair.
package ast

import "github.com/hemlock-lang/hemlock/token"

// TypeKind enumerates the annotation-syntax type tags from §3.
type TypeKind int

const (
	TInfer TypeKind = iota
	TI8
	TI16
	TI32
	TI64
	TU8
	TU16
	TU32
	TU64
	TF32
	TF64
	TBool
	TString
	TRune
	TPtr
	TBuffer
	TArray
	TNull
	TVoid
	TCustomObject
	TGenericObject
	TEnum
)

// Type carries a TypeKind, a nullable flag, and (for Array/CustomObject/
// Enum) the payload needed to recover the full annotation.
type Type struct {
	Kind     TypeKind
	Nullable bool
	Elem     *Type  // TArray
	Name     string // TCustomObject, TEnum
}

func (t Type) IsPrimitiveNumeric() bool {
	switch t.Kind {
	case TI8, TI16, TI32, TI64, TU8, TU16, TU32, TU64, TF32, TF64:
		return true
	}
	return false
}

func (t Type) IsInteger() bool {
	switch t.Kind {
	case TI8, TI16, TI32, TI64, TU8, TU16, TU32, TU64:
		return true
	}
	return false
}

func (t Type) IsUnsigned() bool {
	switch t.Kind {
	case TU8, TU16, TU32, TU64:
		return true
	}
	return false
}

func (t Type) String() string {
	names := map[TypeKind]string{
		TInfer: "infer", TI8: "i8", TI16: "i16", TI32: "i32", TI64: "i64",
		TU8: "u8", TU16: "u16", TU32: "u32", TU64: "u64",
		TF32: "f32", TF64: "f64", TBool: "bool", TString: "string",
		TRune: "rune", TPtr: "ptr", TBuffer: "buffer", TArray: "array",
		TNull: "null", TVoid: "void", TCustomObject: "object",
		TGenericObject: "generic_object", TEnum: "enum",
	}
	s := names[t.Kind]
	if t.Kind == TCustomObject || t.Kind == TEnum {
		s = t.Name
	}
	if t.Kind == TArray && t.Elem != nil {
		s = "[" + t.Elem.String() + "]"
	}
	if t.Nullable {
		s += "?"
	}
	return s
}

// Param is a function parameter per §3's Function node: a name, an
// optional type annotation, an optional default-value expression (the
// `?:` syntax), and the `ref` by-reference flag.
type Param struct {
	Name     string
	Type     *Type
	Default  Expr
	IsRef    bool
	Span     token.Span
}

// Field describes one entry of an ObjectLiteral or DefineObject.
type Field struct {
	Name     string
	Type     *Type
	Default  Expr
	Optional bool
}

// EnumVariant is one `name = value?` entry of an Enum statement.
type EnumVariant struct {
	Name  string
	Value Expr // nil if unspecified; the analyzer assigns sequential values
}

// ImportName / ExportName model the `{original, alias?}` pairs from §3.
type ImportName struct {
	Original string
	Alias    string
}
