// Package types implements hemlock's type-inference and unboxing
// analyzer, per SPEC_FULL.md §4.4. langlang has no equivalent pass (its
// AST carries no value types), so the lattice and fixed-point walker
// here are new code; the visitor-dispatch shape and the repeated-pass
// convergence loop are grounded on
// _examples/clarete-langlang/go/oracle.go's multi-pass grammar analysis
// (it too re-walks a tree until a fixed point of derived facts stops
// changing, there for left-recursion/nullability, here for types).
package types

import "github.com/hemlock-lang/hemlock/ast"

// Lattice is the coarse type-inference domain. Meet moves strictly
// upward toward Dynamic as conflicting facts accumulate; Dynamic means
// "could be more than one shape, must stay boxed."
type Lattice int

const (
	// Bottom means "no information yet" — the starting point of every
	// variable before its first assignment is observed.
	Bottom Lattice = iota
	LInt
	LFloat
	LBool
	LString
	LRune
	LObject
	LArray
	LNull
	// Dynamic is the lattice top: conflicting or as-yet-unresolvable type
	// facts collapse to it, and anything Dynamic must stay boxed.
	Dynamic
)

func (l Lattice) String() string {
	switch l {
	case Bottom:
		return "bottom"
	case LInt:
		return "int"
	case LFloat:
		return "float"
	case LBool:
		return "bool"
	case LString:
		return "string"
	case LRune:
		return "rune"
	case LObject:
		return "object"
	case LArray:
		return "array"
	case LNull:
		return "null"
	case Dynamic:
		return "dynamic"
	}
	return "?"
}

// Meet combines two observed facts about the same slot. It is
// commutative, idempotent, and monotonically non-decreasing toward
// Dynamic, which is what lets the fixed-point loop in analyzer.go
// terminate: each call either leaves the lattice unchanged or moves it
// one step closer to Dynamic, and Dynamic is absorbing.
func Meet(a, b Lattice) Lattice {
	if a == Bottom {
		return b
	}
	if b == Bottom {
		return a
	}
	if a == b {
		return a
	}
	// null meets any other fact without forcing Dynamic, primitives
	// included (LInt met with LNull stays LInt; see decision 1 in
	// DESIGN.md). No caller checks nullability before marking a
	// variable unboxed.
	if a == LNull || b == LNull {
		if a == LNull {
			return b
		}
		return a
	}
	return Dynamic
}

// IsUnboxablePrimitive reports whether a lattice value, once it has
// converged, is a fixed-width primitive eligible for the interpreter's
// unboxed local-variable representation (§4.4/§4.5).
func (l Lattice) IsUnboxablePrimitive() bool {
	switch l {
	case LInt, LFloat, LBool, LRune:
		return true
	}
	return false
}

// FromTypeAnnotation maps an explicit §3 type annotation onto the
// lattice, used to seed a variable's starting fact when the source
// carries one.
func FromTypeAnnotation(t *ast.Type) Lattice {
	if t == nil {
		return Bottom
	}
	switch t.Kind {
	case ast.TI8, ast.TI16, ast.TI32, ast.TI64, ast.TU8, ast.TU16, ast.TU32, ast.TU64:
		return LInt
	case ast.TF32, ast.TF64:
		return LFloat
	case ast.TBool:
		return LBool
	case ast.TString:
		return LString
	case ast.TRune:
		return LRune
	case ast.TArray:
		return LArray
	case ast.TCustomObject, ast.TGenericObject, ast.TEnum:
		return LObject
	case ast.TNull:
		return LNull
	}
	return Bottom
}
