package interp

import (
	"fmt"
	"math"

	"github.com/hemlock-lang/hemlock/ast"
)

// HemlockException carries a thrown Value up through Go's error
// return path until the evaluator's catch (eval.go) converts it into
// the pending-exception flags it.throwing/it.thrownVal, per §4.5/§7. It is never a
// Go-level panic: every recoverable language fault is represented this
// way, so `try` can resume normal evaluation after catching it.
type HemlockException struct {
	Val Value
}

func (h *HemlockException) Error() string { return Display(h.Val) }

func throwString(format string, args ...any) error {
	return &HemlockException{Val: NewString(fmt.Sprintf(format, args...))}
}

// promoteWidth promotes a value's declared width/signedness fact to the wider
// of two operands per the table below, used before every integer
// binary op so the result carries the correct IntWidth.
//
// Promotion table (decision 4, DESIGN.md):
//   - If either operand is F32/F64, the other converts to F64 and the
//     result is F64.
//   - Otherwise, if either operand is I64, the other widens to I64,
//     except that I64 mixed with U64 throws (see the U64 rule below).
//   - Otherwise, mixing any unsigned operand of width < 64 with a
//     signed operand always widens the result to I64 (§4.5's literal
//     "unsigned/signed mixing widens to the next-larger signed type
//     (I64 for U32/smaller...)").
//   - U64 mixed with any signed operand throws
//     "mixed signed/unsigned width overflow": there is no signed type
//     wide enough to hold every U64 value, so the mix is rejected
//     rather than silently truncated.
//   - Two unsigned operands promote to the wider of the two unsigned
//     widths; two signed operands likewise.
func promoteWidth(a, b IntWidth) (IntWidth, error) {
	if a == b {
		return a, nil
	}
	aw, bw := a.IsUnsigned(), b.IsUnsigned()
	if !aw && !bw {
		if a.BitSize() >= b.BitSize() {
			return a, nil
		}
		return b, nil
	}
	if aw && bw {
		if a.BitSize() >= b.BitSize() {
			return a, nil
		}
		return b, nil
	}
	// one signed, one unsigned: §4.5's literal rule is "I64 for
	// U32/smaller, exception for U64" — not a graduated widen, always I64.
	unsigned := a
	if bw {
		unsigned = b
	}
	if unsigned == WU64 {
		return 0, throwString("mixed signed/unsigned width overflow")
	}
	return WI64, nil
}

// wrapInt truncates v to width w's two's-complement range (§4.4
// decision 2: unboxed/boxed arithmetic both wrap on overflow).
func wrapInt(v int64, w IntWidth) int64 {
	bits := uint(w.BitSize())
	if bits >= 64 {
		return v
	}
	mask := int64(1)<<bits - 1
	v &= mask
	if !w.IsUnsigned() {
		signBit := int64(1) << (bits - 1)
		if v&signBit != 0 {
			v -= int64(1) << bits
		}
	}
	return v
}

// EvalBinary implements §4.5's binary operator semantics over already-
// evaluated operands. Comparison and arithmetic promotion happen here;
// short-circuit && / || are handled by the evaluator before operands
// are even evaluated (eval.go), so this function never receives them.
func EvalBinary(op ast.BinaryOp, l, r Value) (Value, error) {
	switch op {
	case ast.OpEq:
		return Bool(valuesEqual(l, r)), nil
	case ast.OpNeq:
		return Bool(!valuesEqual(l, r)), nil
	case ast.OpAndAnd:
		return Bool(IsTruthy(l) && IsTruthy(r)), nil
	case ast.OpOrOr:
		return Bool(IsTruthy(l) || IsTruthy(r)), nil
	}

	if l.Kind == KString || r.Kind == KString {
		return stringOp(op, l, r)
	}

	switch op {
	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		return numericCompare(op, l, r)
	}

	// §3: "Division always yields f64" regardless of operand widths; the
	// integers-only zero check still throws before that conversion runs.
	if op == ast.OpDiv {
		lf, _ := numericAsFloat(l)
		rf, _ := numericAsFloat(r)
		if l.Kind != KFloat && r.Kind != KFloat && rf == 0 {
			return Value{}, throwString("integer division by zero")
		}
		return Float(lf / rf), nil
	}

	if l.Kind == KFloat || r.Kind == KFloat {
		return floatOp(op, l, r)
	}

	return intOp(op, l, r)
}

func valuesEqual(l, r Value) bool {
	return NumericallyEqual(l, r)
}

func stringOp(op ast.BinaryOp, l, r Value) (Value, error) {
	switch op {
	case ast.OpAdd:
		return NewString(Display(l) + Display(r)), nil
	case ast.OpLt:
		return Bool(Display(l) < Display(r)), nil
	case ast.OpLte:
		return Bool(Display(l) <= Display(r)), nil
	case ast.OpGt:
		return Bool(Display(l) > Display(r)), nil
	case ast.OpGte:
		return Bool(Display(l) >= Display(r)), nil
	}
	return Value{}, throwString("operator %v is not defined for strings", op)
}

func numericCompare(op ast.BinaryOp, l, r Value) (Value, error) {
	lf, _ := numericAsFloat(l)
	rf, _ := numericAsFloat(r)
	switch op {
	case ast.OpLt:
		return Bool(lf < rf), nil
	case ast.OpLte:
		return Bool(lf <= rf), nil
	case ast.OpGt:
		return Bool(lf > rf), nil
	case ast.OpGte:
		return Bool(lf >= rf), nil
	}
	return Value{}, throwString("unsupported comparison operator")
}

func floatOp(op ast.BinaryOp, l, r Value) (Value, error) {
	lf, _ := numericAsFloat(l)
	rf, _ := numericAsFloat(r)
	switch op {
	case ast.OpAdd:
		return Float(lf + rf), nil
	case ast.OpSub:
		return Float(lf - rf), nil
	case ast.OpMul:
		return Float(lf * rf), nil
	case ast.OpMod:
		return Float(math.Mod(lf, rf)), nil
	}
	return Value{}, throwString("operator %v is not defined for floats", op)
}

func intOp(op ast.BinaryOp, l, r Value) (Value, error) {
	lw, rw := intWidthOf(l), intWidthOf(r)
	width, err := promoteWidth(lw, rw)
	if err != nil {
		return Value{}, err
	}
	li, ri := intValueOf(l), intValueOf(r)

	switch op {
	case ast.OpAdd:
		return Int(wrapInt(li+ri, width), width), nil
	case ast.OpSub:
		return Int(wrapInt(li-ri, width), width), nil
	case ast.OpMul:
		return Int(wrapInt(li*ri, width), width), nil
	case ast.OpMod:
		if ri == 0 {
			return Value{}, throwString("integer division by zero")
		}
		return Int(wrapInt(li%ri, width), width), nil
	case ast.OpBitAnd:
		return Int(wrapInt(li&ri, width), width), nil
	case ast.OpBitOr:
		return Int(wrapInt(li|ri, width), width), nil
	case ast.OpBitXor:
		return Int(wrapInt(li^ri, width), width), nil
	case ast.OpShl:
		return Int(wrapInt(li<<uint(ri), width), width), nil
	case ast.OpShr:
		if width.IsUnsigned() {
			return Int(wrapInt(int64(uint64(li)>>uint(ri)), width), width), nil
		}
		return Int(wrapInt(li>>uint(ri), width), width), nil
	}
	return Value{}, throwString("operator %v is not defined for integers", op)
}

func intWidthOf(v Value) IntWidth {
	if v.Kind == KRune {
		return WI32
	}
	return v.intWidth
}

func intValueOf(v Value) int64 {
	if v.Kind == KRune {
		return int64(v.runeVal)
	}
	return v.intVal
}

// EvalUnary implements the §3 unary operators: logical not, numeric
// negation, bitwise complement.
func EvalUnary(op ast.UnaryOp, operand Value) (Value, error) {
	switch op {
	case ast.OpNot:
		return Bool(!IsTruthy(operand)), nil
	case ast.OpNeg:
		if operand.Kind == KFloat {
			return Float(-operand.fltVal), nil
		}
		w := intWidthOf(operand)
		return Int(wrapInt(-intValueOf(operand), w), w), nil
	case ast.OpBitNot:
		w := intWidthOf(operand)
		return Int(wrapInt(^intValueOf(operand), w), w), nil
	}
	return Value{}, throwString("unsupported unary operator")
}
