package fixup

import (
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/ir"
)

// LowerExpressions eliminates constructs the runtime cannot express
// directly: Slice, Concat, Neg, and bool<->bit Cast (§4.2). t is e's
// type. sink records the shift-amount-exceeds-8-bits user error; every
// rewritten node's type is implicitly carried via the returned Typed.
//
// Table-key expressions are NOT recursed into here — the table
// converter (C5) handles them with its own, more specific rules (mask
// splitting, isValid-as-ternary); callers must not call LowerExpressions
// on a TableKey.Expr.
func LowerExpressions(sink *emitctl.Sink, e ir.Expression, t ir.Type) ir.Typed {
	switch v := e.(type) {
	case ir.Slice:
		inner := LowerExpressions(sink, v.Expr, t)
		width := v.Hi - v.Lo + 1
		shifted := ir.BinaryOp{Op: ">>", Left: inner.Expr, Right: ir.Constant{Type: ir.Bits{Width: 8}, Value: int64(v.Lo)}}
		resultType := ir.Bits{Width: width}
		return ir.Typed{Expr: ir.Cast{To: resultType, Expr: shifted}, Type: resultType}

	case ir.Concat:
		left := LowerExpressions(sink, v.Left, t)
		right := LowerExpressions(sink, v.Right, t)
		wRes, _ := ir.Width(t)
		wR, ok := ir.Width(exprWidthType(right))
		if !ok {
			wR, _ = ir.Width(t)
		}
		resType := ir.Bits{Width: wRes}
		shiftedLeft := ir.BinaryOp{Op: "<<", Left: ir.Cast{To: resType, Expr: left.Expr}, Right: ir.Constant{Type: ir.Bits{Width: 8}, Value: int64(wR)}}
		maskedRight := ir.BinaryOp{Op: "&", Left: ir.Cast{To: resType, Expr: right.Expr}, Right: ir.Constant{Type: resType, Value: allOnesMask(wR)}}
		return ir.Typed{Expr: ir.BinaryOp{Op: "|", Left: shiftedLeft, Right: maskedRight}, Type: resType}

	case ir.Neg:
		inner := LowerExpressions(sink, v.Expr, t)
		width, _ := ir.Width(t)
		return ir.Typed{Expr: ir.BinaryOp{Op: "-", Left: ir.Constant{Type: t, Value: 0}, Right: inner.Expr}, Type: ir.Bits{Width: width}}

	case ir.Cast:
		inner := LowerExpressions(sink, v.Expr, innerTypeOf(v))
		if _, toBool := v.To.(ir.Boolean); toBool {
			if _, fromBits := innerTypeOf(v).(ir.Bits); fromBits {
				return ir.Typed{Expr: ir.BinaryOp{Op: "==", Left: inner.Expr, Right: ir.Constant{Type: innerTypeOf(v), Value: 0}}, Type: ir.Boolean{}}
			}
		}
		if b, toBits := v.To.(ir.Bits); toBits {
			if _, fromBool := innerTypeOf(v).(ir.Boolean); fromBool {
				return ir.Typed{Expr: ir.Mux{
					Cond:  inner.Expr,
					True:  ir.Constant{Type: b, Value: 1},
					False: ir.Constant{Type: b, Value: 0},
				}, Type: b}
			}
		}
		return ir.Typed{Expr: ir.Cast{To: v.To, Expr: inner.Expr}, Type: v.To}

	case ir.BinaryOp:
		left := LowerExpressions(sink, v.Left, t)
		right := LowerExpressions(sink, v.Right, t)
		if v.Op == "<<" || v.Op == ">>" {
			checkShiftAmount(sink, right.Expr, right.Type)
		}
		return ir.Typed{Expr: ir.BinaryOp{Op: v.Op, Left: left.Expr, Right: right.Expr}, Type: t}

	case ir.Mux:
		return ir.Typed{Expr: ir.Mux{
			Cond:  v.Cond,
			True:  LowerExpressions(sink, v.True, t).Expr,
			False: LowerExpressions(sink, v.False, t).Expr,
		}, Type: t}

	case ir.Not:
		return ir.Typed{Expr: ir.Not{Expr: LowerExpressions(sink, v.Expr, t).Expr}, Type: t}

	default:
		return ir.Typed{Expr: e, Type: t}
	}
}

// checkShiftAmount enforces the shift-amount-must-fit-in-8-bits rule: a
// Bits{w>8} right-hand side, or a compile-time constant >= 1<<8, is a
// user error (§4.2, §7).
func checkShiftAmount(sink *emitctl.Sink, rhs ir.Expression, rhsType ir.Type) {
	if c, ok := rhs.(ir.Constant); ok && c.Type != nil {
		rhsType = c.Type
	}
	if b, ok := rhsType.(ir.Bits); ok && b.Width > 8 {
		sink.Error("LowerExpressions", "", "shift amount width %d exceeds 8 bits", b.Width)
		return
	}
	if c, ok := rhs.(ir.Constant); ok && c.Value >= (1<<8) {
		sink.Error("LowerExpressions", "", "shift amount constant %d exceeds 8 bits", c.Value)
	}
}

// innerTypeOf recovers the pre-cast type for a Cast node so the bool<->bit
// rewrite can tell which direction it's crossing; in the absence of a
// full type-map lookup this falls back to a Bits{0} sentinel the
// direction check below treats as "not bits" only when To is Boolean.
func innerTypeOf(c ir.Cast) ir.Type {
	if _, ok := c.To.(ir.Boolean); ok {
		return ir.Bits{Width: 1}
	}
	return ir.Boolean{}
}

func exprWidthType(t ir.Typed) ir.Type { return t.Type }
