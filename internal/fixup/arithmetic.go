// Package fixup implements the two tree-rewrite passes that run before
// expression-to-JSON conversion: ArithmeticFixup (C1) and
// LowerExpressions (C2), plus the checksum-block copy-propagation pass
// FixupChecksum (C4).
package fixup

import (
	"github.com/p4lang/p4c-bm2json/internal/ir"
)

// ArithmeticFixup rewrites e bottom-up so that, evaluated with
// wrap-around semantics by the runtime, the result matches P4 typed
// arithmetic semantics (§4.1). t is e's type from the front end's type
// map. The rewrite is total: every Bits-typed arithmetic/negation/cast
// node is wrapped, and unknown-width Bits types are an internal bug.
func ArithmeticFixup(log Logger, e ir.Expression, t ir.Type) ir.Typed {
	switch v := e.(type) {
	case ir.BinaryOp:
		left := ArithmeticFixup(log, v.Left, t)
		right := ArithmeticFixup(log, v.Right, t)
		node := ir.BinaryOp{Op: v.Op, Left: left.Expr, Right: right.Expr}
		if !ir.IsArithmetic(v.Op) {
			return ir.Typed{Expr: node, Type: t}
		}
		return wrapBits(log, node, t)

	case ir.Neg:
		inner := ArithmeticFixup(log, v.Expr, t)
		node := ir.Neg{Expr: inner.Expr}
		return wrapBits(log, node, t)

	case ir.Cast:
		inner := ArithmeticFixup(log, v.Expr, t)
		node := ir.Cast{To: v.To, Expr: inner.Expr}
		if _, ok := node.To.(ir.Bits); ok {
			return wrapBits(log, node, node.To)
		}
		return ir.Typed{Expr: node, Type: t}

	case ir.Not:
		return ir.Typed{Expr: ir.Not{Expr: ArithmeticFixup(log, v.Expr, t).Expr}, Type: t}

	case ir.Mux:
		return ir.Typed{Expr: ir.Mux{
			Cond:  v.Cond,
			True:  ArithmeticFixup(log, v.True, t).Expr,
			False: ArithmeticFixup(log, v.False, t).Expr,
		}, Type: t}

	case ir.Slice:
		return ir.Typed{Expr: ir.Slice{Expr: ArithmeticFixup(log, v.Expr, t).Expr, Hi: v.Hi, Lo: v.Lo}, Type: t}

	case ir.Concat:
		return ir.Typed{Expr: ir.Concat{
			Left:  ArithmeticFixup(log, v.Left, t).Expr,
			Right: ArithmeticFixup(log, v.Right, t).Expr,
		}, Type: t}

	default:
		// Leaves (Constant, BoolLiteral, PathExpression, Member,
		// ArrayIndex, MethodCallExpression, ...) pass through unchanged.
		return ir.Typed{Expr: e, Type: t}
	}
}

// wrapBits applies the width-clamping mask (unsigned) or two's-complement
// modulus (signed) to node, whose result type is t.
func wrapBits(log Logger, node ir.Expression, t ir.Type) ir.Typed {
	b, ok := t.(ir.Bits)
	if !ok {
		// Not a Bits-typed result (e.g. Boolean comparisons): no
		// wrapping rule applies.
		return ir.Typed{Expr: node, Type: t}
	}
	if b.Width <= 0 {
		Bug(log, "arithmetic fixup: unknown-width bits type on %T", node)
	}
	if b.Signed {
		return ir.Typed{Expr: twoCompMod(node, b.Width), Type: t}
	}
	mask := allOnesMask(b.Width)
	return ir.Typed{Expr: ir.BinaryOp{Op: "&", Left: node, Right: ir.Constant{Type: b, Value: mask}}, Type: t}
}

// twoCompMod renders the sign-modulus wrap applied to signed arithmetic
// results; ExpressionConverter (C3) recognizes this shape and emits it
// as the "two_comp_mod" operator (§4.3 table, scenario 4 in §8).
func twoCompMod(node ir.Expression, width int) ir.Expression {
	return ir.BinaryOp{Op: "two_comp_mod", Left: node, Right: ir.Constant{Type: ir.Bits{Width: 8}, Value: int64(width)}}
}

// allOnesMask returns the width-bit all-ones value, i.e. Util::mask(width).
func allOnesMask(width int) int64 {
	if width >= 64 {
		return -1
	}
	return (int64(1) << uint(width)) - 1
}
