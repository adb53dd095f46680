package ir

// SameKeyExpr is the restricted structural-equality check used to
// compare two table-key expressions for the shared-action-selector
// check (C6). No direct-meter check uses it.
// It intentionally recognizes only PathExpression, Member, Literal
// (Constant/BoolLiteral) and ArrayIndex; every other expression form is
// rejected rather than given a deeper canonicalization, per §9's open
// question: implementations should mirror this restricted equality and
// not attempt to resolve it more cleverly.
func SameKeyExpr(a, b Expression) bool {
	switch av := a.(type) {
	case PathExpression:
		bv, ok := b.(PathExpression)
		return ok && av.Path == bv.Path
	case Member:
		bv, ok := b.(Member)
		return ok && av.Name == bv.Name && SameKeyExpr(av.Expr, bv.Expr)
	case Constant:
		bv, ok := b.(Constant)
		return ok && av.Value == bv.Value
	case BoolLiteral:
		bv, ok := b.(BoolLiteral)
		return ok && av.Value == bv.Value
	case ArrayIndex:
		bv, ok := b.(ArrayIndex)
		return ok && SameKeyExpr(av.Left, bv.Left) && SameKeyExpr(av.Index, bv.Index)
	default:
		return false
	}
}

// ExternalName strips a single leading '.' from a fully-qualified path,
// matching the source's extVisibleName() convention: every name emitted
// under a JSON "name" key is the object's external name with any
// leading dot removed (§3 Invariants).
func ExternalName(path string) string {
	if len(path) > 0 && path[0] == '.' {
		return path[1:]
	}
	return path
}
