package fixup

import (
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/ir"
)

// FixupChecksum is the single-writer copy-propagation plus dead-store
// elimination pass restricted to the checksum-update control block
// (§4.4). It is intraprocedural over a single straight-line body with
// optional if-then-else; per §9's documented limitation, only the
// then-branch of an if is walked — conditions and else-branches are
// silently dropped, matching the runtime's own behavior.
func FixupChecksum(sink *emitctl.Sink, body []ir.Statement) []ir.Statement {
	writers := make(map[string]writerState)
	walkStatement(sink, ir.BlockStatement{Statements: body}, writers)

	var out []ir.Statement
	for _, stmt := range body {
		out = append(out, substituteStatement(stmt, writers)...)
	}

	// Every plain assignment to a path tracked in writers was a
	// single-writer temp whose value has now been inlined at every use
	// site by substituteExpr; the original store is dead. A path marked
	// multi (written along more than one branch) was never substituted
	// and so must be kept as-is.
	var final []ir.Statement
	for _, stmt := range out {
		if asn, ok := stmt.(ir.AssignmentStatement); ok {
			if path, isPath := asn.Left.(ir.PathExpression); isPath {
				if w, ok := writers[path.Path]; ok && !w.multi {
					continue // dead store eliminated
				}
			}
		}
		final = append(final, stmt)
	}
	return final
}

type writerState struct {
	def   *ir.AssignmentStatement
	multi bool
}

func walkStatement(sink *emitctl.Sink, stmt ir.Statement, writers map[string]writerState) {
	switch v := stmt.(type) {
	case ir.AssignmentStatement:
		if path, ok := v.Left.(ir.PathExpression); ok {
			stmtCopy := v
			writers[path.Path] = writerState{def: &stmtCopy}
		}
	case ir.IfStatement:
		// §9: only the then-branch is walked; conditions and
		// else-branches are silently dropped.
		thenWriters := make(map[string]writerState, len(writers))
		for k, v := range writers {
			thenWriters[k] = v
		}
		walkStatement(sink, v.Then, thenWriters)
		for k, tw := range thenWriters {
			if ow, had := writers[k]; had && ow.def != tw.def {
				writers[k] = writerState{multi: true}
			} else {
				writers[k] = tw
			}
		}
	case ir.BlockStatement:
		for _, s := range v.Statements {
			walkStatement(sink, s, writers)
		}
	case ir.MethodCallStatement:
		// only the checksum `get` extern call is permitted
	case ir.EmptyStatement:
	default:
		sink.Error("FixupChecksum", "", "unsupported construct %T in checksum-update block", stmt)
	}
}

func substituteStatement(stmt ir.Statement, writers map[string]writerState) []ir.Statement {
	switch v := stmt.(type) {
	case ir.AssignmentStatement:
		return []ir.Statement{ir.AssignmentStatement{Left: v.Left, Right: substituteExpr(v.Right, writers)}}
	case ir.IfStatement:
		return substituteStatement(v.Then, writers)
	case ir.BlockStatement:
		var out []ir.Statement
		for _, s := range v.Statements {
			out = append(out, substituteStatement(s, writers)...)
		}
		return out
	case ir.MethodCallStatement:
		args := make([]ir.Expression, len(v.Call.Args))
		for i, a := range v.Call.Args {
			args[i] = substituteExpr(a, writers)
		}
		call := v.Call
		call.Args = args
		return []ir.Statement{ir.MethodCallStatement{Call: call}}
	default:
		return []ir.Statement{stmt}
	}
}

func substituteExpr(e ir.Expression, writers map[string]writerState) ir.Expression {
	switch v := e.(type) {
	case ir.PathExpression:
		if w, ok := writers[v.Path]; ok && !w.multi && w.def != nil {
			return substituteExpr(w.def.Right, writers)
		}
		return v
	case ir.BinaryOp:
		return ir.BinaryOp{Op: v.Op, Left: substituteExpr(v.Left, writers), Right: substituteExpr(v.Right, writers)}
	case ir.Not:
		return ir.Not{Expr: substituteExpr(v.Expr, writers)}
	case ir.Neg:
		return ir.Neg{Expr: substituteExpr(v.Expr, writers)}
	case ir.Cast:
		return ir.Cast{To: v.To, Expr: substituteExpr(v.Expr, writers)}
	case ir.Mux:
		return ir.Mux{Cond: substituteExpr(v.Cond, writers), True: substituteExpr(v.True, writers), False: substituteExpr(v.False, writers)}
	case ir.MethodCallExpression:
		args := make([]ir.Expression, len(v.Args))
		for i, a := range v.Args {
			args[i] = substituteExpr(a, writers)
		}
		return ir.MethodCallExpression{Method: v.Method, Name: v.Name, TypeArgs: v.TypeArgs, Args: args}
	default:
		return e
	}
}
