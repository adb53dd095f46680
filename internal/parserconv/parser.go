// Package parserconv implements ParserConverter (C7): parse states,
// state operations, and select-based transitions (§4.7).
package parserconv

import (
	"github.com/p4lang/p4c-bm2json/internal/convert"
	"github.com/p4lang/p4c-bm2json/internal/document"
	"github.com/p4lang/p4c-bm2json/internal/emitctl"
	"github.com/p4lang/p4c-bm2json/internal/ir"
)

type Converter struct {
	Sink *emitctl.Sink
	Conv *convert.Converter
	IDs  *document.IDGroups
}

// Convert renders parser p as a document.Parser, per §4.7.
func (c *Converter) Convert(p *ir.P4Parser) document.Parser {
	out := document.Parser{
		Name:      ir.ExternalName(p.Name),
		ID:        c.IDs.Next("parsers"),
		InitState: "start",
	}
	for _, st := range p.States {
		if st.Name == "accept" || st.Name == "reject" {
			continue // implicit: no state emitted (§4.7)
		}
		out.ParseStates = append(out.ParseStates, c.convertState(st))
	}
	return out
}

func (c *Converter) convertState(st ir.ParserState) document.ParseState {
	ps := document.ParseState{
		Name: ir.ExternalName(st.Name),
		ID:   c.IDs.Next("parse_states"),
	}
	for _, s := range st.Statements {
		ps.ParserOps = append(ps.ParserOps, c.convertStatement(s)...)
	}

	if st.SelectExpr == nil {
		ps.Transitions = []document.Transition{{Value: "default", Mask: nil, NextState: c.nextStateRef(st.Default)}}
		return ps
	}

	ps.TransitionKey = []convert.Node{c.Conv.Convert(st.SelectExpr, nil, false, false, false)}
	for _, cs := range st.Cases {
		value, mask := c.selectCaseValueMask(cs.Keys)
		ps.Transitions = append(ps.Transitions, document.Transition{
			Value:     value,
			Mask:      mask,
			NextState: c.nextStateRef(cs.Next),
		})
	}
	return ps
}

func (c *Converter) nextStateRef(name string) any {
	if name == "accept" {
		return nil
	}
	if name == "reject" {
		c.Sink.Warn("ParserConverter", name, "explicit transition to reject")
		return nil
	}
	return ir.ExternalName(name)
}

func (c *Converter) convertStatement(s ir.Statement) []convert.Node {
	switch v := s.(type) {
	case ir.AssignmentStatement:
		_, isBool := interfaceBoolHint(v.Left)
		lhs := c.Conv.ConvertLeftValue(v.Left, nil)
		rhs := c.Conv.Convert(v.Right, nil, true, false, isBool)
		return []convert.Node{{"op": "set", "parameters": []convert.Node{lhs, rhs}}}

	case ir.MethodCallStatement:
		return c.convertMethodCall(v.Call)

	case ir.BlockStatement:
		var out []convert.Node
		for _, inner := range v.Statements {
			out = append(out, c.convertStatement(inner)...)
		}
		return out

	case ir.EmptyStatement:
		return nil

	default:
		c.Sink.Error("ParserConverter", "", "unsupported target in parser op: %T", s)
		return nil
	}
}

func (c *Converter) convertMethodCall(mc ir.MethodCallExpression) []convert.Node {
	switch mc.Name {
	case "extract":
		if len(mc.Args) == 1 {
			return []convert.Node{{"op": "extract", "parameters": []convert.Node{c.extractTarget(mc.Args[0])}}}
		}
		if len(mc.Args) == 2 {
			lenExpr := c.Conv.Convert(mc.Args[1], nil, false, false, false)
			return []convert.Node{{"op": "extract_VL", "parameters": []convert.Node{c.extractTarget(mc.Args[0]), lenExpr}}}
		}
	case "verify":
		cond := c.Conv.Convert(mc.Args[0], nil, false, false, false)
		errExpr := c.Conv.Convert(mc.Args[1], nil, false, false, false)
		return []convert.Node{{"op": "verify", "parameters": []convert.Node{cond, errExpr}}}
	case "setValid":
		return []convert.Node{{"op": "set", "parameters": []convert.Node{
			{"type": "field", "value": []any{headerName(mc.Method), "$valid$"}},
			{"type": "hexstr", "value": "0x01"},
		}}}
	case "setInvalid":
		return []convert.Node{{"op": "set", "parameters": []convert.Node{
			{"type": "field", "value": []any{headerName(mc.Method), "$valid$"}},
			{"type": "hexstr", "value": "0x00"},
		}}}
	}
	c.Sink.Warn("ParserConverter", mc.Name, "unknown extern method")
	return nil
}

func (c *Converter) extractTarget(arg ir.Expression) convert.Node {
	if m, ok := arg.(ir.Member); ok && m.Name == "next" {
		return convert.Node{"type": "stack", "value": headerName(m.Expr)}
	}
	return convert.Node{"type": "regular", "value": headerName(arg)}
}

func headerName(e ir.Expression) string {
	if p, ok := e.(ir.PathExpression); ok {
		return ir.ExternalName(p.Path)
	}
	if m, ok := e.(ir.Member); ok {
		return headerName(m.Expr) + "." + m.Name
	}
	return ""
}

// selectCaseValueMask computes the packed value/mask for a (possibly
// composite) select case, per §4.7's byte-rounded packing rule.
func (c *Converter) selectCaseValueMask(keys []ir.Expression) (string, any) {
	if len(keys) == 1 {
		if _, ok := keys[0].(ir.DefaultExpression); ok {
			return "default", nil
		}
	}

	var value, mask int64
	var totalBits int
	allFullMask := true
	for _, k := range keys {
		v, m, width, full := caseComponent(k)
		byteWidth := (width + 7) / 8
		shift := uint(8 * byteWidth)
		value = (value << shift) | v
		mask = (mask << shift) | m
		totalBits += 8 * byteWidth
		if !full {
			allFullMask = false
		}
	}
	if allFullMask {
		return hexstrInt(value, totalBits), nil
	}
	return hexstrInt(value, totalBits), hexstrInt(mask, totalBits)
}

func caseComponent(k ir.Expression) (value, mask int64, width int, fullMask bool) {
	switch v := k.(type) {
	case ir.Constant:
		w, _ := ir.Width(v.Type)
		return v.Value, allOnes(w), w, true
	case ir.Mask:
		vc, _ := v.Value.(ir.Constant)
		mc, _ := v.Mask.(ir.Constant)
		w, _ := ir.Width(vc.Type)
		return vc.Value, mc.Value, w, mc.Value == allOnes(w)
	case ir.BoolLiteral:
		if v.Value {
			return 1, 1, 1, true
		}
		return 0, 1, 1, true
	default:
		return 0, 0, 0, true
	}
}

func allOnes(w int) int64 {
	if w <= 0 {
		return 0
	}
	if w >= 64 {
		return -1
	}
	return (int64(1) << uint(w)) - 1
}

// hexstrInt pads v to the composite select-case key's total byte width
// (§4.7, §8 "Hex formatting"), reusing ExpressionConverter's padding
// rule rather than the weaker even-digit-count heuristic.
func hexstrInt(v int64, totalBits int) string {
	return convert.HexStrWidth(v, totalBits)
}

func interfaceBoolHint(e ir.Expression) (ir.Expression, bool) {
	return e, false
}
